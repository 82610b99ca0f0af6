package cfgsync

import (
	"context"
	"fmt"
)

// AdminUsername is the privileged account whose live active flag must track
// the configuration's admin-disable intent.
const AdminUsername = "admin"

// SecurityWarning is the three-way advisory classification derived from the
// security flags. It never blocks an operation by itself; the UI surfaces it
// and the diagnostic pages stay unavailable while it is non-none.
type SecurityWarning int

const (
	// WarningNone means the admin account is disabled and debug access
	// requires authentication.
	WarningNone SecurityWarning = iota

	// WarningAdminEnabled means the default admin account is still active.
	WarningAdminEnabled

	// WarningDebugUnprotected means the debug surface is reachable without
	// authentication.
	WarningDebugUnprotected

	// WarningAdminAndDebug means both conditions hold.
	WarningAdminAndDebug
)

func (w SecurityWarning) String() string {
	switch w {
	case WarningNone:
		return "none"
	case WarningAdminEnabled:
		return "admin account enabled"
	case WarningDebugUnprotected:
		return "debug access unprotected"
	case WarningAdminAndDebug:
		return "admin account enabled and debug access unprotected"
	default:
		return "unknown"
	}
}

// BlocksDiagnostics reports whether the warning keeps the diagnostic pages
// (prediction testing, log viewing) unavailable.
func (w SecurityWarning) BlocksDiagnostics() bool { return w != WarningNone }

// SecurityStatus is the enforcer's derived view, recomputed on every
// configuration load or update. PartialSync means the two-phase admin
// toggle completed only one half; it is a status flag, never an error.
type SecurityStatus struct {
	AdminUserDisabled bool
	DebugRequiresAuth bool
	PartialSync       bool
	Warning           SecurityWarning
}

// SecurityEnforcer derives the security booleans from the configuration and
// keeps the privileged account's live active flag in sync with the
// admin-disable intent recorded in the document. The config write and the
// account toggle are two separate network operations with no transactional
// guarantee between them; the enforcer re-reads both after the sequence and
// reports a mismatch as PartialSync instead of assuming success.
type SecurityEnforcer struct {
	reconciler *Reconciler
	accounts   AccountDirectory
	cache      FallbackCache
	logger     Logger
	status     SecurityStatus
}

// NewSecurityEnforcer creates an enforcer over the given collaborators.
func NewSecurityEnforcer(reconciler *Reconciler, accounts AccountDirectory, cache FallbackCache, logger Logger) *SecurityEnforcer {
	return &SecurityEnforcer{
		reconciler: reconciler,
		accounts:   accounts,
		cache:      cache,
		logger:     logger,
	}
}

// Refresh recomputes the derived status from a freshly loaded document.
// The debug gate is the OR of the document flag and the legacy local flag,
// for backward compatibility with the prior storage scheme. A detected
// intent/account mismatch is repaired opportunistically; if the repair
// fails, PartialSync stays set and is retried on the next load.
func (e *SecurityEnforcer) Refresh(ctx context.Context, doc *ConfigDocument) SecurityStatus {
	legacy, err := e.cache.LegacyDebugRequiresAuth()
	if err != nil {
		e.logger.Warn("reading legacy debug flag failed", "error", err)
	}

	st := SecurityStatus{
		AdminUserDisabled: doc.Security.AdminUserDisabled,
		DebugRequiresAuth: doc.Security.DebugRequiresAuth || legacy,
	}

	accts, aerr := e.accounts.List(ctx)
	if aerr != nil {
		e.logger.Debug("account list unavailable, partial-sync check skipped", "error", aerr)
	} else if admin, ok := findAccount(accts, AdminUsername); ok {
		mismatch := (st.AdminUserDisabled && admin.IsActive) || (!st.AdminUserDisabled && !admin.IsActive)
		if mismatch {
			st.PartialSync = true
			if _, terr := e.accounts.ToggleActive(ctx, AdminUsername); terr != nil {
				e.logger.Warn("partial sync detected, repair failed", "admin_active", admin.IsActive, "intent_disabled", st.AdminUserDisabled, "error", terr)
			} else {
				e.logger.Info("partial sync repaired", "intent_disabled", st.AdminUserDisabled)
				st.PartialSync = false
			}
		}
	}

	st.Warning = classifyWarning(st.AdminUserDisabled, st.DebugRequiresAuth)
	e.status = st
	return st
}

// SetAdminDisabled records the admin-disable intent and drives the live
// account to match it. Disabling is rejected with ErrInvariantViolation
// unless at least one other active account exists — before any network
// write is made. The flag write and the account toggle are two phases; an
// interrupted sequence surfaces as PartialSync on the returned status.
func (e *SecurityEnforcer) SetAdminDisabled(ctx context.Context, disabled bool) (SecurityStatus, error) {
	accts, err := e.accounts.List(ctx)
	if err != nil {
		return e.status, fmt.Errorf("listing accounts: %w", err)
	}
	if disabled && !hasOtherActive(accts) {
		return e.status, fmt.Errorf("disabling %q would leave no active account: %w", AdminUsername, ErrInvariantViolation)
	}

	cur, err := e.reconciler.Load(ctx)
	if err != nil {
		return e.status, fmt.Errorf("loading configuration: %w", err)
	}
	sec := cur.Document.Security
	sec.AdminUserDisabled = disabled

	// Phase 1: record the intent in the configuration.
	upd, err := e.reconciler.Update(ctx, &SectionPatch{Security: &sec})
	if err != nil {
		return e.status, err
	}

	// Phase 2: toggle the live account, only when its state differs from
	// the intent.
	if admin, ok := findAccount(accts, AdminUsername); ok {
		needToggle := (disabled && admin.IsActive) || (!disabled && !admin.IsActive)
		if needToggle {
			if _, terr := e.accounts.ToggleActive(ctx, AdminUsername); terr != nil {
				e.logger.Warn("account toggle failed after config write", "disabled", disabled, "error", terr)
			}
		}
	}

	// Re-read both sides; Refresh reports any remaining mismatch as
	// PartialSync and retries the repair opportunistically.
	doc := upd.Document
	if res, lerr := e.reconciler.Load(ctx); lerr == nil {
		doc = res.Document
	}
	return e.Refresh(ctx, doc), nil
}

// SetDebugRequiresAuth writes the config flag and mirrors it into the
// legacy local slot. There is no account-side effect.
func (e *SecurityEnforcer) SetDebugRequiresAuth(ctx context.Context, v bool) (SecurityStatus, error) {
	cur, err := e.reconciler.Load(ctx)
	if err != nil {
		return e.status, fmt.Errorf("loading configuration: %w", err)
	}
	sec := cur.Document.Security
	sec.DebugRequiresAuth = v

	upd, err := e.reconciler.Update(ctx, &SectionPatch{Security: &sec})
	if err != nil {
		return e.status, err
	}
	if cerr := e.cache.SetLegacyDebugRequiresAuth(v); cerr != nil {
		e.logger.Warn("mirroring legacy debug flag failed", "error", cerr)
	}
	return e.Refresh(ctx, upd.Document), nil
}

// DebugAccessRequiresAuth reports whether the debug surface requires
// authentication: true if either the document flag or the legacy local flag
// is set.
func (e *SecurityEnforcer) DebugAccessRequiresAuth() bool {
	return e.status.DebugRequiresAuth
}

// Warning returns the current advisory classification.
func (e *SecurityEnforcer) Warning() SecurityWarning { return e.status.Warning }

// Status returns the last derived status.
func (e *SecurityEnforcer) Status() SecurityStatus { return e.status }

func classifyWarning(adminDisabled, debugAuth bool) SecurityWarning {
	switch {
	case !adminDisabled && !debugAuth:
		return WarningAdminAndDebug
	case !adminDisabled:
		return WarningAdminEnabled
	case !debugAuth:
		return WarningDebugUnprotected
	default:
		return WarningNone
	}
}

func findAccount(accts []UserAccount, username string) (UserAccount, bool) {
	for _, a := range accts {
		if a.Username == username {
			return a, true
		}
	}
	return UserAccount{}, false
}

func hasOtherActive(accts []UserAccount) bool {
	for _, a := range accts {
		if a.Username != AdminUsername && a.IsActive {
			return true
		}
	}
	return false
}
