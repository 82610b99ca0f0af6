package app

import (
	"context"
	"fmt"
	"os"

	"cfgsync-go/internal/cache"
	"cfgsync-go/internal/cfgsync"
	"cfgsync-go/internal/config"
	"cfgsync-go/internal/remote"
	"cfgsync-go/internal/secrets"
)

// App is the application layer between the CLI and the reconciliation
// subsystem. It constructs all dependencies from config, exposes high-level
// operations, and manages the cache lifecycle on Close.
type App struct {
	cfg        *config.Config
	cache      cfgsync.FallbackCache
	remote     cfgsync.RemoteStore
	accounts   cfgsync.AccountDirectory
	reconciler *cfgsync.Reconciler
	enforcer   *cfgsync.SecurityEnforcer
	gate       *cfgsync.ReadinessGate
	logger     cfgsync.Logger
	logFile    *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Status", "Bootstrap") and
// tags every log record of the run. The caller must call Close when done.
func NewApp(cfg *config.Config, operation string, idgen cfgsync.IDGenerator) (*App, error) {
	ctx := context.Background()

	store, err := remote.NewRemoteStoreFromConfig(ctx, cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("creating remote store: %w", err)
	}

	accounts, err := remote.NewAccountDirectoryFromConfig(cfg.Accounts)
	if err != nil {
		return nil, fmt.Errorf("creating account directory: %w", err)
	}

	fc, err := cache.NewCacheFromConfig(cfg.Cache, cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("creating fallback cache: %w", err)
	}

	id := idgen.New()
	if len(id) > 8 {
		id = id[:8]
	}
	opID := fmt.Sprintf("%s-%s", operation, id)
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		fc.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	sealer := secrets.NewAgeSealer(cfg.Secrets.KeyPath)
	reconciler := cfgsync.NewReconciler(store, fc, sealer, logger)
	enforcer := cfgsync.NewSecurityEnforcer(reconciler, accounts, fc, logger)

	return &App{
		cfg:        cfg,
		cache:      fc,
		remote:     store,
		accounts:   accounts,
		reconciler: reconciler,
		enforcer:   enforcer,
		gate:       cfgsync.NewReadinessGate(),
		logger:     logger,
		logFile:    logFile,
	}, nil
}

// Close releases the cache and the log file.
func (a *App) Close() error {
	if a.logFile != nil {
		a.logFile.Close()
	}
	return a.cache.Close()
}

// StatusReport summarizes the subsystem state for the CLI.
type StatusReport struct {
	Exists        bool
	Outcome       cfgsync.Outcome
	Step          cfgsync.Step
	Ready         bool
	Surface       cfgsync.Surface
	Security      cfgsync.SecurityStatus
	GitHubReady   bool
	SetupComplete bool
}

// Status loads the configuration, re-derives the readiness gate and the
// security status, and reports the combined state.
func (a *App) Status(ctx context.Context) (*StatusReport, error) {
	exists, err := a.reconciler.Exists(ctx)
	if err != nil {
		return nil, err
	}

	res, err := a.reconciler.Load(ctx)
	if err != nil {
		return nil, err
	}
	doc := res.Document

	a.gate.Recompute(doc.EditedSections)
	sec := a.enforcer.Refresh(ctx, doc)
	a.recordSetupComplete()

	setup, serr := a.cache.SetupComplete()
	if serr != nil {
		a.logger.Warn("reading setup marker failed", "error", serr)
	}

	return &StatusReport{
		Exists:        exists,
		Outcome:       res.Outcome,
		Step:          a.gate.Step(),
		Ready:         a.gate.Ready(),
		Surface:       a.gate.Surface(),
		Security:      sec,
		GitHubReady:   doc.GitHubReady(),
		SetupComplete: setup,
	}, nil
}

// Load returns the current configuration document with its outcome tag,
// re-deriving the gate and security status along the way.
func (a *App) Load(ctx context.Context) (*cfgsync.Result, error) {
	res, err := a.reconciler.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.gate.Recompute(res.Document.EditedSections)
	a.enforcer.Refresh(ctx, res.Document)
	a.recordSetupComplete()
	return res, nil
}

// SetAccountCode validates, uppercases and stores the account code. The
// code is checked on the client before any network call; an invalid code
// changes nothing.
func (a *App) SetAccountCode(ctx context.Context, code string) (*cfgsync.Result, error) {
	normalized, err := cfgsync.NormalizeAccountCode(code)
	if err != nil {
		return nil, err
	}

	res, err := a.reconciler.Load(ctx)
	if err != nil {
		return nil, err
	}
	appSec := res.Document.App
	appSec.AccountCode = normalized

	upd, err := a.reconciler.Update(ctx, &cfgsync.SectionPatch{
		App:            &appSec,
		EditedSections: map[string]bool{cfgsync.SectionExtension: true},
	})
	if err != nil {
		return nil, err
	}
	a.gate.Recompute(upd.Document.EditedSections)
	a.recordSetupComplete()
	return upd, nil
}

// SetPredictionURL stores the backend prediction endpoint and completes the
// app step.
func (a *App) SetPredictionURL(ctx context.Context, url string) (*cfgsync.Result, error) {
	res, err := a.reconciler.Load(ctx)
	if err != nil {
		return nil, err
	}
	appSec := res.Document.App
	appSec.PredictionURL = url

	upd, err := a.reconciler.Update(ctx, &cfgsync.SectionPatch{
		App:            &appSec,
		EditedSections: map[string]bool{cfgsync.SectionApp: true},
	})
	if err != nil {
		return nil, err
	}
	a.gate.Recompute(upd.Document.EditedSections)
	a.recordSetupComplete()
	return upd, nil
}

// VerifyBackend pings the remote store and, on success, completes the
// backend step. An unreachable backend leaves the step unmet.
func (a *App) VerifyBackend(ctx context.Context) error {
	if err := a.reconciler.Ping(ctx); err != nil {
		return err
	}
	if _, err := a.reconciler.MarkEdited(ctx, cfgsync.SectionBackend); err != nil {
		return err
	}
	res, err := a.reconciler.Load(ctx)
	if err == nil {
		a.gate.Recompute(res.Document.EditedSections)
		a.recordSetupComplete()
	}
	return nil
}

// SetGitHub stores the version-control sync settings. The token travels
// upstream but is sealed before any local copy is kept. An empty token
// carries the currently stored one forward, so repository details can be
// changed without re-entering it.
func (a *App) SetGitHub(ctx context.Context, gh cfgsync.GitHubSettings) (*cfgsync.Result, error) {
	if gh.BranchName == "" {
		gh.BranchName = "main"
	}
	if gh.Token == "" {
		res, err := a.reconciler.Load(ctx)
		if err != nil {
			return nil, err
		}
		gh.Token = res.Document.GitHub.Token
	}
	upd, err := a.reconciler.Update(ctx, &cfgsync.SectionPatch{
		GitHub:         &gh,
		EditedSections: map[string]bool{cfgsync.SectionGitHub: true},
	})
	if err != nil {
		return nil, err
	}
	return upd, nil
}

// SetLogging stores the log file location and retention limit. MaxEntries
// must be positive.
func (a *App) SetLogging(ctx context.Context, lg cfgsync.LoggingSettings) (*cfgsync.Result, error) {
	if lg.MaxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be positive: %w", cfgsync.ErrInvariantViolation)
	}
	return a.reconciler.Update(ctx, &cfgsync.SectionPatch{
		Logging:        &lg,
		EditedSections: map[string]bool{cfgsync.SectionLogging: true},
	})
}

// CreateAccount registers a new account with the external directory and
// completes the users step.
func (a *App) CreateAccount(ctx context.Context, username, password string) error {
	if _, err := a.accounts.Create(ctx, username, password); err != nil {
		return err
	}
	if _, err := a.reconciler.MarkEdited(ctx, cfgsync.SectionUsers); err != nil {
		return err
	}
	res, err := a.reconciler.Load(ctx)
	if err == nil {
		a.gate.Recompute(res.Document.EditedSections)
		a.recordSetupComplete()
	}
	return nil
}

// MarkEdited records a setup section as completed.
func (a *App) MarkEdited(ctx context.Context, section string) (cfgsync.Outcome, error) {
	out, err := a.reconciler.MarkEdited(ctx, section)
	if err != nil {
		return out, err
	}
	if res, lerr := a.reconciler.Load(ctx); lerr == nil {
		a.gate.Recompute(res.Document.EditedSections)
		a.recordSetupComplete()
	}
	return out, nil
}

// SetAdminDisabled drives the admin-disable flag and the live account
// through the security enforcer.
func (a *App) SetAdminDisabled(ctx context.Context, disabled bool) (cfgsync.SecurityStatus, error) {
	st, err := a.enforcer.SetAdminDisabled(ctx, disabled)
	if err != nil {
		return st, err
	}
	if _, merr := a.reconciler.MarkEdited(ctx, cfgsync.SectionSecurity); merr != nil {
		a.logger.Warn("marking security section failed", "error", merr)
	}
	return st, nil
}

// SetDebugRequiresAuth drives the debug gate flag through the security
// enforcer.
func (a *App) SetDebugRequiresAuth(ctx context.Context, v bool) (cfgsync.SecurityStatus, error) {
	st, err := a.enforcer.SetDebugRequiresAuth(ctx, v)
	if err != nil {
		return st, err
	}
	if _, merr := a.reconciler.MarkEdited(ctx, cfgsync.SectionSecurity); merr != nil {
		a.logger.Warn("marking security section failed", "error", merr)
	}
	return st, nil
}

// Reset performs a factory reset of the remote document, the fallback
// cache and the readiness gate.
func (a *App) Reset(ctx context.Context) error {
	if err := a.reconciler.Reset(ctx); err != nil {
		return err
	}
	a.gate.Reset()
	a.logger.Info("factory reset complete")
	return nil
}

// recordSetupComplete latches the setup marker the first time the gate
// reaches ready.
func (a *App) recordSetupComplete() {
	if !a.gate.Ready() {
		return
	}
	done, err := a.cache.SetupComplete()
	if err != nil || done {
		return
	}
	if err := a.cache.SetSetupComplete(true); err != nil {
		a.logger.Warn("writing setup marker failed", "error", err)
	}
}
