package cfgsync

import (
	"context"
	"errors"
	"fmt"
)

// Reconciler orchestrates reads and writes across the authoritative remote
// store and the local fallback cache, and owns the merge policy between the
// two. Remote always wins when reachable; when only local data exists, the
// most recent local write wins. There is no conflict detection across
// clients — the fallback cache is a single-client shadow, not a distributed
// store.
type Reconciler struct {
	remote  RemoteStore
	cache   FallbackCache
	sealer  Sealer
	tracker *EditedSectionTracker
	logger  Logger
}

// NewReconciler creates a Reconciler. sealer may be nil, in which case the
// GitHub token is simply stripped before any cache write.
func NewReconciler(remote RemoteStore, cache FallbackCache, sealer Sealer, logger Logger) *Reconciler {
	return &Reconciler{
		remote:  remote,
		cache:   cache,
		sealer:  sealer,
		tracker: NewEditedSectionTracker(remote, cache, logger),
		logger:  logger,
	}
}

// Tracker returns the edited-section tracker sharing this reconciler's
// stores.
func (r *Reconciler) Tracker() *EditedSectionTracker { return r.tracker }

// Exists reports whether a configuration document exists. When the remote
// is unreachable, it answers from the fallback cache: true iff a fallback
// record is present.
func (r *Reconciler) Exists(ctx context.Context) (bool, error) {
	ok, err := r.remote.Exists(ctx)
	if err != nil {
		if errors.Is(err, ErrRemoteUnavailable) {
			has, cerr := r.cache.HasRecord()
			if cerr != nil {
				return false, fmt.Errorf("checking fallback record: %w", cerr)
			}
			r.logger.Warn("remote unreachable, answering exists from fallback cache", "exists", has)
			return has, nil
		}
		return false, err
	}
	return ok, nil
}

// Load returns the current configuration document. On a successful remote
// read the fallback record is discarded — the remote is known good again —
// and locally cached edited flags are reconciled into the result. On a
// network failure the fallback record (or a default document) is returned
// tagged Degraded so callers cannot mistake it for authoritative data.
func (r *Reconciler) Load(ctx context.Context) (*Result, error) {
	doc, err := r.remote.Load(ctx)
	switch {
	case err == nil:
		r.tracker.ReconcileOnLoad(ctx, doc)
		if derr := r.cache.DeleteRecord(); derr != nil {
			r.logger.Warn("discarding fallback record failed", "error", derr)
		}
		r.unsealToken(doc)
		return &Result{Document: doc, Outcome: OutcomeSuccess}, nil

	case errors.Is(err, ErrNotFound):
		// Remote reachable but nothing stored yet: serve defaults. The
		// fallback record is left alone; it is only cleared by a
		// successful read of a stored document or by Reset.
		doc = DefaultDocument()
		r.tracker.mergeLocal(doc)
		r.unsealToken(doc)
		return &Result{Document: doc, Outcome: OutcomeSuccess}, nil

	case errors.Is(err, ErrRemoteUnavailable):
		rec, cerr := r.cache.Record()
		if cerr != nil {
			return nil, fmt.Errorf("reading fallback record: %w", cerr)
		}
		if rec == nil {
			rec = DefaultDocument()
		}
		r.tracker.mergeLocal(rec)
		r.unsealToken(rec)
		r.logger.Warn("remote unreachable, serving fallback configuration")
		return &Result{Document: rec, Outcome: OutcomeDegraded}, nil

	default:
		return nil, err
	}
}

// Update applies a partial patch. On success the remote performs the merge
// and the fallback record is cleared. On a network failure the patch is
// merged into the fallback record (or a freshly faulted-in default) with
// shallow per-section replacement and the result is tagged Degraded. A
// validation refusal propagates unchanged and mutates nothing.
func (r *Reconciler) Update(ctx context.Context, patch *SectionPatch) (*Result, error) {
	doc, err := r.remote.Update(ctx, patch)
	if err == nil {
		if derr := r.cache.DeleteRecord(); derr != nil {
			r.logger.Warn("discarding fallback record failed", "error", derr)
		}
		if patch.GitHub != nil {
			r.mirrorToken(patch.GitHub.Token)
		}
		r.markLocal(patch.EditedSections)
		r.unsealToken(doc)
		return &Result{Document: doc, Outcome: OutcomeSuccess}, nil
	}
	if errors.Is(err, ErrRemoteUnavailable) {
		rec, cerr := r.cache.Record()
		if cerr != nil {
			return nil, fmt.Errorf("reading fallback record: %w", cerr)
		}
		if rec == nil {
			rec = DefaultDocument()
		}
		patch.ApplyTo(rec)
		if patch.GitHub != nil {
			r.mirrorToken(patch.GitHub.Token)
		}
		if serr := r.stash(rec); serr != nil {
			return nil, serr
		}
		r.markLocal(patch.EditedSections)
		r.unsealToken(rec)
		r.logger.Warn("remote unreachable, partial update cached locally")
		return &Result{Document: rec, Outcome: OutcomeDegraded}, nil
	}
	return nil, err
}

// Save replaces the whole document, with the same success/failure split as
// Update.
func (r *Reconciler) Save(ctx context.Context, doc *ConfigDocument) (*Result, error) {
	return r.putFull(ctx, doc, r.remote.Save)
}

// Replace is semantically identical to Save, retained for the compatibility
// surface of the older API.
func (r *Reconciler) Replace(ctx context.Context, doc *ConfigDocument) (*Result, error) {
	return r.putFull(ctx, doc, r.remote.Replace)
}

func (r *Reconciler) putFull(ctx context.Context, doc *ConfigDocument, put func(context.Context, *ConfigDocument) (*ConfigDocument, error)) (*Result, error) {
	stored, err := put(ctx, doc)
	if err == nil {
		if derr := r.cache.DeleteRecord(); derr != nil {
			r.logger.Warn("discarding fallback record failed", "error", derr)
		}
		r.mirrorToken(doc.GitHub.Token)
		r.markLocal(doc.EditedSections)
		r.unsealToken(stored)
		return &Result{Document: stored, Outcome: OutcomeSuccess}, nil
	}
	if errors.Is(err, ErrRemoteUnavailable) {
		rec := doc.Clone()
		r.mirrorToken(doc.GitHub.Token)
		if serr := r.stash(rec); serr != nil {
			return nil, serr
		}
		r.markLocal(doc.EditedSections)
		r.unsealToken(rec)
		r.logger.Warn("remote unreachable, full document cached locally")
		return &Result{Document: rec, Outcome: OutcomeDegraded}, nil
	}
	return nil, err
}

// MarkEdited raises a section's edited flag in both stores. See
// EditedSectionTracker.MarkEdited.
func (r *Reconciler) MarkEdited(ctx context.Context, section string) (Outcome, error) {
	return r.tracker.MarkEdited(ctx, section)
}

// Ping verifies that the remote store is reachable.
func (r *Reconciler) Ping(ctx context.Context) error {
	return r.remote.Ping(ctx)
}

// Reset performs a factory reset: the remote document and every local slot
// are removed. This is the only operation that lowers edited-section flags.
// Local state is cleared even when the remote delete fails, and the remote
// error is returned so the caller can retry.
func (r *Reconciler) Reset(ctx context.Context) error {
	remoteErr := r.remote.Delete(ctx)
	if remoteErr != nil && errors.Is(remoteErr, ErrNotFound) {
		remoteErr = nil
	}
	if cerr := r.cache.Reset(); cerr != nil {
		return fmt.Errorf("clearing fallback cache: %w", cerr)
	}
	if remoteErr != nil {
		return fmt.Errorf("deleting remote document: %w", remoteErr)
	}
	return nil
}

// stash writes doc to the fallback cache. The GitHub token never reaches
// the record in plaintext: the record is stored stripped and the token lives
// in its own sealed slot, kept in step by mirrorToken at the write sites.
func (r *Reconciler) stash(doc *ConfigDocument) error {
	if err := r.cache.StoreRecord(doc.StripGitHubToken()); err != nil {
		return fmt.Errorf("writing fallback record: %w", err)
	}
	return nil
}

// mirrorToken keeps the sealed slot in step with a github section write: a
// new token replaces the sealed copy, an empty one clears it. The slot is
// the only durable home the token has on this client: the remote treats it
// as write-only and the fallback record is stored stripped. Sealing is
// best-effort; a failure is logged and the token simply is not cached.
func (r *Reconciler) mirrorToken(token string) {
	if r.sealer == nil {
		return
	}
	if token == "" {
		if err := r.cache.SetSealedGitHubToken(""); err != nil {
			r.logger.Warn("clearing sealed github token failed", "error", err)
		}
		return
	}
	sealed, err := r.sealer.Seal(token)
	if err != nil {
		r.logger.Warn("sealing github token failed, token not cached", "error", err)
		return
	}
	if err := r.cache.SetSealedGitHubToken(sealed); err != nil {
		r.logger.Warn("storing sealed github token failed", "error", err)
	}
}

// unsealToken restores the GitHub token on a document about to be served.
// Loaded documents never carry the token on the wire, so without this the
// github section could never read as complete after the writing session.
func (r *Reconciler) unsealToken(doc *ConfigDocument) {
	if doc.GitHub.Token != "" || r.sealer == nil {
		return
	}
	sealed, err := r.cache.SealedGitHubToken()
	if err != nil {
		r.logger.Warn("reading sealed github token failed", "error", err)
		return
	}
	if sealed == "" {
		return
	}
	plain, err := r.sealer.Open(sealed)
	if err != nil {
		r.logger.Warn("unsealing github token failed", "error", err)
		return
	}
	doc.GitHub.Token = plain
}

// markLocal raises locally cached edited flags carried by a patch so both
// representations stay converged.
func (r *Reconciler) markLocal(edited map[string]bool) {
	for s, v := range edited {
		if !v {
			continue
		}
		if err := r.cache.MarkEdited(s); err != nil {
			r.logger.Warn("caching edited flag failed", "section", s, "error", err)
		}
	}
}
