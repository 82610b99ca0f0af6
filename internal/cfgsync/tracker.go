package cfgsync

import (
	"context"
	"errors"
	"fmt"
)

// EditedSectionTracker keeps the edited-section flags consistent across the
// remote document and the fallback cache. Flags are monotonic: once a
// section has been completed it is never reported as not-edited again,
// regardless of network blips. Only a factory reset clears them.
type EditedSectionTracker struct {
	remote RemoteStore
	cache  FallbackCache
	logger Logger
}

// NewEditedSectionTracker creates a tracker over the given stores.
func NewEditedSectionTracker(remote RemoteStore, cache FallbackCache, logger Logger) *EditedSectionTracker {
	return &EditedSectionTracker{remote: remote, cache: cache, logger: logger}
}

// MarkEdited raises the flag for a section in both representations. The
// local flag is set first: if the remote write then fails, the section is
// still recorded as edited and the outcome is Degraded. The upstream copy
// catches up through the write-back on the next load.
func (t *EditedSectionTracker) MarkEdited(ctx context.Context, section string) (Outcome, error) {
	if !ValidSection(section) {
		return OutcomeSuccess, fmt.Errorf("unknown section %q: %w", section, ErrInvariantViolation)
	}

	if err := t.cache.MarkEdited(section); err != nil {
		return OutcomeSuccess, fmt.Errorf("caching edited flag: %w", err)
	}

	_, err := t.remote.Update(ctx, &SectionPatch{EditedSections: map[string]bool{section: true}})
	if err == nil {
		return OutcomeSuccess, nil
	}
	if errors.Is(err, ErrRemoteUnavailable) {
		// Keep the fallback record's view converged too, when one exists.
		rec, rerr := t.cache.Record()
		if rerr == nil && rec != nil {
			rec.EditedSections[section] = true
			if serr := t.cache.StoreRecord(rec); serr != nil {
				t.logger.Warn("updating fallback record failed", "section", section, "error", serr)
			}
		}
		t.logger.Warn("edited flag cached locally, remote unreachable", "section", section)
		return OutcomeDegraded, nil
	}
	return OutcomeSuccess, err
}

// ReconcileOnLoad merges the locally cached flags into a freshly loaded
// remote document as a per-section boolean OR. If the union carries flags
// the remote does not have, the union is written back upstream; failure of
// that write-back is non-fatal and retried on the next load.
func (t *EditedSectionTracker) ReconcileOnLoad(ctx context.Context, doc *ConfigDocument) {
	local, err := t.cache.EditedSections()
	if err != nil {
		t.logger.Warn("reading cached edited flags failed", "error", err)
		return
	}
	if doc.EditedSections == nil {
		doc.EditedSections = make(map[string]bool, len(AllSections))
	}

	dirty := false
	for s, v := range local {
		if v && !doc.EditedSections[s] {
			doc.EditedSections[s] = true
			dirty = true
		}
	}

	// Persist remote-only flags locally so both sides converge.
	for s, v := range doc.EditedSections {
		if v && !local[s] {
			if merr := t.cache.MarkEdited(s); merr != nil {
				t.logger.Warn("caching edited flag failed", "section", s, "error", merr)
			}
		}
	}

	if !dirty {
		return
	}
	union := make(map[string]bool)
	for s, v := range doc.EditedSections {
		if v {
			union[s] = true
		}
	}
	if _, werr := t.remote.Update(ctx, &SectionPatch{EditedSections: union}); werr != nil {
		t.logger.Warn("edited-section write-back failed, will retry on next load", "error", werr)
	}
}

// mergeLocal ORs the locally cached flags into doc without touching the
// remote. Used for default and fallback documents.
func (t *EditedSectionTracker) mergeLocal(doc *ConfigDocument) {
	local, err := t.cache.EditedSections()
	if err != nil {
		t.logger.Warn("reading cached edited flags failed", "error", err)
		return
	}
	if doc.EditedSections == nil {
		doc.EditedSections = make(map[string]bool, len(AllSections))
	}
	for s, v := range local {
		if v {
			doc.EditedSections[s] = true
		}
	}
}
