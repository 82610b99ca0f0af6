package cfgsync_test

import (
	"testing"

	"cfgsync-go/internal/cfgsync"
)

func TestReadinessGate_Recompute(t *testing.T) {
	edited := func(sections ...string) map[string]bool {
		m := make(map[string]bool)
		for _, s := range sections {
			m[s] = true
		}
		return m
	}

	t.Run("steps are presented in fixed order", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()

		if got := g.Recompute(edited()); got != cfgsync.StepExtension {
			t.Errorf("Recompute() = %v, want extension", got)
		}
		if got := g.Recompute(edited(cfgsync.SectionExtension)); got != cfgsync.StepBackend {
			t.Errorf("Recompute() = %v, want backend", got)
		}
		if got := g.Recompute(edited(cfgsync.SectionExtension, cfgsync.SectionBackend)); got != cfgsync.StepApp {
			t.Errorf("Recompute() = %v, want app", got)
		}
		if got := g.Recompute(edited(cfgsync.SectionExtension, cfgsync.SectionBackend, cfgsync.SectionApp)); got != cfgsync.StepUsers {
			t.Errorf("Recompute() = %v, want users", got)
		}
		if g.Ready() {
			t.Error("gate should not be ready with required steps left")
		}
		if g.Surface() != cfgsync.SurfaceSetupWizard {
			t.Error("expected setup wizard surface")
		}
	})

	t.Run("out-of-order completion still presents the first gap", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		got := g.Recompute(edited(cfgsync.SectionUsers, cfgsync.SectionBackend))
		if got != cfgsync.StepExtension {
			t.Errorf("Recompute() = %v, want extension", got)
		}
	})

	t.Run("security step is advisory", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		got := g.Recompute(edited(cfgsync.RequiredSections...))
		if got != cfgsync.StepSecurity {
			t.Errorf("Recompute() = %v, want security", got)
		}
		if !g.Ready() {
			t.Error("gate should be ready without the security step")
		}
		if g.Surface() != cfgsync.SurfaceMain {
			t.Error("expected main surface")
		}
	})

	t.Run("all sections including security reach ready", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		all := edited(cfgsync.RequiredSections...)
		all[cfgsync.SectionSecurity] = true
		if got := g.Recompute(all); got != cfgsync.StepReady {
			t.Errorf("Recompute() = %v, want ready", got)
		}
	})

	t.Run("ready latches for the session", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		g.Recompute(edited(cfgsync.RequiredSections...))
		if !g.Ready() {
			t.Fatal("expected ready")
		}

		// A later recompute with fewer flags must not regress the gate.
		g.Recompute(edited())
		if !g.Ready() {
			t.Error("ready state regressed")
		}
	})

	t.Run("completing security after ready advances the presented step", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		if got := g.Recompute(edited(cfgsync.RequiredSections...)); got != cfgsync.StepSecurity {
			t.Fatalf("Recompute() = %v, want security", got)
		}

		all := edited(cfgsync.RequiredSections...)
		all[cfgsync.SectionSecurity] = true
		if got := g.Recompute(all); got != cfgsync.StepReady {
			t.Errorf("Recompute() = %v, want ready", got)
		}
		if !g.Ready() {
			t.Error("ready state lost while advancing the step")
		}
	})

	t.Run("reset returns to unconfigured", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		g.Recompute(edited(cfgsync.RequiredSections...))
		g.Reset()
		if g.Ready() {
			t.Error("expected not ready after reset")
		}
		if g.Step() != cfgsync.StepUnconfigured {
			t.Errorf("Step() = %v, want unconfigured", g.Step())
		}
	})
}

func TestReadinessGate_PageAvailable(t *testing.T) {
	edited := map[string]bool{}
	for _, s := range cfgsync.RequiredSections {
		edited[s] = true
	}

	t.Run("nothing is available before ready", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		if g.PageAvailable("dashboard", cfgsync.WarningNone) {
			t.Error("page available before ready")
		}
	})

	t.Run("diagnostic pages need a clear warning", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		g.Recompute(edited)

		for _, page := range []string{cfgsync.PagePredictionTesting, cfgsync.PageLogViewer} {
			if g.PageAvailable(page, cfgsync.WarningAdminEnabled) {
				t.Errorf("%s available with an active warning", page)
			}
			if !g.PageAvailable(page, cfgsync.WarningNone) {
				t.Errorf("%s unavailable with a clear warning", page)
			}
		}
	})

	t.Run("other pages ignore the warning", func(t *testing.T) {
		g := cfgsync.NewReadinessGate()
		g.Recompute(edited)
		if !g.PageAvailable("dashboard", cfgsync.WarningAdminAndDebug) {
			t.Error("non-diagnostic page blocked by warning")
		}
	})
}
