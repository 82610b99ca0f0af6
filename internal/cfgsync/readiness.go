package cfgsync

// Step is a state of the readiness gate's setup progression.
type Step int

const (
	StepUnconfigured Step = iota
	StepExtension
	StepBackend
	StepApp
	StepUsers
	StepSecurity
	StepReady
)

func (s Step) String() string {
	switch s {
	case StepUnconfigured:
		return "unconfigured"
	case StepExtension:
		return "extension"
	case StepBackend:
		return "backend"
	case StepApp:
		return "app"
	case StepUsers:
		return "users"
	case StepSecurity:
		return "security"
	case StepReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Surface is the application surface the gate currently exposes.
type Surface int

const (
	// SurfaceSetupWizard is presented while required setup steps remain.
	SurfaceSetupWizard Surface = iota

	// SurfaceMain is the main application, reachable once the gate is
	// ready. Individual pages may still be blocked by an active security
	// warning; the two gates are independent.
	SurfaceMain
)

func (s Surface) String() string {
	if s == SurfaceMain {
		return "main"
	}
	return "setup"
}

var stepForSection = map[string]Step{
	SectionExtension: StepExtension,
	SectionBackend:   StepBackend,
	SectionApp:       StepApp,
	SectionUsers:     StepUsers,
}

// ReadinessGate decides which setup step or application surface is
// currently reachable, derived from the edited-section flags. Once Ready is
// reached it is terminal for the session: the gate is only re-derived on a
// configuration load, and raised flags never regress short of a factory
// reset.
type ReadinessGate struct {
	step  Step
	ready bool
}

// NewReadinessGate returns a gate in the Unconfigured state.
func NewReadinessGate() *ReadinessGate {
	return &ReadinessGate{step: StepUnconfigured}
}

// Recompute derives the gate state from the edited-section flags and
// returns the resulting step. The first required section still false, in
// the fixed order extension → backend → app → users, becomes the presented
// step. The security step is advisory: it is presented once the required
// four are complete but does not block Ready.
func (g *ReadinessGate) Recompute(edited map[string]bool) Step {
	if g.ready {
		// The latch only prevents regression out of ready; completing the
		// advisory security step still advances the presented step.
		if edited[SectionSecurity] {
			g.step = StepReady
		}
		return g.step
	}

	for _, s := range RequiredSections {
		if !edited[s] {
			g.step = stepForSection[s]
			return g.step
		}
	}

	g.ready = true
	if !edited[SectionSecurity] {
		g.step = StepSecurity
	} else {
		g.step = StepReady
	}
	return g.step
}

// Ready reports whether all required setup steps are complete.
func (g *ReadinessGate) Ready() bool { return g.ready }

// Step returns the currently presented step.
func (g *ReadinessGate) Step() Step { return g.step }

// Surface returns the application surface the gate exposes.
func (g *ReadinessGate) Surface() Surface {
	if g.ready {
		return SurfaceMain
	}
	return SurfaceSetupWizard
}

// Reset returns the gate to Unconfigured. Only the explicit factory reset
// path calls this.
func (g *ReadinessGate) Reset() {
	g.step = StepUnconfigured
	g.ready = false
}

// Diagnostic page names gated by the security warning in addition to the
// readiness gate.
const (
	PagePredictionTesting = "prediction-testing"
	PageLogViewer         = "log-viewer"
)

// PageAvailable reports whether a page is reachable given the gate state
// and the current security warning. The diagnostic pages require both a
// ready gate and a clear warning; every other page only needs the gate.
func (g *ReadinessGate) PageAvailable(page string, warning SecurityWarning) bool {
	if !g.ready {
		return false
	}
	if page == PagePredictionTesting || page == PageLogViewer {
		return !warning.BlocksDiagnostics()
	}
	return true
}
