package app

import (
	"context"
	"errors"
	"os"

	"cfgsync-go/internal/cfgsync"
)

// Environment variables recognized by Bootstrap. These are set by the
// deployment environment to pre-seed configuration on first run.
const (
	EnvGitRepo     = "DX_EXT_CFG_GIT_REPO"
	EnvGitToken    = "DX_EXT_CFG_GIT_TOKEN"
	EnvGitUser     = "DX_EXT_CFG_GIT_USER"
	EnvGitBranch   = "DX_EXT_CFG_GIT_BRANCH"
	EnvGUIUser     = "DX_EXT_GUI_USER"
	EnvGUIPassword = "DX_EXT_GUI_PASSWORD"
	EnvAccountCode = "DX_ENV_OU_GSMA_CODE"
)

var bootstrapEnvVars = []string{
	EnvGitRepo, EnvGitToken, EnvGitUser, EnvGitBranch,
	EnvGUIUser, EnvGUIPassword, EnvAccountCode,
}

// BootstrapReport describes what a Bootstrap run seeded.
type BootstrapReport struct {
	Seeded   []string // sections seeded from the environment
	Skipped  []string // sections skipped with a reason logged
	Outcome  cfgsync.Outcome
	Step     cfgsync.Step
	Ready    bool
	Ran      bool // false when nothing relevant was set
	Creating bool // a GUI account was created
}

// BootstrapEnv collects the recognized environment variables into a map.
// Unset variables are absent from the result.
func BootstrapEnv() map[string]string {
	env := make(map[string]string)
	for _, k := range bootstrapEnvVars {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			env[k] = v
		}
	}
	return env
}

// Bootstrap pre-seeds configuration sections from the deployment
// environment. It only runs when the configuration does not yet exist:
// a configured installation is never overwritten by a restart with stale
// environment variables.
//
// All satisfied sections are pushed in a single update so that a remote
// outage part-way through cannot leave a half-seeded remote document.
// An invalid account code skips the account sections but does not block
// the rest.
func (a *App) Bootstrap(ctx context.Context, env map[string]string) (*BootstrapReport, error) {
	report := &BootstrapReport{}
	if len(env) == 0 {
		return report, nil
	}

	exists, err := a.reconciler.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		a.logger.Info("configuration already exists, skipping environment bootstrap")
		return report, nil
	}
	report.Ran = true

	patch := &cfgsync.SectionPatch{EditedSections: map[string]bool{}}

	if code, ok := env[EnvAccountCode]; ok {
		normalized, nerr := cfgsync.NormalizeAccountCode(code)
		if nerr != nil {
			a.logger.Warn("ignoring invalid account code from environment", "error", nerr)
			report.Skipped = append(report.Skipped, cfgsync.SectionExtension)
		} else {
			appSec := cfgsync.DefaultDocument().App
			appSec.AccountCode = normalized
			patch.App = &appSec
			patch.EditedSections[cfgsync.SectionExtension] = true
			report.Seeded = append(report.Seeded, cfgsync.SectionExtension)
		}
	}

	if repo, ok := env[EnvGitRepo]; ok {
		gh := cfgsync.GitHubSettings{
			RepositoryURL: repo,
			Token:         env[EnvGitToken],
			BranchName:    env[EnvGitBranch],
		}
		if gh.BranchName == "" {
			gh.BranchName = "main"
		}
		patch.GitHub = &gh
		patch.EditedSections[cfgsync.SectionGitHub] = true
		report.Seeded = append(report.Seeded, cfgsync.SectionGitHub)
	}

	// The backend step is earned by a live check, not by declaration.
	if perr := a.reconciler.Ping(ctx); perr == nil {
		patch.EditedSections[cfgsync.SectionBackend] = true
		report.Seeded = append(report.Seeded, cfgsync.SectionBackend)
	} else {
		a.logger.Warn("backend unreachable during bootstrap", "error", perr)
		report.Skipped = append(report.Skipped, cfgsync.SectionBackend)
	}

	if user, ok := env[EnvGUIUser]; ok {
		pass := env[EnvGUIPassword]
		if pass == "" {
			a.logger.Warn("GUI user set without a password, skipping account creation")
			report.Skipped = append(report.Skipped, cfgsync.SectionUsers)
		} else if _, cerr := a.accounts.Create(ctx, user, pass); cerr != nil {
			if errors.Is(cerr, cfgsync.ErrValidationRejected) {
				return nil, cerr
			}
			a.logger.Warn("account creation failed during bootstrap", "error", cerr)
			report.Skipped = append(report.Skipped, cfgsync.SectionUsers)
		} else {
			report.Creating = true
			patch.EditedSections[cfgsync.SectionUsers] = true
			report.Seeded = append(report.Seeded, cfgsync.SectionUsers)
		}
	}

	if patch.IsZero() {
		return report, nil
	}

	res, err := a.reconciler.Update(ctx, patch)
	if err != nil {
		return nil, err
	}
	report.Outcome = res.Outcome

	a.gate.Recompute(res.Document.EditedSections)
	a.recordSetupComplete()
	report.Step = a.gate.Step()
	report.Ready = a.gate.Ready()

	a.logger.Info("environment bootstrap complete",
		"seeded", len(report.Seeded), "outcome", res.Outcome.String())
	return report, nil
}
