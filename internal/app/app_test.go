package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cfgsync-go/internal/app"
	"cfgsync-go/internal/cfgsync"
	"cfgsync-go/internal/config"
	"cfgsync-go/internal/testutil"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		ClientID: "test-client",
		BaseDir:  base,
		LogDir:   filepath.Join(base, "log"),
		Remote:   config.RemoteConfig{Type: "memory"},
		Accounts: config.AccountsConfig{Type: "memory"},
		Cache:    config.CacheConfig{Type: "memory"},
		Secrets:  config.SecretsConfig{KeyPath: filepath.Join(base, "keys", "test.key")},
	}

	a, err := app.NewApp(cfg, "Test", &testutil.SequenceIDGenerator{})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})
	return a
}

func TestApp_Status(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	report, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if report.Exists {
		t.Error("fresh installation reported as configured")
	}
	if report.Step != cfgsync.StepExtension {
		t.Errorf("Step = %v, want extension", report.Step)
	}
	if report.Ready || report.SetupComplete {
		t.Error("fresh installation reported as ready")
	}
	if report.Surface != cfgsync.SurfaceSetupWizard {
		t.Error("expected setup wizard surface")
	}
}

func TestApp_SetAccountCode(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code is uppercased and stored", func(t *testing.T) {
		a := newTestApp(t)

		res, err := a.SetAccountCode(ctx, "xy9")
		if err != nil {
			t.Fatalf("SetAccountCode() error = %v", err)
		}
		if res.Document.App.AccountCode != "XY9" {
			t.Errorf("AccountCode = %q, want %q", res.Document.App.AccountCode, "XY9")
		}
		if !res.Document.EditedSections[cfgsync.SectionExtension] {
			t.Error("extension section not marked edited")
		}
	})

	t.Run("invalid code is rejected before anything is written", func(t *testing.T) {
		a := newTestApp(t)

		_, err := a.SetAccountCode(ctx, "toolong")
		if !errors.Is(err, cfgsync.ErrInvariantViolation) {
			t.Fatalf("SetAccountCode() error = %v, want ErrInvariantViolation", err)
		}

		report, err := a.Status(ctx)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if report.Exists {
			t.Error("rejected code created a configuration")
		}
	})
}

func TestApp_SetupFlow(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	if _, err := a.SetAccountCode(ctx, "abc"); err != nil {
		t.Fatalf("SetAccountCode() error = %v", err)
	}
	if err := a.VerifyBackend(ctx); err != nil {
		t.Fatalf("VerifyBackend() error = %v", err)
	}
	if _, err := a.SetPredictionURL(ctx, "/api/v2"); err != nil {
		t.Fatalf("SetPredictionURL() error = %v", err)
	}

	report, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if report.Ready {
		t.Fatal("gate ready before the users step")
	}
	if report.Step != cfgsync.StepUsers {
		t.Errorf("Step = %v, want users", report.Step)
	}

	if err := a.CreateAccount(ctx, "operator", "hunter2"); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	report, err = a.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !report.Ready {
		t.Fatal("gate not ready after all required steps")
	}
	if report.Step != cfgsync.StepSecurity {
		t.Errorf("Step = %v, want the advisory security step", report.Step)
	}
	if report.Surface != cfgsync.SurfaceMain {
		t.Error("expected main surface")
	}
	if !report.SetupComplete {
		t.Error("setup marker not latched")
	}
}

func TestApp_SetGitHub(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	full := cfgsync.GitHubSettings{
		Token:         "ghp_first",
		RepositoryURL: "https://example.com/one.git",
		LocalPath:     "/srv/sync",
	}
	if _, err := a.SetGitHub(ctx, full); err != nil {
		t.Fatalf("SetGitHub() error = %v", err)
	}

	report, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !report.GitHubReady {
		t.Error("github not ready after a complete section")
	}

	// Changing repository details without re-entering the token keeps the
	// stored one.
	res, err := a.SetGitHub(ctx, cfgsync.GitHubSettings{
		RepositoryURL: "https://example.com/two.git",
		LocalPath:     "/srv/sync",
	})
	if err != nil {
		t.Fatalf("SetGitHub() error = %v", err)
	}
	if res.Document.GitHub.RepositoryURL != "https://example.com/two.git" {
		t.Errorf("RepositoryURL = %q, want the new repository", res.Document.GitHub.RepositoryURL)
	}
	if res.Document.GitHub.Token != "ghp_first" {
		t.Errorf("Token = %q, want the carried-forward token", res.Document.GitHub.Token)
	}

	report, err = a.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !report.GitHubReady {
		t.Error("github readiness lost by an update without a token")
	}
}

func TestApp_Security(t *testing.T) {
	ctx := context.Background()

	t.Run("disable admin requires another active account", func(t *testing.T) {
		a := newTestApp(t)

		_, err := a.SetAdminDisabled(ctx, true)
		if !errors.Is(err, cfgsync.ErrInvariantViolation) {
			t.Fatalf("SetAdminDisabled() error = %v, want ErrInvariantViolation", err)
		}
	})

	t.Run("disable admin succeeds with another account", func(t *testing.T) {
		a := newTestApp(t)
		if err := a.CreateAccount(ctx, "operator", "hunter2"); err != nil {
			t.Fatalf("CreateAccount() error = %v", err)
		}

		st, err := a.SetAdminDisabled(ctx, true)
		if err != nil {
			t.Fatalf("SetAdminDisabled() error = %v", err)
		}
		if !st.AdminUserDisabled {
			t.Error("status does not carry the new intent")
		}
	})

	t.Run("debug auth flag feeds the warning", func(t *testing.T) {
		a := newTestApp(t)
		if err := a.CreateAccount(ctx, "operator", "hunter2"); err != nil {
			t.Fatalf("CreateAccount() error = %v", err)
		}

		st, err := a.SetDebugRequiresAuth(ctx, true)
		if err != nil {
			t.Fatalf("SetDebugRequiresAuth() error = %v", err)
		}
		if st.Warning != cfgsync.WarningAdminEnabled {
			t.Errorf("Warning = %v, want admin enabled", st.Warning)
		}

		if _, err := a.SetAdminDisabled(ctx, true); err != nil {
			t.Fatalf("SetAdminDisabled() error = %v", err)
		}
		report, err := a.Status(ctx)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if report.Security.Warning != cfgsync.WarningNone {
			t.Errorf("Warning = %v, want none with both flags safe", report.Security.Warning)
		}
	})
}

func TestApp_Reset(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	if _, err := a.SetAccountCode(ctx, "abc"); err != nil {
		t.Fatalf("SetAccountCode() error = %v", err)
	}
	if err := a.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	report, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if report.Exists {
		t.Error("configuration survived the reset")
	}
	if report.Step != cfgsync.StepExtension {
		t.Errorf("Step = %v, want extension after reset", report.Step)
	}
	if report.Ready {
		t.Error("gate still ready after reset")
	}
}
