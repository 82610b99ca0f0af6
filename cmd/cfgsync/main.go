package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"cfgsync-go/internal/app"
	"cfgsync-go/internal/cfgsync"
	"cfgsync-go/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Status", "Bootstrap").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation, cfgsync.UUIDGenerator{})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "cfgsync",
	Short: "Configuration reconciliation client",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage client configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize client configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		clientID := uuid.New().String()
		cfg := config.NewConfig(clientID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Client ID: %s\n", clientID)
		fmt.Printf("Base Dir:  %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View client configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Client ID: %s\n", cfg.ClientID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Remote:    %s\n", cfg.Remote.Type)
		fmt.Printf("Cache:     %s\n", cfg.Cache.Type)
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View readiness and security status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Status(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("Configured:     %v\n", report.Exists)
		fmt.Printf("Outcome:        %s\n", report.Outcome)
		fmt.Printf("Step:           %s\n", report.Step)
		fmt.Printf("Ready:          %v\n", report.Ready)
		fmt.Printf("Setup complete: %v\n", report.SetupComplete)
		fmt.Printf("GitHub ready:   %v\n", report.GitHubReady)
		if report.Security.PartialSync {
			fmt.Println("Partial sync:   admin account state lags the configured flag")
		}
		if report.Security.Warning != cfgsync.WarningNone {
			fmt.Printf("Warning:        %s\n", report.Security.Warning)
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "View the configuration document",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Show")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Load(context.Background())
		if err != nil {
			return err
		}
		doc := res.Document

		if res.Outcome.Degraded() {
			fmt.Println("(remote unavailable, showing local fallback)")
		}
		fmt.Printf("Account code:   %s\n", doc.App.AccountCode)
		fmt.Printf("Prediction URL: %s\n", doc.App.PredictionURL)
		fmt.Printf("Log file:       %s (max %d entries)\n", doc.Logging.FileLocation, doc.Logging.MaxEntries)
		fmt.Printf("Admin disabled: %v\n", doc.Security.AdminUserDisabled)
		fmt.Printf("Debug auth:     %v\n", doc.Security.DebugRequiresAuth)
		if doc.GitHub.RepositoryURL != "" {
			fmt.Printf("Repository:     %s (%s)\n", doc.GitHub.RepositoryURL, doc.GitHub.BranchName)
		}

		var edited []string
		for _, s := range cfgsync.AllSections {
			if doc.EditedSections[s] {
				edited = append(edited, s)
			}
		}
		fmt.Printf("Edited:         %s\n", strings.Join(edited, ", "))
		return nil
	},
}

// bootstrap command
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Pre-seed configuration from the environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Bootstrap")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Bootstrap(context.Background(), app.BootstrapEnv())
		if err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}

		if !report.Ran {
			fmt.Println("Nothing to do.")
			return nil
		}
		fmt.Printf("Seeded:  %s\n", strings.Join(report.Seeded, ", "))
		if len(report.Skipped) > 0 {
			fmt.Printf("Skipped: %s\n", strings.Join(report.Skipped, ", "))
		}
		fmt.Printf("Step:    %s\n", report.Step)
		if report.Outcome.Degraded() {
			fmt.Println("Remote unavailable; changes recorded locally for later sync.")
		}
		return nil
	},
}

// mark command
var markCmd = &cobra.Command{
	Use:   "mark SECTION",
	Short: "Record a setup section as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MarkEdited")
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.MarkEdited(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Marked %s (%s)\n", args[0], out)
		return nil
	},
}

// set command
var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Update configuration values",
}

var setAccountCodeCmd = &cobra.Command{
	Use:   "account-code CODE",
	Short: "Set the three-character account code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetAccountCode")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.SetAccountCode(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Account code set to %s (%s)\n", res.Document.App.AccountCode, res.Outcome)
		return nil
	},
}

var setPredictionURLCmd = &cobra.Command{
	Use:   "prediction-url URL",
	Short: "Set the backend prediction endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetPredictionURL")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.SetPredictionURL(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Prediction URL set (%s)\n", res.Outcome)
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check backend connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("VerifyBackend")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.VerifyBackend(context.Background()); err != nil {
			return fmt.Errorf("backend check failed: %w", err)
		}
		fmt.Println("Backend reachable.")
		return nil
	},
}

// account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage user accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create USERNAME",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Password: ")
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}

		a, err := newApp("CreateAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CreateAccount(context.Background(), args[0], string(pw)); err != nil {
			return fmt.Errorf("creating account: %w", err)
		}
		fmt.Printf("Account %s created.\n", args[0])
		return nil
	},
}

// github command
var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Manage version-control sync settings",
}

var githubSetCmd = &cobra.Command{
	Use:   "set REPO_URL",
	Short: "Set the sync repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, _ := cmd.Flags().GetString("branch")
		localPath, _ := cmd.Flags().GetString("path")

		fmt.Print("Token (leave empty to keep current): ")
		token, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}

		a, err := newApp("SetGitHub")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.SetGitHub(context.Background(), cfgsync.GitHubSettings{
			RepositoryURL: args[0],
			Token:         string(token),
			BranchName:    branch,
			LocalPath:     localPath,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Repository set (%s)\n", res.Outcome)
		return nil
	},
}

// security command
var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Manage the admin account and debug access",
}

var securityDisableAdminCmd = &cobra.Command{
	Use:   "disable-admin",
	Short: "Disable the built-in admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DisableAdmin")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.SetAdminDisabled(context.Background(), true)
		if err != nil {
			return err
		}
		fmt.Println("Admin account disabled.")
		if st.PartialSync {
			fmt.Println("Note: the live account state could not be updated; it will be repaired on the next check.")
		}
		return nil
	},
}

var securityEnableAdminCmd = &cobra.Command{
	Use:   "enable-admin",
	Short: "Re-enable the built-in admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("EnableAdmin")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.SetAdminDisabled(context.Background(), false)
		if err != nil {
			return err
		}
		fmt.Println("Admin account enabled.")
		if st.Warning != cfgsync.WarningNone {
			fmt.Printf("Warning: %s\n", st.Warning)
		}
		return nil
	},
}

var securityDebugAuthCmd = &cobra.Command{
	Use:   "debug-auth on|off",
	Short: "Require authentication for diagnostic pages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var v bool
		switch args[0] {
		case "on":
			v = true
		case "off":
			v = false
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}

		a, err := newApp("SetDebugRequiresAuth")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.SetDebugRequiresAuth(context.Background(), v)
		if err != nil {
			return err
		}
		fmt.Printf("Debug authentication %s.\n", args[0])
		if st.Warning != cfgsync.WarningNone {
			fmt.Printf("Warning: %s\n", st.Warning)
		}
		return nil
	},
}

// reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Factory-reset the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return fmt.Errorf("refusing to reset without --force")
		}

		a, err := newApp("Reset")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Reset(context.Background()); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		fmt.Println("Configuration reset to defaults.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// set subcommands
	setCmd.AddCommand(setAccountCodeCmd)
	setCmd.AddCommand(setPredictionURLCmd)

	// account subcommands
	accountCmd.AddCommand(accountCreateCmd)

	// github subcommands
	githubCmd.AddCommand(githubSetCmd)
	githubSetCmd.Flags().String("branch", "main", "Branch to sync")
	githubSetCmd.Flags().String("path", "", "Local checkout path")

	// security subcommands
	securityCmd.AddCommand(securityDisableAdminCmd)
	securityCmd.AddCommand(securityEnableAdminCmd)
	securityCmd.AddCommand(securityDebugAuthCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(githubCmd)
	rootCmd.AddCommand(securityCmd)
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolP("force", "f", false, "Skip the confirmation requirement")
}
