package cfgsync

import (
	"fmt"
	"regexp"
	"strings"
)

// Section names used as keys in the edited-sections map. These are fixed;
// the remote service rejects unknown names.
const (
	SectionExtension = "extension"
	SectionBackend   = "backend"
	SectionApp       = "app"
	SectionUsers     = "users"
	SectionSecurity  = "security"
	SectionLogging   = "logging"
	SectionGitHub    = "github"
)

// RequiredSections are the setup steps that must be completed, in order,
// before the main application surface becomes reachable.
var RequiredSections = []string{SectionExtension, SectionBackend, SectionApp, SectionUsers}

// AllSections lists every valid section name.
var AllSections = []string{
	SectionExtension, SectionBackend, SectionApp, SectionUsers,
	SectionSecurity, SectionLogging, SectionGitHub,
}

// AppSettings holds the application section of the configuration document.
type AppSettings struct {
	PredictionURL string `json:"predictionUrl"`
	AccountCode   string `json:"accountCode"`
}

// LoggingSettings holds the logging section.
type LoggingSettings struct {
	FileLocation string `json:"fileLocation"`
	MaxEntries   int    `json:"maxEntries"`
}

// SecuritySettings holds the security section. AdminPasswordHash is opaque
// server state and is never populated on the client side.
type SecuritySettings struct {
	AdminUserDisabled bool   `json:"adminUserDisabled"`
	DebugRequiresAuth bool   `json:"debugRequiresAuth"`
	AdminUsername     string `json:"adminUsername"`
	AdminPasswordHash string `json:"adminPasswordHash,omitempty"`
}

// GitHubSettings holds the version-control sync section. Token is write-only:
// it is sent upstream but the remote never returns it on a read.
type GitHubSettings struct {
	Token         string   `json:"token,omitempty"`
	RepositoryURL string   `json:"repositoryUrl"`
	BranchName    string   `json:"branchName"`
	LocalPath     string   `json:"localPath"`
	FilesToSync   []string `json:"filesToSync"`
}

// ConfigDocument is the section-partitioned configuration for the admin
// console. A single document exists per installation; it is created once and
// mutated in place by partial updates for the rest of the application's life.
type ConfigDocument struct {
	App            AppSettings     `json:"app"`
	Logging        LoggingSettings `json:"logging"`
	Security       SecuritySettings `json:"security"`
	GitHub         GitHubSettings  `json:"github"`
	EditedSections map[string]bool `json:"editedSections"`
}

// DefaultDocument returns the hard-coded default configuration used when
// neither the remote store nor the fallback cache has a document.
func DefaultDocument() *ConfigDocument {
	edited := make(map[string]bool, len(AllSections))
	for _, s := range AllSections {
		edited[s] = false
	}
	return &ConfigDocument{
		App: AppSettings{
			PredictionURL: "/api",
		},
		Logging: LoggingSettings{
			FileLocation: "./app_data/logs/predictions.log",
			MaxEntries:   50000,
		},
		GitHub: GitHubSettings{
			BranchName: "main",
		},
		EditedSections: edited,
	}
}

// Clone returns a deep copy of the document. The copy shares no mutable
// state with the original.
func (d *ConfigDocument) Clone() *ConfigDocument {
	cp := *d
	cp.EditedSections = make(map[string]bool, len(d.EditedSections))
	for k, v := range d.EditedSections {
		cp.EditedSections[k] = v
	}
	if d.GitHub.FilesToSync != nil {
		cp.GitHub.FilesToSync = append([]string(nil), d.GitHub.FilesToSync...)
	}
	return &cp
}

// StripGitHubToken returns a copy of the document with the GitHub token
// removed, suitable for writing to the fallback cache. The token is held
// separately in a sealed slot so it never reaches disk in plaintext.
func (d *ConfigDocument) StripGitHubToken() *ConfigDocument {
	cp := d.Clone()
	cp.GitHub.Token = ""
	return cp
}

// GitHubReady reports whether the github section is complete enough for the
// external sync-pull/sync-push collaborators to operate.
func (d *ConfigDocument) GitHubReady() bool {
	gh := d.GitHub
	return gh.Token != "" && gh.RepositoryURL != "" && gh.BranchName != "" && gh.LocalPath != ""
}

var accountCodeRe = regexp.MustCompile(`^[A-Za-z0-9]{3}$`)

// NormalizeAccountCode validates and uppercases an account code. The code
// must be exactly three alphanumeric characters. Validation happens on the
// client before any network call is made.
func NormalizeAccountCode(code string) (string, error) {
	if !accountCodeRe.MatchString(code) {
		return "", fmt.Errorf("account code %q must be exactly 3 alphanumeric characters: %w", code, ErrInvariantViolation)
	}
	return strings.ToUpper(code), nil
}

// ValidSection reports whether name is one of the fixed section names.
func ValidSection(name string) bool {
	for _, s := range AllSections {
		if s == name {
			return true
		}
	}
	return false
}

// SectionPatch is a partial update to the configuration document. Each
// section field is a tagged-union arm: nil means unchanged, non-nil replaces
// the whole section. EditedSections entries are merged monotonically, never
// cleared.
type SectionPatch struct {
	App            *AppSettings     `json:"app,omitempty"`
	Logging        *LoggingSettings `json:"logging,omitempty"`
	Security       *SecuritySettings `json:"security,omitempty"`
	GitHub         *GitHubSettings  `json:"github,omitempty"`
	EditedSections map[string]bool  `json:"editedSections,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p *SectionPatch) IsZero() bool {
	return p.App == nil && p.Logging == nil && p.Security == nil &&
		p.GitHub == nil && len(p.EditedSections) == 0
}

// ApplyTo merges the patch into doc using shallow per-section replacement:
// a present section entirely replaces the old one, absent sections are
// preserved. Edited-section flags are only ever raised, never lowered.
func (p *SectionPatch) ApplyTo(doc *ConfigDocument) {
	if p.App != nil {
		doc.App = *p.App
	}
	if p.Logging != nil {
		doc.Logging = *p.Logging
	}
	if p.Security != nil {
		doc.Security = *p.Security
	}
	if p.GitHub != nil {
		gh := *p.GitHub
		if gh.FilesToSync != nil {
			gh.FilesToSync = append([]string(nil), gh.FilesToSync...)
		}
		doc.GitHub = gh
	}
	if doc.EditedSections == nil {
		doc.EditedSections = make(map[string]bool, len(AllSections))
	}
	for s, v := range p.EditedSections {
		if v {
			doc.EditedSections[s] = true
		}
	}
}
