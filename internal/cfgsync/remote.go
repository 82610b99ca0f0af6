package cfgsync

import "context"

// RemoteStore is the authoritative configuration store. Implementations
// wrap transport failures in ErrRemoteUnavailable, explicit write refusals
// in ErrValidationRejected, and a missing document in ErrNotFound.
type RemoteStore interface {
	// Exists reports whether a configuration document has been stored.
	Exists(ctx context.Context) (bool, error)

	// Load returns the stored document, or ErrNotFound if none exists.
	Load(ctx context.Context) (*ConfigDocument, error)

	// Save replaces the whole document and returns the stored result.
	Save(ctx context.Context, doc *ConfigDocument) (*ConfigDocument, error)

	// Update merges a partial patch into the stored document. The store
	// performs the merge; the client sends only changed sections.
	Update(ctx context.Context, patch *SectionPatch) (*ConfigDocument, error)

	// Replace is semantically identical to Save. It exists only for the
	// compatibility surface of the older API.
	Replace(ctx context.Context, doc *ConfigDocument) (*ConfigDocument, error)

	// Delete removes the stored document. Deleting an absent document is
	// not an error.
	Delete(ctx context.Context) error

	// Ping verifies that the store is reachable.
	Ping(ctx context.Context) error
}

// UserAccount is the external identity collaborator's view of an account.
// The configuration document never stores accounts; it only carries the
// admin-disable intent flag that must track the live admin account state.
type UserAccount struct {
	Username  string `json:"username"`
	IsActive  bool   `json:"is_active"`
	IsDefault bool   `json:"is_default"`
}

// AccountDirectory is the external user-account collaborator. Credential
// storage and verification are owned entirely by the remote service.
type AccountDirectory interface {
	// List returns all known accounts.
	List(ctx context.Context) ([]UserAccount, error)

	// ToggleActive flips an account's active flag and returns the updated
	// account. Returns ErrNotFound for an unknown username.
	ToggleActive(ctx context.Context, username string) (*UserAccount, error)

	// Create registers a new active account.
	Create(ctx context.Context, username, password string) (*UserAccount, error)
}
