package cfgsync

// FallbackCache is the client-local persistent store used when the remote
// is unreachable. It holds four slots: the fallback record (a shadow copy of
// the configuration document), the setup-completion marker, the legacy
// debug-requires-auth flag, and the edited-sections map.
//
// The fallback record has no independent lifecycle: it is written only when
// a remote write fails, read only when a remote read fails, and deleted on
// the next successful remote read or write.
type FallbackCache interface {
	// Record returns the fallback record, or nil if none is stored.
	Record() (*ConfigDocument, error)

	// StoreRecord writes the fallback record, replacing any previous one.
	StoreRecord(doc *ConfigDocument) error

	// DeleteRecord removes the fallback record. Removing an absent record
	// is not an error.
	DeleteRecord() error

	// HasRecord reports whether a fallback record is stored.
	HasRecord() (bool, error)

	// EditedSections returns the locally cached edited-section flags.
	// Absent sections read as false.
	EditedSections() (map[string]bool, error)

	// MarkEdited raises a section's edited flag. Flags are monotonic: no
	// operation other than Reset lowers one.
	MarkEdited(section string) error

	// SetupComplete reports whether setup has reached the ready state at
	// least once on this client.
	SetupComplete() (bool, error)

	// SetSetupComplete records the setup-completion marker.
	SetSetupComplete(v bool) error

	// LegacyDebugRequiresAuth returns the debug-gate flag from the prior
	// storage scheme. It is OR-ed with the document flag for backward
	// compatibility.
	LegacyDebugRequiresAuth() (bool, error)

	// SetLegacyDebugRequiresAuth mirrors the document's debug flag into
	// the legacy slot.
	SetLegacyDebugRequiresAuth(v bool) error

	// SealedGitHubToken returns the sealed token copy, or "" if none.
	SealedGitHubToken() (string, error)

	// SetSealedGitHubToken stores the sealed token copy.
	SetSealedGitHubToken(sealed string) error

	// Reset clears every slot. This is the only path that lowers edited
	// flags.
	Reset() error

	// Close releases the underlying store.
	Close() error
}

// Sealer protects secret values held in the fallback cache. Seal returns a
// ciphertext safe to persist; Open recovers the plaintext. Implementations
// pass unrecognized input through Open unchanged so plaintext values from
// older installations keep working.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}
