package app

import "cfgsync-go/internal/cfgsync"

// RemoteStore exposes the wired remote store so tests can drive its
// availability.
func (a *App) RemoteStore() cfgsync.RemoteStore { return a.remote }
