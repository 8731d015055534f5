package playlist

// SyncState represents the cloud-sync state of a single playlist.
type SyncState int

const (
	SyncStateUnsynced         SyncState = iota // Local changes not yet pushed
	SyncStateSyncing                           // Sync request in flight
	SyncStateSynced                            // Local and cloud copies agree
	SyncStateConflictResolved                  // Both sides diverged; one full version won
	SyncStateSyncFailed                        // Last sync attempt failed
)

// String returns the string representation of the sync state.
func (s SyncState) String() string {
	switch s {
	case SyncStateUnsynced:
		return "unsynced"
	case SyncStateSyncing:
		return "syncing"
	case SyncStateSynced:
		return "synced"
	case SyncStateConflictResolved:
		return "conflict_resolved"
	case SyncStateSyncFailed:
		return "sync_failed"
	default:
		return "unknown"
	}
}
