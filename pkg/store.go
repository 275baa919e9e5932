package clerk

type Store interface {
	// SaveSnapshot atomically replaces the stored snapshot with snap.
	// Only complete scans are saved; a failed or cancelled scan never reaches the store.
	SaveSnapshot(snap Snapshot) error
	// LatestSnapshot returns the most recently saved snapshot (NotFound if none).
	LatestSnapshot() (Snapshot, error)
	// ListScans returns summaries of saved scans, newest first.
	ListScans(limit int) ([]ScanRecord, error)
	// Close releases the underlying database.
	Close()
}
