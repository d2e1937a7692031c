package store

// DataStore is the write surface analysis results go through. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// analysis) implement it.
type DataStore interface {
	// InsertDiagnostic returns the assigned ID.
	InsertDiagnostic(d *Diagnostic) (int64, error)
	// FileByPath returns the committed record of a file, or nil.
	FileByPath(path string) (*File, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
