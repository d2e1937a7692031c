package store

import "sync"

// BatchedStore buffers the results of analysing one file in memory so
// workers never touch SQLite. The file record gets a fake (negative) ID
// that buffered diagnostics refer to; CommitBatch swaps in the real one.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// FileByPath is passed through to the underlying Store, which is safe for
// concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	File        *File
	Diagnostics []Diagnostic

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// SetFile buffers the file record the batch's diagnostics belong to and
// returns its fake ID.
func (b *BatchedStore) SetFile(f *File) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	f.ID = b.allocFakeID()
	b.File = f
	return f.ID
}

func (b *BatchedStore) InsertDiagnostic(d *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Diagnostics = append(b.Diagnostics, *d)
	return fakeID, nil
}

// FileByPath returns the buffered file when it has path, otherwise the
// committed record.
func (b *BatchedStore) FileByPath(path string) (*File, error) {
	b.mu.Lock()
	f := b.File
	b.mu.Unlock()
	if f != nil && f.Path == path {
		return f, nil
	}
	return b.store.FileByPath(path)
}
