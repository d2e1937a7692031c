package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{
		Path:         path,
		Language:     "csharp",
		Hash:         "abc123",
		RulesetHash:  "rules1",
		LineCount:    12,
		LastAnalyzed: time.Now().Truncate(time.Second),
	}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func insertTestDiagnostic(t *testing.T, s *Store, fileID int64, ruleID string, offset int) *Diagnostic {
	t.Helper()
	d := &Diagnostic{
		FileID:      fileID,
		RuleID:      ruleID,
		Severity:    "warning",
		Message:     ruleID + " message",
		Args:        []string{"x"},
		StartOffset: offset,
		EndOffset:   offset + 1,
		StartLine:   offset / 10,
		StartCol:    offset % 10,
		EndLine:     offset / 10,
		EndCol:      offset%10 + 1,
	}
	id, err := s.InsertDiagnostic(d)
	require.NoError(t, err)
	require.Positive(t, id)
	return d
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "diagnostics", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestNewStore_BadPath(t *testing.T) {
	t.Parallel()
	_, err := NewStore(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.Error(t, err)
}

// =============================================================================
// Files
// =============================================================================

func TestFileByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	want := insertTestFile(t, s, "src/Cart.cs")

	got, err := s.FileByPath("src/Cart.cs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "csharp", got.Language)
	assert.Equal(t, "abc123", got.Hash)
	assert.Equal(t, "rules1", got.RulesetHash)
	assert.Equal(t, 12, got.LineCount)
	assert.True(t, want.LastAnalyzed.Equal(got.LastAnalyzed))
}

func TestFileByPath_Missing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.FileByPath("nope.cs")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertFile_DuplicatePath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "a.cs")

	_, err := s.InsertFile(&File{Path: "a.cs", Language: "csharp"})
	assert.Error(t, err)
}

func TestFiles_OrderedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "b.cs")
	insertTestFile(t, s, "a.cs")

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.cs", files[0].Path)
	assert.Equal(t, "b.cs", files[1].Path)

	byLang, err := s.FilesByLanguage("csharp")
	require.NoError(t, err)
	assert.Len(t, byLang, 2)
	none, err := s.FilesByLanguage("go")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "a.cs")
	b := insertTestFile(t, s, "b.cs")
	insertTestDiagnostic(t, s, a.ID, "SA1005", 1)
	insertTestDiagnostic(t, s, b.ID, "SA1005", 1)

	require.NoError(t, s.DeleteFiles([]int64{a.ID}))
	require.NoError(t, s.DeleteFiles(nil))

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.cs", files[0].Path)

	diags, err := s.DiagnosticsByRule("SA1005")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, b.ID, diags[0].FileID)
}

// =============================================================================
// Diagnostics
// =============================================================================

func TestDiagnosticsByFile_SourceOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cs")
	insertTestDiagnostic(t, s, f.ID, "SA1101", 40)
	insertTestDiagnostic(t, s, f.ID, "SA1005", 12)

	diags, err := s.DiagnosticsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Equal(t, "SA1005", diags[0].RuleID)
	assert.Equal(t, 12, diags[0].StartOffset)
	assert.Equal(t, 1, diags[0].StartLine)
	assert.Equal(t, 2, diags[0].StartCol)
	assert.Equal(t, []string{"x"}, diags[0].Args)
	assert.Equal(t, "SA1101", diags[1].RuleID)
}

func TestDiagnostic_NoArgs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cs")
	_, err := s.InsertDiagnostic(&Diagnostic{FileID: f.ID, RuleID: "SA1123", Severity: "warning", Message: "m"})
	require.NoError(t, err)

	diags, err := s.DiagnosticsByRule("SA1123")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Nil(t, diags[0].Args)
}

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "a.cs")
	insertTestDiagnostic(t, s, f.ID, "SA1005", 1)

	require.NoError(t, s.DeleteFileData(f.ID))
	diags, err := s.DiagnosticsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, diags)

	kept, err := s.FileByPath("a.cs")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestRuleCounts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "a.cs")
	b := insertTestFile(t, s, "b.cs")
	insertTestDiagnostic(t, s, a.ID, "SA1005", 1)
	insertTestDiagnostic(t, s, a.ID, "SA1005", 5)
	insertTestDiagnostic(t, s, b.ID, "SA1005", 1)
	insertTestDiagnostic(t, s, b.ID, "SA1101", 3)

	counts, err := s.RuleCounts()
	require.NoError(t, err)
	assert.Equal(t, []RuleCount{
		{RuleID: "SA1005", Severity: "warning", Count: 3},
		{RuleID: "SA1101", Severity: "warning", Count: 1},
	}, counts)
}

// =============================================================================
// Metadata & hashes
// =============================================================================

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("ruleset_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("ruleset_hash", "one"))
	require.NoError(t, s.SetMetadata("ruleset_hash", "two"))
	v, err = s.GetMetadata("ruleset_hash")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestComputeRulesetHash(t *testing.T) {
	t.Parallel()

	scripts := map[string]string{"rules/a.risor": "x := 1", "rules/b.risor": "y := 2"}
	base := ComputeRulesetHash("cfg", []string{"SA1005", "SA1101"}, scripts)

	assert.Equal(t, base, ComputeRulesetHash("cfg", []string{"SA1101", "SA1005"}, scripts), "id order must not matter")
	assert.NotEqual(t, base, ComputeRulesetHash("cfg2", []string{"SA1005", "SA1101"}, scripts))
	assert.NotEqual(t, base, ComputeRulesetHash("cfg", []string{"SA1005"}, scripts))
	assert.NotEqual(t, base, ComputeRulesetHash("cfg", []string{"SA1005", "SA1101"}, map[string]string{"rules/a.risor": "x := 2"}))
}

func TestComputeContentHash(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ComputeContentHash([]byte("a")), ComputeContentHash([]byte("a")))
	assert.NotEqual(t, ComputeContentHash([]byte("a")), ComputeContentHash([]byte("b")))
	assert.Len(t, ComputeContentHash(nil), 64)
}
