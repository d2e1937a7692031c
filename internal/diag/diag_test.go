package diag

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sharplint/internal/host"
)

var testDesc = Descriptor{
	ID:              "SA0000",
	Title:           "Test",
	MessageFormat:   "name %s is bad",
	Category:        "Naming",
	DefaultSeverity: SeverityWarning,
}

func at(rule, path string, start uint32) Diagnostic {
	d := testDesc
	d.ID = rule
	return At(d, path, host.Span{Start: start, End: start + 1}, host.Point{Column: start}, host.Point{Column: start + 1}, SeverityWarning, "x")
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	for _, s := range []Severity{SeverityHidden, SeverityInfo, SeverityWarning, SeverityError} {
		got, err := ParseSeverity(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "Severity(9)", Severity(9).String())

	_, err := ParseSeverity("loud")
	assert.Error(t, err)

	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("Error")))
	assert.Equal(t, SeverityError, s)
}

func TestDescriptorFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "name _x is bad", testDesc.Format("_x"))
	plain := Descriptor{MessageFormat: "100% plain"}
	assert.Equal(t, "100% plain", plain.Format())

	d := at("SA0000", "a.cs", 3)
	assert.Equal(t, "name x is bad", d.Message)
	assert.Equal(t, []string{"x"}, d.Args)
	assert.Equal(t, "a.cs:1:4: warning SA0000: name x is bad", d.String())
}

func TestCollector_OrdersPerDocument(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Report(at("SA2", "b.cs", 10))
	c.Report(at("SA1", "b.cs", 10))
	c.Report(at("SA1", "b.cs", 2))
	c.Report(at("SA1", "a.cs", 7))

	assert.Equal(t, []string{"a.cs", "b.cs"}, c.Paths())
	doc := c.Document("b.cs")
	require.Len(t, doc, 3)
	assert.Equal(t, uint32(2), doc[0].Span.Start)
	assert.Equal(t, "SA1", doc[1].RuleID)
	assert.Equal(t, "SA2", doc[2].RuleID)

	all := c.All()
	require.Len(t, all, 4)
	assert.Equal(t, "a.cs", all[0].Path)
	assert.Len(t, c.Rule("b.cs", "SA1"), 2)
}

func TestCollector_DropsDuplicatesAndResets(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.Report(at("SA1", "a.cs", 1))
	c.Report(at("SA1", "a.cs", 1))
	assert.Equal(t, 1, c.Len())

	sev, ok := c.Max()
	assert.True(t, ok)
	assert.Equal(t, SeverityWarning, sev)

	c.Reset("a.cs")
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Paths())
	_, ok = c.Max()
	assert.False(t, ok)
}

func TestCollector_Concurrent(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 10 {
				c.Report(at("SA1", fmt.Sprintf("f%d.cs", i), uint32(j)))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 160, c.Len())
	assert.Len(t, c.Paths(), 16)
}

func TestSinkFunc(t *testing.T) {
	t.Parallel()

	var got []Diagnostic
	var s Sink = SinkFunc(func(d Diagnostic) { got = append(got, d) })
	s.Report(at("SA1", "a.cs", 0))
	assert.Len(t, got, 1)
}
