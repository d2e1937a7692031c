package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("xml"), `invalid format "xml"`)
}

func TestFormatDiagnosticsText(t *testing.T) {
	noColor(t)
	diags := []CLIDiagnostic{
		{File: "/elsewhere/Order.cs", RuleID: "SA1005", Severity: "warning", Message: "Single line comment must begin with a space", StartLine: 4, StartCol: 8},
		{RuleID: "SL0001", Severity: "warning", Message: "rule failed"},
	}

	var buf bytes.Buffer
	formatDiagnosticsText(&buf, diags, 1)
	assert.Equal(t,
		"/elsewhere/Order.cs:5:9: warning SA1005: Single line comment must begin with a space\n"+
			"<compilation>: warning SL0001: rule failed\n",
		buf.String())

	buf.Reset()
	formatDiagnosticsText(&buf, diags[:1], 0)
	assert.Contains(t, buf.String(), "/elsewhere/Order.cs:4:8:")
}

func TestFormatAnalyzeText(t *testing.T) {
	noColor(t)

	var buf bytes.Buffer
	formatAnalyzeText(&buf, CLIAnalyzeReport{})
	assert.Equal(t, "No diagnostics\n", buf.String())

	buf.Reset()
	formatAnalyzeText(&buf, CLIAnalyzeReport{Diagnostics: []CLIDiagnostic{
		{File: "/x/A.cs", RuleID: "SA1309", Severity: "error"},
		{File: "/x/A.cs", RuleID: "SA1005", Severity: "warning"},
		{File: "/x/B.cs", RuleID: "SA1005", Severity: "warning"},
	}})
	assert.Contains(t, buf.String(), "3 diagnostics (1 error, 2 warning)")
}

func TestFormatRulesText(t *testing.T) {
	var buf bytes.Buffer
	formatRulesText(&buf, []CLIRule{
		{ID: "SA1005", Title: "Single line comments must begin with single space", Enabled: true, Severity: "warning", Fixable: true},
		{ID: "SA1649", Title: "File name must match first type name", Enabled: true, Severity: "warning", Scripted: true},
	})
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Regexp(t, `SA1005\s+warning\s+true\s+builtin\s+yes`, out)
	assert.Regexp(t, `SA1649\s+warning\s+true\s+script\s+File name`, out)
}

func TestFormatProfileText(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	formatProfileText(&buf, CLIProfile{
		Language:    "c_sharp",
		Fingerprint: "abc",
		Shapes: []CLIShape{
			{Name: "Comment", Present: true, Kinds: []string{"comment"}},
			{Name: "CollectionExpression", Present: false},
		},
		Absent: []string{"CollectionExpression"},
	})
	out := buf.String()
	assert.Contains(t, out, "Fingerprint: abc")
	assert.Regexp(t, `Comment\s+comment`, out)
	assert.Regexp(t, `CollectionExpression\s+absent`, out)
	assert.Contains(t, out, "Absent: CollectionExpression")
}

func TestOutputResultText_PaginationFooter(t *testing.T) {
	noColor(t)
	total := 10
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{
		Command:    "files",
		Results:    []CLIFile{{ID: 1, Path: "/x/A.cs", LineCount: 3}},
		TotalCount: &total,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Showing 1 of 10 results")
}

func TestOutputResultText_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	err := outputResultText(&buf, CLIResult{Results: 42})
	assert.ErrorContains(t, err, "unsupported result type")
}

func TestResultLen(t *testing.T) {
	assert.Equal(t, 0, resultLen(nil))
	assert.Equal(t, 2, resultLen([]CLIDiagnostic{{}, {}}))
	assert.Equal(t, 1, resultLen(CLISummary{}))
}
