// Package sharplint analyses C# sources with StyleCop-style rules built on
// tree-sitter. Rules are written against version-independent node and
// operation shapes; a capability probe binds the shapes to whatever the
// host grammar and semantic model provide, and rules whose shapes are
// missing stay inert instead of failing.
//
// # Pipeline
//
// For each run the [Engine]:
//
//  1. Discovers C# files (git ls-files, or a directory walk) and skips those
//     excluded by the ruleset or unchanged since their last analysis.
//  2. Parses and analyses the rest on a worker pool, dispatching syntax
//     nodes, trees and semantic operations to the built-in and scripted
//     rules.
//  3. Commits each file's diagnostics to SQLite from a single writer.
//
// # Usage
//
//	e, err := sharplint.New(".sharplint/results.db", "", sharplint.WithScriptsFS(scripts.FS))
//	if err != nil { ... }
//	defer e.Close()
//
//	rep, err := e.AnalyzeDirectory(ctx, "path/to/project")
//	outcomes, err := e.FixDirectory(ctx, "path/to/project", false, "SA1005")
//
//	q := e.Query()
//	page, err := q.Diagnostics(sharplint.DiagnosticFilter{RuleIDs: []string{"SA1309"}}, sharplint.Sort{}, sharplint.Pagination{})
//
// # Incremental Analysis
//
// A file is analysed again only when its content hash or the ruleset hash
// changes. The ruleset hash covers the configuration, the active rule ids
// and the scripted rule sources.
//
// # Scripts
//
// Scripted rules are Risor scripts listed in rules/manifest.yaml under the
// scripts directory. Each runs once per document as a syntax tree action;
// see the internal/runtime package for the globals exposed to scripts.
package sharplint
