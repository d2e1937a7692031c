package sharplint

import (
	"github.com/jward/sharplint/internal/analyzer"
	"github.com/jward/sharplint/internal/config"
	"github.com/jward/sharplint/internal/diag"
	"github.com/jward/sharplint/internal/fix"
	"github.com/jward/sharplint/internal/lightup"
	"github.com/jward/sharplint/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// APIs. These are Go type aliases (=), identical to the internal types at
// compile time, so no conversion is needed.

type Store = store.Store
type File = store.File
type StoredDiagnostic = store.Diagnostic
type RuleCount = store.RuleCount

type Diagnostic = diag.Diagnostic
type Descriptor = diag.Descriptor
type Severity = diag.Severity

type Rule = analyzer.Rule
type Config = config.Config
type Profile = lightup.Profile
type FixResult = fix.Result
