package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/jward/sharplint/internal/host"
)

var generatedSuffixes = []string{".g.cs", ".g.i.cs", ".designer.cs", ".generated.cs", ".assemblyinfo.cs"}

// IsGenerated reports whether tree is generated code: by file name, or by an
// auto-generated marker in the comments leading the file.
func IsGenerated(tree host.Tree) bool {
	name := strings.ToLower(filepath.Base(tree.Path()))
	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	root := tree.Root()
	src := tree.Source()
	for i := 0; i < root.ChildCount(); i++ {
		c := root.Child(i)
		if c.Type() != "comment" {
			break
		}
		text := strings.ToLower(host.Text(src, c))
		if strings.Contains(text, "<auto-generated") || strings.Contains(text, "<autogenerated") {
			return true
		}
	}
	return false
}
