package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeContentHash hashes file content.
func ComputeContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ComputeRulesetHash identifies everything besides file content that
// decides a file's diagnostics: the configuration hash, the active
// diagnostic ids, and the scripted rule sources keyed by path. Order of ids
// and scripts does not affect the hash.
func ComputeRulesetHash(configHash string, ruleIDs []string, scripts map[string]string) string {
	h := sha256.New()
	fmt.Fprintf(h, "config:%s\n", configHash)

	ids := make([]string, len(ruleIDs))
	copy(ids, ruleIDs)
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(h, "rule:%s\n", id)
	}

	paths := make([]string, 0, len(scripts))
	for p := range scripts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(h, "script:%s:%d\n%s\n", p, len(scripts[p]), scripts[p])
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
