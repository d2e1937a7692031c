package analyzer

import (
	"regexp"
	"strings"

	"github.com/jward/sharplint/internal/host"
)

var pragmaPattern = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*pragma[ \t]+warning[ \t]+(disable|restore)\b([^\r\n]*)`)

// allRules keys pragmas that name no id.
const allRules = "*"

// Suppressions are the source ranges disabled by #pragma warning directives.
type Suppressions struct {
	ranges map[string][]host.Span
}

// ParseSuppressions scans src for pragma warning directives. A disable
// without ids applies to every rule and a restore without ids ends every
// open range. An unmatched disable runs to the end of the file.
func ParseSuppressions(src []byte) *Suppressions {
	s := &Suppressions{ranges: make(map[string][]host.Span)}
	open := make(map[string]uint32)
	for _, m := range pragmaPattern.FindAllSubmatchIndex(src, -1) {
		verb := string(src[m[2]:m[3]])
		ids := pragmaIDs(string(src[m[4]:m[5]]))
		for _, id := range ids {
			switch verb {
			case "disable":
				if _, ok := open[id]; !ok {
					open[id] = uint32(m[1])
				}
			case "restore":
				// A restore without ids closes every open range.
				if id == allRules {
					for openID, start := range open {
						s.ranges[openID] = append(s.ranges[openID], host.Span{Start: start, End: uint32(m[0])})
					}
					clear(open)
					continue
				}
				if start, ok := open[id]; ok {
					s.ranges[id] = append(s.ranges[id], host.Span{Start: start, End: uint32(m[0])})
					delete(open, id)
				}
			}
		}
	}
	for id, start := range open {
		s.ranges[id] = append(s.ranges[id], host.Span{Start: start, End: uint32(len(src))})
	}
	return s
}

func pragmaIDs(rest string) []string {
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[:i]
	}
	var ids []string
	for _, f := range strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		// StyleCop ids may carry a title: SA1101:PrefixLocalCallsWithThis.
		if i := strings.IndexByte(f, ':'); i > 0 {
			f = f[:i]
		}
		ids = append(ids, strings.ToUpper(f))
	}
	if len(ids) == 0 {
		return []string{allRules}
	}
	return ids
}

// Suppressed reports whether a diagnostic of id starting at offset is
// disabled.
func (s *Suppressions) Suppressed(id string, offset uint32) bool {
	if s == nil {
		return false
	}
	for _, key := range []string{strings.ToUpper(id), allRules} {
		for _, r := range s.ranges[key] {
			if offset >= r.Start && offset < r.End {
				return true
			}
		}
	}
	return false
}
