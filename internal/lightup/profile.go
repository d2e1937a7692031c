package lightup

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jward/sharplint/internal/host"
)

// Profile is the immutable capability snapshot of one host version: the
// node kinds and field names of its grammar, the operation kinds and members
// of its semantic provider, and which shapes resolved.
type Profile struct {
	language    string
	fingerprint string
	kinds       map[string]bool
	fields      map[string]bool
	opMembers   map[string]map[string]bool
	resolved    [numShapes][]string
}

// Probe inspects lang and caps once and resolves every shape in the static
// table. Absent optional shapes are recorded, not fatal. A nil caps means
// the host has no semantic provider.
func Probe(lang host.Language, caps host.SemanticCapabilities) (*Profile, error) {
	p := &Profile{
		language:  lang.Name(),
		kinds:     make(map[string]bool),
		fields:    make(map[string]bool),
		opMembers: make(map[string]map[string]bool),
	}
	for _, k := range lang.NodeKinds() {
		p.kinds[k] = true
	}
	for _, f := range lang.FieldNames() {
		p.fields[f] = true
	}
	if caps != nil {
		for _, k := range caps.OperationKinds() {
			members := make(map[string]bool)
			for _, m := range caps.OperationMembers(k) {
				members[m] = true
			}
			p.opMembers[k] = members
		}
	}

	for s := ShapeInvalid + 1; s < numShapes; s++ {
		spec := &shapeTable[s]
		for _, k := range spec.kinds {
			if spec.operation {
				if _, ok := p.opMembers[k]; ok {
					p.resolved[s] = append(p.resolved[s], k)
				}
			} else if p.kinds[k] {
				p.resolved[s] = append(p.resolved[s], k)
			}
		}
	}

	for s := ShapeInvalid + 1; s < numShapes; s++ {
		if shapeTable[s].mandatory && !p.Has(s) {
			return nil, fmt.Errorf("lightup: probe %s: %s: %w", p.language, s, ErrMandatoryShape)
		}
	}

	p.fingerprint = p.computeFingerprint()
	return p, nil
}

func (p *Profile) computeFingerprint() string {
	h := sha256.New()
	write := func(tag string, set map[string]bool) {
		keys := make([]string, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(h, "%s:%s\n", tag, strings.Join(keys, ","))
	}
	write("kinds", p.kinds)
	write("fields", p.fields)
	ops := make([]string, 0, len(p.opMembers))
	for k := range p.opMembers {
		ops = append(ops, k)
	}
	sort.Strings(ops)
	for _, k := range ops {
		write("op "+k, p.opMembers[k])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Language returns the name of the probed host language.
func (p *Profile) Language() string { return p.language }

// Fingerprint identifies the host version by its tables.
func (p *Profile) Fingerprint() string { return p.fingerprint }

// HasKind reports whether the grammar declares a node kind.
func (p *Profile) HasKind(kind string) bool { return p.kinds[kind] }

// HasField reports whether the grammar declares a field name.
func (p *Profile) HasField(name string) bool { return p.fields[name] }

// HasOperationMember reports whether operation kind carries member.
func (p *Profile) HasOperationMember(kind, member string) bool {
	return p.opMembers[kind][member]
}

// Kinds returns the host kinds implementing s itself, not counting
// specialised shapes.
func (p *Profile) Kinds(s Shape) []string {
	if s <= ShapeInvalid || s >= numShapes {
		return nil
	}
	return p.resolved[s]
}

// Has reports whether s, or any shape specialising it, exists in the host
// version.
func (p *Profile) Has(s Shape) bool {
	if s <= ShapeInvalid || s >= numShapes {
		return false
	}
	for _, f := range familyOf(s) {
		if len(p.resolved[f]) > 0 {
			return true
		}
	}
	return false
}

// Absent returns the shapes the host version does not provide.
func (p *Profile) Absent() []Shape {
	var out []Shape
	for s := ShapeInvalid + 1; s < numShapes; s++ {
		if !p.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// satisfies reports whether req holds for a shape whose family resolves to
// opKinds. Field and member requirements are conjunctive; kind requirements
// need any one of the kinds.
func (p *Profile) satisfies(req requirement, opKinds []string) bool {
	for _, f := range req.fields {
		if !p.fields[f] {
			return false
		}
	}
	if len(req.kinds) > 0 {
		found := false
		for _, k := range req.kinds {
			if p.kinds[k] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(req.members) > 0 {
		if len(opKinds) == 0 {
			return false
		}
		for _, k := range opKinds {
			for _, m := range req.members {
				if !p.opMembers[k][m] {
					return false
				}
			}
		}
	}
	return true
}

// LogValue implements [slog.LogValuer].
func (p *Profile) LogValue() slog.Value {
	absent := p.Absent()
	names := make([]string, len(absent))
	for i, s := range absent {
		names[i] = s.String()
	}
	return slog.GroupValue(
		slog.String("language", p.language),
		slog.String("fingerprint", p.fingerprint[:12]),
		slog.Int("kinds", len(p.kinds)),
		slog.Int("fields", len(p.fields)),
		slog.Any("absent", names),
	)
}

// Cache memoises registries per host language name. The entry for a key is
// computed exactly once; the first caller's language and capabilities win.
// A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	reg  *Registry
	err  error
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Registry returns the registry for lang, probing on first use.
func (c *Cache) Registry(lang host.Language, caps host.SemanticCapabilities) (*Registry, error) {
	c.mu.Lock()
	e, ok := c.entries[lang.Name()]
	if !ok {
		e = &cacheEntry{}
		c.entries[lang.Name()] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		p, err := Probe(lang, caps)
		if err != nil {
			e.err = err
			return
		}
		e.reg = NewRegistry(p)
	})
	return e.reg, e.err
}
