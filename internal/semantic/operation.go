package semantic

import "github.com/jward/sharplint/internal/host"

type operation struct {
	kind     string
	syntax   host.Node
	symbol   *host.Symbol
	instance host.Node
	nameNode host.Node
	caps     Capabilities
}

func (o *operation) Kind() string      { return o.kind }
func (o *operation) Syntax() host.Node { return o.syntax }

// Value returns the members the provider advertises for the operation's
// kind. An implicit receiver is a present Instance with a nil value.
func (o *operation) Value(member string) (any, bool) {
	if !o.caps.has(o.kind, member) {
		return nil, false
	}
	switch member {
	case MemberSymbol:
		return o.symbol, true
	case MemberInstance:
		if o.instance == nil {
			return nil, true
		}
		return o.instance, true
	}
	return nil, false
}
