// Package resolver maps dotted method paths onto an app definition and its
// compiled schema.
//
// Paths are parsed once into a closed set of kinds and then resolved by
// exhaustive case analysis:
//
//	resources.<key>.<method>.<field...>   -> ResourceOp (raw definition)
//	resources.<key>.<field>               -> ResourceOp with empty Method
//	triggers.<key>.<field...>             -> TriggerOp  (compiled schema)
//	searches.<key>.<field...>             -> SearchOp   (compiled schema)
//	creates.<key>.<field...>              -> CreateOp   (compiled schema)
//	authentication.<field...>             -> AuthOp
package resolver

import (
	"strings"
)

// Namespaces of the dotted path protocol.
const (
	NamespaceResources      = "resources"
	NamespaceTriggers       = "triggers"
	NamespaceSearches       = "searches"
	NamespaceCreates        = "creates"
	NamespaceAuthentication = "authentication"
)

// Path is a parsed method path. Only the types in this package implement it.
type Path interface {
	String() string
	path() // Sealed
}

// ResourceOp addresses a resource method or a resource-level field.
type ResourceOp struct {
	ResourceKey string
	Method      string // list, get, hook, search, create; empty for resource-level fields
	Field       string // dotted remainder, e.g. "operation.perform"
}

// TriggerOp addresses a compiled trigger.
type TriggerOp struct {
	Key   string
	Field string
}

// SearchOp addresses a compiled search.
type SearchOp struct {
	Key   string
	Field string
}

// CreateOp addresses a compiled create.
type CreateOp struct {
	Key   string
	Field string
}

// AuthOp addresses the authentication block.
type AuthOp struct {
	Field string
}

func (ResourceOp) path() {}
func (TriggerOp) path()  {}
func (SearchOp) path()   {}
func (CreateOp) path()   {}
func (AuthOp) path()     {}

func (p ResourceOp) String() string {
	if p.Method == "" {
		return join(NamespaceResources, p.ResourceKey, p.Field)
	}
	return join(NamespaceResources, p.ResourceKey, p.Method, p.Field)
}

func (p TriggerOp) String() string { return join(NamespaceTriggers, p.Key, p.Field) }
func (p SearchOp) String() string  { return join(NamespaceSearches, p.Key, p.Field) }
func (p CreateOp) String() string  { return join(NamespaceCreates, p.Key, p.Field) }
func (p AuthOp) String() string    { return join(NamespaceAuthentication, p.Field) }

func join(parts ...string) string {
	return strings.Join(parts, ".")
}

// resourceMethods are the sub-definitions a resource may carry.
var resourceMethods = map[string]bool{
	"list":   true,
	"get":    true,
	"hook":   true,
	"search": true,
	"create": true,
}

// resourceFields are the resource-level fields addressable directly.
var resourceFields = map[string]bool{
	"key":          true,
	"noun":         true,
	"outputFields": true,
	"sample":       true,
}

// ParsePath parses a dotted method path. Any other shape fails with
// *MethodNotFoundError.
func ParsePath(method string) (Path, error) {
	segs := strings.Split(method, ".")
	for _, s := range segs {
		if s == "" {
			return nil, notFound(method, "empty path segment")
		}
	}

	switch segs[0] {
	case NamespaceResources:
		if len(segs) < 3 {
			return nil, notFound(method, "expected resources.<key>.<method>.<field>")
		}
		if resourceMethods[segs[2]] && len(segs) < 4 {
			return nil, notFound(method, "missing field after resource method")
		}
		if len(segs) == 3 || resourceFields[segs[2]] {
			return ResourceOp{ResourceKey: segs[1], Field: join(segs[2:]...)}, nil
		}
		// Anything else with a field after it addresses a named method.
		return ResourceOp{ResourceKey: segs[1], Method: segs[2], Field: join(segs[3:]...)}, nil

	case NamespaceTriggers, NamespaceSearches, NamespaceCreates:
		if len(segs) < 3 {
			return nil, notFound(method, "expected "+segs[0]+".<key>.<field>")
		}
		key, field := segs[1], join(segs[2:]...)
		switch segs[0] {
		case NamespaceTriggers:
			return TriggerOp{Key: key, Field: field}, nil
		case NamespaceSearches:
			return SearchOp{Key: key, Field: field}, nil
		default:
			return CreateOp{Key: key, Field: field}, nil
		}

	case NamespaceAuthentication:
		if len(segs) < 2 {
			return nil, notFound(method, "expected authentication.<field>")
		}
		return AuthOp{Field: join(segs[1:]...)}, nil
	}

	return nil, notFound(method, "unknown namespace "+segs[0])
}
