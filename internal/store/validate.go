package store

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
)

const (
	propPrimaryType = "jcr:primaryType"
	propMixinTypes  = "jcr:mixinTypes"
	propUUID        = "jcr:uuid"
	residualName    = "*"
)

// StoreNode validates n against its node types and then upserts it.
//
// The primary type comes from the jcr:primaryType property, else
// n.PrimaryType, else nt:unstructured; the identifier from jcr:uuid, else
// n.Identifier. Every type that applies (primary, mixins and all their
// supertypes) is checked: a missing mandatory property that is not
// auto-created is a CONSTRAINT_VIOLATION, missing auto-created properties
// are filled in, and Name, Path and URI values must be well formed.
func (s *Session) StoreNode(ctx context.Context, n NodeData) (int64, error) {
	props := slices.Clone(n.Properties)

	primary := n.PrimaryType
	if p, ok := ir.FindProperty(props, propPrimaryType); ok && p.Value() != nil {
		primary = p.Value().String()
	}
	if primary == "" {
		primary = RootNodeType
	}
	identifier := n.Identifier
	if p, ok := ir.FindProperty(props, propUUID); ok && p.Value() != nil {
		identifier = p.Value().String()
	}
	if identifier == "" {
		identifier = s.store.ids.NewIdentifier()
	}
	var mixins []string
	if p, ok := ir.FindProperty(props, propMixinTypes); ok {
		for _, v := range p.Values {
			mixins = append(mixins, v.String())
		}
	}

	defs, err := s.responsibleTypes(ctx, primary, mixins)
	if err != nil {
		return 0, fmt.Errorf("store node %s: %w", n.Path, err)
	}
	if defs[0].IsAbstract || defs[0].IsMixin {
		return 0, ir.NewConstraintViolationError(n.Path, primary+" cannot be used as a primary type")
	}
	for _, def := range defs {
		if props, err = s.applyDefinition(n.Path, def, props, primary, identifier); err != nil {
			return 0, fmt.Errorf("store node %s: %w", n.Path, err)
		}
	}

	ns, err := s.Namespaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("store node %s: %w", n.Path, err)
	}
	for _, p := range props {
		if err := assertValidProperty(ns, jcrpath.Join(n.Path, p.Name), p); err != nil {
			return 0, fmt.Errorf("store node %s: %w", n.Path, err)
		}
	}

	n.Identifier = identifier
	n.PrimaryType = primary
	n.Properties = props
	return s.Upsert(ctx, n)
}

// responsibleTypes resolves the primary type, the mixins and every
// supertype reachable from them. Supertype graphs are walked iteratively
// with a visited set, so a cyclic declaration terminates.
func (s *Session) responsibleTypes(ctx context.Context, primary string, mixins []string) ([]ir.NodeTypeDefinition, error) {
	catalog := s.store.catalog
	queue := append([]string{primary}, mixins...)
	visited := make(map[string]bool)
	defs := make([]ir.NodeTypeDefinition, 0, len(queue))

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true

		resolved, err := catalog.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			return nil, ir.NewConstraintViolationError("", "unknown node type "+name)
		}
		def := resolved[0]
		defs = append(defs, def)
		queue = append(queue, def.DeclaredSupertypes...)
	}
	return defs, nil
}

// applyDefinition checks props against one definition and returns props
// with any missing auto-created properties added.
func (s *Session) applyDefinition(path string, def ir.NodeTypeDefinition, props []ir.Property, primary, identifier string) ([]ir.Property, error) {
	for _, cd := range def.ChildNodeDefinitions {
		if cd.Name == residualName {
			continue
		}
		if _, ok := ir.FindProperty(props, cd.Name); ok {
			return nil, ir.NewConstraintViolationError(path,
				fmt.Sprintf("property %s clashes with a child node declared by %s", cd.Name, def.Name))
		}
	}

	for _, pd := range def.PropertyDefinitions {
		if pd.Name == residualName {
			continue
		}
		if _, ok := ir.FindProperty(props, pd.Name); ok {
			continue
		}
		if pd.IsMandatory && !pd.IsAutoCreated {
			return nil, ir.NewConstraintViolationError(path,
				fmt.Sprintf("property %s is mandatory for %s", pd.Name, def.Name))
		}
		if !pd.IsAutoCreated {
			continue
		}

		p, ok, err := s.autoCreate(pd, primary, identifier)
		if err != nil {
			return nil, fmt.Errorf("auto-create %s: %w", pd.Name, err)
		}
		if ok {
			props = append(props, p)
		}
	}
	return props, nil
}

// autoCreate builds the initial value of an auto-created property. Returns
// ok=false when there is nothing to set.
func (s *Session) autoCreate(pd ir.PropertyDefinition, primary, identifier string) (ir.Property, bool, error) {
	t := pd.RequiredType
	if t == ir.TypeUndefined {
		t = ir.TypeString
	}

	var values []ir.Value
	switch {
	case pd.Name == propPrimaryType:
		values = []ir.Value{ir.StringValue(primary)}
	case pd.Name == propUUID:
		values = []ir.Value{ir.StringValue(identifier)}
	case len(pd.DefaultValues) > 0:
		for _, text := range pd.DefaultValues {
			v, err := ir.ParseValue(t, text)
			if err != nil {
				return ir.Property{}, false, err
			}
			values = append(values, v)
		}
	case t == ir.TypeDate:
		values = []ir.Value{ir.NewDate(s.store.now())}
	default:
		return ir.Property{}, false, nil
	}

	if pd.IsMultiple {
		return ir.Multi(pd.Name, t, values...), true, nil
	}
	return ir.Single(pd.Name, t, values[0]), true, nil
}

// assertValidProperty checks the syntax of Name, Path and URI values.
func assertValidProperty(ns map[string]string, path string, p ir.Property) error {
	for _, v := range p.Values {
		text := v.String()
		switch p.Type {
		case ir.TypeName:
			if i := strings.Index(text, ":"); i >= 0 {
				if _, ok := ns[text[:i]]; !ok {
					return ir.NewFormatError(path, fmt.Sprintf("invalid name %q: namespace prefix %s does not exist", text, text[:i]))
				}
			}
		case ir.TypePath:
			if !jcrpath.ValidValue(text) {
				return ir.NewFormatError(path, fmt.Sprintf("invalid path %q", text))
			}
		case ir.TypeURI:
			u, err := url.Parse(text)
			if err != nil || !u.IsAbs() || u.Host == "" {
				return ir.NewFormatError(path, fmt.Sprintf("invalid URI %q", text))
			}
		}
	}
	return nil
}
