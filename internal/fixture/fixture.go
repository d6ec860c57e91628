// Package fixture reads and writes content trees as YAML documents.
//
// A fixture lists nodes in the order they are written, parents first:
//
//	nodes:
//	  - path: /docs
//	    type: nt:folder
//	  - path: /docs/readme
//	    properties:
//	      - name: title
//	        type: String
//	        values: [Hello]
//
// Values are given in their text form and converted with ir.ParseValue.
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
	"github.com/damz/jackalope/internal/store"
)

// Fixture is a list of nodes to write.
type Fixture struct {
	// Namespaces maps prefixes used by the nodes to their URIs. They are
	// registered before any node is written.
	Namespaces map[string]string `yaml:"namespaces,omitempty" json:"namespaces,omitempty"`

	Nodes []Node `yaml:"nodes" json:"nodes"`
}

// Node is one node of a fixture.
type Node struct {
	Path string `yaml:"path" json:"path"`

	// Type is the primary node type. Defaults to nt:unstructured.
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Identifier is generated when empty.
	Identifier string `yaml:"identifier,omitempty" json:"identifier,omitempty"`

	Properties []Property `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Property is one property of a fixture node.
type Property struct {
	Name string `yaml:"name" json:"name"`

	// Type is a property type name such as String or Long. Defaults to String.
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Multiple marks a multi-valued property. Implied when Values has
	// more than one entry.
	Multiple bool `yaml:"multiple,omitempty" json:"multiple,omitempty"`

	Values []string `yaml:"values" json:"values"`
}

// Writer stores validated nodes. Satisfied by *store.Session.
type Writer interface {
	RegisterNamespace(ctx context.Context, prefix, uri string) error
	StoreNode(ctx context.Context, n store.NodeData) (int64, error)
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document. Unknown fields are rejected.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, n := range f.Nodes {
		if n.Path == "" {
			return nil, fmt.Errorf("invalid fixture: node %d: path is required", i)
		}
		for _, p := range n.Properties {
			if p.Name == "" {
				return nil, fmt.Errorf("invalid fixture: node %s: property name is required", n.Path)
			}
		}
	}
	return &f, nil
}

// Apply writes every node of f in order and returns the number written.
// Writing stops at the first failure; nodes written before it are kept.
func Apply(ctx context.Context, w Writer, f *Fixture) (int, error) {
	for _, prefix := range slices.Sorted(maps.Keys(f.Namespaces)) {
		if err := w.RegisterNamespace(ctx, prefix, f.Namespaces[prefix]); err != nil {
			return 0, fmt.Errorf("apply fixture: %w", err)
		}
	}
	for i, n := range f.Nodes {
		data, err := n.NodeData()
		if err != nil {
			return i, fmt.Errorf("apply fixture: %w", err)
		}
		if _, err := w.StoreNode(ctx, data); err != nil {
			return i, fmt.Errorf("apply fixture: %w", err)
		}
	}
	slog.Debug("fixture applied", "nodes", len(f.Nodes))
	return len(f.Nodes), nil
}

// NodeData converts the fixture node into a store write.
func (n Node) NodeData() (store.NodeData, error) {
	props := make([]ir.Property, 0, len(n.Properties))
	for _, fp := range n.Properties {
		p, err := fp.property()
		if err != nil {
			return store.NodeData{}, fmt.Errorf("node %s: %w", n.Path, err)
		}
		props = append(props, p)
	}
	return store.NodeData{
		Identifier:  n.Identifier,
		Path:        n.Path,
		PrimaryType: n.Type,
		Properties:  props,
	}, nil
}

func (fp Property) property() (ir.Property, error) {
	t := ir.TypeString
	if fp.Type != "" {
		var err error
		if t, err = ir.ParsePropertyType(fp.Type); err != nil {
			return ir.Property{}, fmt.Errorf("property %s: %w", fp.Name, err)
		}
	}
	if !fp.Multiple && len(fp.Values) != 1 {
		if len(fp.Values) == 0 {
			return ir.Property{}, ir.NewFormatError(fp.Name, "single-valued property needs a value")
		}
		fp.Multiple = true
	}

	values := make([]ir.Value, 0, len(fp.Values))
	for _, text := range fp.Values {
		v, err := ir.ParseValue(t, text)
		if err != nil {
			return ir.Property{}, fmt.Errorf("property %s: %w", fp.Name, err)
		}
		values = append(values, v)
	}
	return ir.Property{Name: fp.Name, Type: t, Multiple: fp.Multiple, Values: values}, nil
}

// Reader reads stored nodes. Satisfied by *store.Session.
type Reader interface {
	GetNode(ctx context.Context, path string) (*ir.Node, error)
	GetBinary(ctx context.Context, propertyPath string) ([][]byte, error)
}

// Export builds a fixture from the subtree rooted at root, parents first.
// Binary contents are read back so the result can be applied elsewhere.
func Export(ctx context.Context, r Reader, root string) (*Fixture, error) {
	f := &Fixture{}
	stack := []string{root}
	for len(stack) > 0 {
		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, err := r.GetNode(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("export fixture: %w", err)
		}
		fn, err := exportNode(ctx, r, n)
		if err != nil {
			return nil, fmt.Errorf("export fixture: %w", err)
		}
		f.Nodes = append(f.Nodes, fn)

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return f, nil
}

func exportNode(ctx context.Context, r Reader, n *ir.Node) (Node, error) {
	fn := Node{Path: n.Path, Type: n.PrimaryType, Identifier: n.Identifier}
	for _, p := range n.Properties {
		fp := Property{Name: p.Name, Type: p.Type.Name(), Multiple: p.Multiple, Values: make([]string, 0, len(p.Values))}
		if p.Type == ir.TypeBinary {
			data, err := r.GetBinary(ctx, jcrpath.Join(n.Path, p.Name))
			if err != nil {
				return Node{}, err
			}
			for _, b := range data {
				fp.Values = append(fp.Values, string(b))
			}
		} else {
			for _, v := range p.Values {
				fp.Values = append(fp.Values, v.String())
			}
		}
		fn.Properties = append(fn.Properties, fp)
	}
	return fn, nil
}

// Encode writes f as YAML.
func (f *Fixture) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return enc.Close()
}
