package cli

import (
	"fmt"
	"strings"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/query"
)

// Result views are what commands hand to OutputFormatter.Success: JSON
// tags for json output, String for text output.

type propertyView struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Multiple bool     `json:"multiple"`
	Values   []string `json:"values"`
}

func newPropertyView(p ir.Property) propertyView {
	v := propertyView{Name: p.Name, Type: p.Type.Name(), Multiple: p.Multiple, Values: make([]string, 0, len(p.Values))}
	for _, value := range p.Values {
		if p.Type == ir.TypeBinary {
			v.Values = append(v.Values, fmt.Sprintf("<%s bytes>", value))
			continue
		}
		v.Values = append(v.Values, value.String())
	}
	return v
}

func (v propertyView) String() string {
	if v.Multiple {
		return fmt.Sprintf("%s (%s[]) = [%s]", v.Name, v.Type, strings.Join(v.Values, ", "))
	}
	return fmt.Sprintf("%s (%s) = %s", v.Name, v.Type, strings.Join(v.Values, ""))
}

type nodeView struct {
	Path        string         `json:"path"`
	Identifier  string         `json:"identifier"`
	PrimaryType string         `json:"primary_type"`
	Properties  []propertyView `json:"properties"`
	Children    []string       `json:"children"`
}

func newNodeView(n *ir.Node) nodeView {
	v := nodeView{
		Path:        n.Path,
		Identifier:  n.Identifier,
		PrimaryType: n.PrimaryType,
		Properties:  make([]propertyView, 0, len(n.Properties)),
		Children:    n.Children,
	}
	for _, p := range n.Properties {
		v.Properties = append(v.Properties, newPropertyView(p))
	}
	return v
}

func (v nodeView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  identifier: %s\n  type: %s", v.Path, v.Identifier, v.PrimaryType)
	for _, p := range v.Properties {
		fmt.Fprintf(&b, "\n  %s", p)
	}
	if len(v.Children) > 0 {
		b.WriteString("\n  children:")
		for _, c := range v.Children {
			fmt.Fprintf(&b, "\n    %s", c)
		}
	}
	return b.String()
}

// lines is a list printed one entry per line.
type lines []string

func (l lines) String() string {
	return strings.Join(l, "\n")
}

// message is a one-line result with a few named fields for json output.
type message struct {
	Text   string            `json:"message"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (m message) String() string {
	return m.Text
}

type columnView struct {
	Name   string   `json:"name"`
	Values []string `json:"values"` // nil when the node lacks the property
}

type rowView struct {
	Path    string       `json:"path"`
	Score   float64      `json:"score"`
	Columns []columnView `json:"columns"`
}

type rowsView []rowView

func newRowsView(rows []query.Row) rowsView {
	views := make(rowsView, 0, len(rows))
	for _, r := range rows {
		rv := rowView{Path: r.Path, Score: r.Score, Columns: make([]columnView, 0, len(r.Columns))}
		for _, c := range r.Columns {
			cv := columnView{Name: c.Name}
			if c.Property != nil {
				cv.Values = newPropertyView(*c.Property).Values
			}
			rv.Columns = append(rv.Columns, cv)
		}
		views = append(views, rv)
	}
	return views
}

func (v rowsView) String() string {
	if len(v) == 0 {
		return "(no rows)"
	}
	out := make([]string, 0, len(v))
	for _, r := range v {
		parts := []string{r.Path}
		for _, c := range r.Columns {
			if c.Values == nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%s", c.Name, strings.Join(c.Values, ",")))
		}
		out = append(out, strings.Join(parts, "  "))
	}
	return strings.Join(out, "\n")
}

type typeView struct {
	Name        string   `json:"name"`
	Supertypes  []string `json:"supertypes"`
	Abstract    bool     `json:"abstract"`
	Mixin       bool     `json:"mixin"`
	Properties  []string `json:"properties"`
	ChildNodes  []string `json:"child_nodes"`
	PrimaryItem string   `json:"primary_item,omitempty"`
}

func newTypeView(def ir.NodeTypeDefinition) typeView {
	v := typeView{
		Name:        def.Name,
		Supertypes:  append([]string{}, def.DeclaredSupertypes...),
		Abstract:    def.IsAbstract,
		Mixin:       def.IsMixin,
		Properties:  make([]string, 0, len(def.PropertyDefinitions)),
		ChildNodes:  make([]string, 0, len(def.ChildNodeDefinitions)),
		PrimaryItem: def.PrimaryItemName,
	}
	for _, pd := range def.PropertyDefinitions {
		desc := pd.Name + " " + pd.RequiredType.Name()
		if pd.IsMultiple {
			desc += "[]"
		}
		if pd.IsMandatory {
			desc += " mandatory"
		}
		if pd.IsAutoCreated {
			desc += " autocreated"
		}
		v.Properties = append(v.Properties, desc)
	}
	for _, cd := range def.ChildNodeDefinitions {
		v.ChildNodes = append(v.ChildNodes, fmt.Sprintf("%s (%s)", cd.Name, strings.Join(cd.RequiredPrimaryTypes, ", ")))
	}
	return v
}

type typesView []typeView

func (v typesView) String() string {
	var b strings.Builder
	for i, t := range v {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s]", t.Name)
		if len(t.Supertypes) > 0 {
			fmt.Fprintf(&b, " > %s", strings.Join(t.Supertypes, ", "))
		}
		if t.Abstract {
			b.WriteString(" abstract")
		}
		if t.Mixin {
			b.WriteString(" mixin")
		}
		for _, p := range t.Properties {
			fmt.Fprintf(&b, "\n  - %s", p)
		}
		for _, c := range t.ChildNodes {
			fmt.Fprintf(&b, "\n  + %s", c)
		}
	}
	return b.String()
}
