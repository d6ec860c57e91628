// Package version reads version histories stored as ordinary nodes: a
// history node holds jcr:rootVersion, and every version lists the versions
// that follow it in its jcr:successors references.
package version

import (
	"context"
	"fmt"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
)

const (
	rootVersionName    = "jcr:rootVersion"
	successorsProperty = "jcr:successors"
)

// Source reads nodes. *store.Session satisfies it.
type Source interface {
	GetNode(ctx context.Context, path string) (*ir.Node, error)
	PathForIdentifier(ctx context.Context, identifier string) (string, error)
}

// History is the version history rooted at one node. The version graph is
// read once and cached.
type History struct {
	source Source
	path   string

	versions []*ir.Node
	byName   map[string]*ir.Node
}

// NewHistory returns the history whose node lives at path.
func NewHistory(source Source, path string) *History {
	return &History{source: source, path: path}
}

// RootVersion returns the first version of the history.
func (h *History) RootVersion(ctx context.Context) (*ir.Node, error) {
	n, err := h.source.GetNode(ctx, jcrpath.Join(h.path, rootVersionName))
	if err != nil {
		return nil, fmt.Errorf("root version of %s: %w", h.path, err)
	}
	return n, nil
}

// AllVersions returns every version reachable from the root version
// through jcr:successors, depth first in successor order. Each version
// appears once even when the graph merges or loops back.
func (h *History) AllVersions(ctx context.Context) ([]*ir.Node, error) {
	if h.versions != nil {
		return h.versions, nil
	}

	root, err := h.RootVersion(ctx)
	if err != nil {
		return nil, err
	}

	versions := make([]*ir.Node, 0)
	byName := make(map[string]*ir.Node)
	visited := make(map[string]bool)
	stack := []*ir.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n.Identifier] {
			continue
		}
		visited[n.Identifier] = true

		name := jcrpath.Name(n.Path)
		if _, ok := byName[name]; !ok {
			byName[name] = n
			versions = append(versions, n)
		}

		successors, err := h.successors(ctx, n)
		if err != nil {
			return nil, err
		}
		for i := len(successors) - 1; i >= 0; i-- {
			if !visited[successors[i].Identifier] {
				stack = append(stack, successors[i])
			}
		}
	}

	h.versions = versions
	h.byName = byName
	return versions, nil
}

func (h *History) successors(ctx context.Context, n *ir.Node) ([]*ir.Node, error) {
	p, ok := n.Property(successorsProperty)
	if !ok {
		return nil, nil
	}
	out := make([]*ir.Node, 0, len(p.Values))
	for _, v := range p.Values {
		path, err := h.source.PathForIdentifier(ctx, v.String())
		if err != nil {
			return nil, fmt.Errorf("successor of %s: %w", n.Path, err)
		}
		succ, err := h.source.GetNode(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("successor of %s: %w", n.Path, err)
		}
		out = append(out, succ)
	}
	return out, nil
}

// Version returns the version with the given name.
func (h *History) Version(ctx context.Context, name string) (*ir.Node, error) {
	if _, err := h.AllVersions(ctx); err != nil {
		return nil, err
	}
	n, ok := h.byName[name]
	if !ok {
		return nil, ir.NewNotFoundError(h.path, "no version "+name)
	}
	return n, nil
}

// VersionableIdentifier is not supported.
func (h *History) VersionableIdentifier(ctx context.Context) (string, error) {
	return "", ir.NewNotImplementedError("versionable identifier")
}

// AllLinearVersions is not supported.
func (h *History) AllLinearVersions(ctx context.Context) ([]*ir.Node, error) {
	return nil, ir.NewNotImplementedError("linear versions")
}

// AllFrozenNodes is not supported.
func (h *History) AllFrozenNodes(ctx context.Context) ([]*ir.Node, error) {
	return nil, ir.NewNotImplementedError("frozen nodes")
}

// VersionByLabel is not supported.
func (h *History) VersionByLabel(ctx context.Context, label string) (*ir.Node, error) {
	return nil, ir.NewNotImplementedError("version labels")
}

// AddVersionLabel is not supported.
func (h *History) AddVersionLabel(ctx context.Context, version, label string, move bool) error {
	return ir.NewNotImplementedError("version labels")
}

// RemoveVersionLabel is not supported.
func (h *History) RemoveVersionLabel(ctx context.Context, label string) error {
	return ir.NewNotImplementedError("version labels")
}

// RemoveVersion is not supported.
func (h *History) RemoveVersion(ctx context.Context, name string) error {
	return ir.NewNotImplementedError("remove version")
}
