package nodetype

import (
	_ "embed"
	"sync"

	"github.com/damz/jackalope/internal/ir"
)

//go:embed builtin.cue
var builtinSource string

var (
	builtinOnce   sync.Once
	builtinByName map[string]ir.NodeTypeDefinition
	builtinOrder  []string
	builtinErr    error
)

func loadBuiltins() (map[string]ir.NodeTypeDefinition, []string, error) {
	builtinOnce.Do(func() {
		defs, err := CompileSource("builtin.cue", builtinSource)
		if err != nil {
			builtinErr = err
			return
		}
		builtinByName = make(map[string]ir.NodeTypeDefinition, len(defs))
		builtinOrder = make([]string, 0, len(defs))
		for _, def := range defs {
			builtinByName[def.Name] = def
			builtinOrder = append(builtinOrder, def.Name)
		}
	})
	return builtinByName, builtinOrder, builtinErr
}

// Builtins returns the built-in node type definitions in declaration order.
func Builtins() ([]ir.NodeTypeDefinition, error) {
	byName, order, err := loadBuiltins()
	if err != nil {
		return nil, err
	}
	defs := make([]ir.NodeTypeDefinition, 0, len(order))
	for _, name := range order {
		defs = append(defs, byName[name])
	}
	return defs, nil
}

// IsBuiltin reports whether name is a built-in node type.
func IsBuiltin(name string) bool {
	byName, _, err := loadBuiltins()
	if err != nil {
		return false
	}
	_, ok := byName[name]
	return ok
}
