package nodetype

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/damz/jackalope/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileError reports an invalid node type definition, with the CUE source
// position when one is known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileSource compiles node type definitions from CUE source text.
func CompileSource(filename, src string) ([]ir.NodeTypeDefinition, error) {
	ctx := cuecontext.New()
	return Compile(ctx.CompileString(src, cue.Filename(filename)))
}

// LoadDir loads every CUE file of the package in dir and compiles the node
// types it declares.
func LoadDir(dir string) ([]ir.NodeTypeDefinition, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("load node types: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("load node types: not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load node types: no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	return Compile(ctx.BuildInstance(inst))
}

// Compile turns a CUE value holding a top-level nodetypes struct into node
// type definitions, in declaration order. The value is checked against the
// definition schema first, so unknown fields and wrong kinds are rejected.
func Compile(v cue.Value) ([]ir.NodeTypeDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if !v.LookupPath(cue.ParsePath("nodetypes")).Exists() {
		return nil, &CompileError{Field: "nodetypes", Message: "nodetypes is required", Pos: v.Pos()}
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v = v.Unify(schema)
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.LookupPath(cue.ParsePath("nodetypes")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	defs := make([]ir.NodeTypeDefinition, 0)
	for iter.Next() {
		def, err := compileNodeType(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func compileNodeType(name string, v cue.Value) (ir.NodeTypeDefinition, error) {
	def := ir.NodeTypeDefinition{Name: name}
	var err error

	if def.DeclaredSupertypes, err = stringList(v, "supertypes"); err != nil {
		return def, err
	}
	if def.IsAbstract, err = boolField(v, "abstract", false); err != nil {
		return def, err
	}
	if def.IsMixin, err = boolField(v, "mixin", false); err != nil {
		return def, err
	}
	if def.IsQueryable, err = boolField(v, "queryable", true); err != nil {
		return def, err
	}
	if def.HasOrderableChildNodes, err = boolField(v, "orderable", false); err != nil {
		return def, err
	}
	if def.PrimaryItemName, err = stringField(v, "primaryItem", ""); err != nil {
		return def, err
	}

	def.PropertyDefinitions = make([]ir.PropertyDefinition, 0)
	if err := eachField(v, "properties", func(propName string, pv cue.Value) error {
		pd, err := compilePropertyDefinition(propName, pv)
		if err != nil {
			return err
		}
		def.PropertyDefinitions = append(def.PropertyDefinitions, pd)
		return nil
	}); err != nil {
		return def, err
	}

	def.ChildNodeDefinitions = make([]ir.ChildNodeDefinition, 0)
	if err := eachField(v, "children", func(childName string, cv cue.Value) error {
		cd, err := compileChildDefinition(childName, cv)
		if err != nil {
			return err
		}
		def.ChildNodeDefinitions = append(def.ChildNodeDefinitions, cd)
		return nil
	}); err != nil {
		return def, err
	}

	return def, nil
}

func compilePropertyDefinition(name string, v cue.Value) (ir.PropertyDefinition, error) {
	pd := ir.PropertyDefinition{Name: name}

	typeName, err := stringField(v, "type", "undefined")
	if err != nil {
		return pd, err
	}
	if typeName != "undefined" {
		if pd.RequiredType, err = ir.ParsePropertyType(typeName); err != nil {
			return pd, &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
		}
	}

	fields := []struct {
		name string
		def  bool
		dst  *bool
	}{
		{"multiple", false, &pd.IsMultiple},
		{"mandatory", false, &pd.IsMandatory},
		{"autoCreated", false, &pd.IsAutoCreated},
		{"protected", false, &pd.IsProtected},
		{"fullTextSearchable", true, &pd.IsFullTextSearch},
		{"queryOrderable", true, &pd.IsQueryOrderable},
	}
	for _, f := range fields {
		if *f.dst, err = boolField(v, f.name, f.def); err != nil {
			return pd, err
		}
	}

	if pd.OnParentVersion, err = onParentVersion(v); err != nil {
		return pd, err
	}
	if pd.QueryOperators, err = stringList(v, "queryOperators"); err != nil {
		return pd, err
	}
	if pd.DefaultValues, err = stringList(v, "default"); err != nil {
		return pd, err
	}
	return pd, nil
}

func compileChildDefinition(name string, v cue.Value) (ir.ChildNodeDefinition, error) {
	cd := ir.ChildNodeDefinition{Name: name}
	var err error

	if cd.RequiredPrimaryTypes, err = stringList(v, "requiredTypes"); err != nil {
		return cd, err
	}
	if cd.DefaultPrimaryType, err = stringField(v, "defaultType", ""); err != nil {
		return cd, err
	}
	if cd.IsMandatory, err = boolField(v, "mandatory", false); err != nil {
		return cd, err
	}
	if cd.IsAutoCreated, err = boolField(v, "autoCreated", false); err != nil {
		return cd, err
	}
	if cd.IsProtected, err = boolField(v, "protected", false); err != nil {
		return cd, err
	}
	if cd.AllowsSameNameSibs, err = boolField(v, "sameNameSiblings", false); err != nil {
		return cd, err
	}
	if cd.OnParentVersion, err = onParentVersion(v); err != nil {
		return cd, err
	}
	return cd, nil
}

func onParentVersion(v cue.Value) (ir.OnParentVersion, error) {
	name, err := stringField(v, "onParentVersion", "")
	if err != nil {
		return 0, err
	}
	opv, err := ir.ParseOnParentVersion(name)
	if err != nil {
		return 0, &CompileError{Field: "onParentVersion", Message: err.Error(), Pos: v.Pos()}
	}
	return opv, nil
}

// field returns the concrete value of an optional field, or ok=false when
// the field is absent or only constrained by the schema.
func field(v cue.Value, name string) (cue.Value, bool) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() || !f.IsConcrete() {
		return f, false
	}
	return f, true
}

func boolField(v cue.Value, name string, def bool) (bool, error) {
	f, ok := field(v, name)
	if !ok {
		return def, nil
	}
	b, err := f.Bool()
	if err != nil {
		return def, formatCUEError(err)
	}
	return b, nil
}

func stringField(v cue.Value, name, def string) (string, error) {
	f, ok := field(v, name)
	if !ok {
		return def, nil
	}
	s, err := f.String()
	if err != nil {
		return def, formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value, name string) ([]string, error) {
	out := make([]string, 0)
	f, ok := field(v, name)
	if !ok {
		return out, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func eachField(v cue.Value, name string, fn func(label string, fv cue.Value) error) error {
	f, ok := field(v, name)
	if !ok {
		return nil
	}
	iter, err := f.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	ce := &CompileError{Field: "cue", Message: err.Error()}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return ce
	}

	// Disjunction failures often carry no position of their own.
	ce.Message = errs[0].Error()
	for _, e := range errs {
		if positions := errors.Positions(e); len(positions) > 0 {
			ce.Pos = positions[0]
			break
		}
	}
	return ce
}
