package ir

import "fmt"

// PropertyType identifies the type of a property value. The numbering follows
// the JCR property type constants so persisted type definitions stay
// compatible with other implementations.
type PropertyType int

const (
	TypeUndefined     PropertyType = 0
	TypeString        PropertyType = 1
	TypeBinary        PropertyType = 2
	TypeLong          PropertyType = 3
	TypeDouble        PropertyType = 4
	TypeDate          PropertyType = 5
	TypeBoolean       PropertyType = 6
	TypeName          PropertyType = 7
	TypePath          PropertyType = 8
	TypeReference     PropertyType = 9
	TypeWeakReference PropertyType = 10
	TypeURI           PropertyType = 11
	TypeDecimal       PropertyType = 12
)

var typeNames = map[PropertyType]string{
	TypeUndefined:     "undefined",
	TypeString:        "String",
	TypeBinary:        "Binary",
	TypeLong:          "Long",
	TypeDouble:        "Double",
	TypeDate:          "Date",
	TypeBoolean:       "Boolean",
	TypeName:          "Name",
	TypePath:          "Path",
	TypeReference:     "Reference",
	TypeWeakReference: "WeakReference",
	TypeURI:           "URI",
	TypeDecimal:       "Decimal",
}

var typesByName = func() map[string]PropertyType {
	m := make(map[string]PropertyType, len(typeNames))
	for t, name := range typeNames {
		m[name] = t
	}
	return m
}()

// Name returns the canonical name of the type, as used in payloads and
// type definition files.
func (t PropertyType) Name() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PropertyType(%d)", int(t))
}

// String implements fmt.Stringer.
func (t PropertyType) String() string {
	return t.Name()
}

// Valid reports whether t is one of the defined types.
func (t PropertyType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// IsText reports whether values of this type are carried as StringValue.
func (t PropertyType) IsText() bool {
	switch t {
	case TypeString, TypeName, TypePath, TypeReference, TypeWeakReference, TypeURI:
		return true
	}
	return false
}

// IsReference reports whether the type creates a reference edge.
func (t PropertyType) IsReference() bool {
	return t == TypeReference || t == TypeWeakReference
}

// ParsePropertyType returns the type with the given canonical name.
func ParsePropertyType(name string) (PropertyType, error) {
	t, ok := typesByName[name]
	if !ok {
		return TypeUndefined, NewFormatError("", fmt.Sprintf("unknown property type %q", name))
	}
	return t, nil
}

// Property is a named, typed, single- or multi-valued attribute of a node.
// A single-valued property carries exactly one value.
type Property struct {
	Name     string
	Type     PropertyType
	Multiple bool
	Values   []Value
}

// Value returns the first value of the property, or nil when it has none.
func (p Property) Value() Value {
	if len(p.Values) == 0 {
		return nil
	}
	return p.Values[0]
}

// Single builds a single-valued property.
func Single(name string, t PropertyType, v Value) Property {
	return Property{Name: name, Type: t, Values: []Value{v}}
}

// Multi builds a multi-valued property. Values may be empty.
func Multi(name string, t PropertyType, vs ...Value) Property {
	if vs == nil {
		vs = []Value{}
	}
	return Property{Name: name, Type: t, Multiple: true, Values: vs}
}

// FindProperty returns the property with the given name.
func FindProperty(props []Property, name string) (Property, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}
