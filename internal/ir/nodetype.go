package ir

// NodeTypeDefinition describes the structure a node of a given type must
// have. Built-in definitions and persisted user definitions share this type.
type NodeTypeDefinition struct {
	Name                   string
	DeclaredSupertypes     []string
	IsAbstract             bool
	IsMixin                bool
	IsQueryable            bool
	HasOrderableChildNodes bool
	PrimaryItemName        string
	PropertyDefinitions    []PropertyDefinition
	ChildNodeDefinitions   []ChildNodeDefinition
}

// PropertyDefinition describes a property declared by a node type.
type PropertyDefinition struct {
	Name             string
	RequiredType     PropertyType
	IsMultiple       bool
	IsAutoCreated    bool
	IsMandatory      bool
	IsProtected      bool
	OnParentVersion  OnParentVersion
	IsFullTextSearch bool
	IsQueryOrderable bool
	QueryOperators   []string
	DefaultValues    []string
}

// ChildNodeDefinition describes a child node declared by a node type.
type ChildNodeDefinition struct {
	Name                 string
	IsAutoCreated        bool
	IsMandatory          bool
	IsProtected          bool
	OnParentVersion      OnParentVersion
	RequiredPrimaryTypes []string
	DefaultPrimaryType   string
	AllowsSameNameSibs   bool
}

// OnParentVersion is the versioning behavior of an item definition.
type OnParentVersion int

const (
	OnParentVersionCopy       OnParentVersion = 1
	OnParentVersionVersion    OnParentVersion = 2
	OnParentVersionInitialize OnParentVersion = 3
	OnParentVersionCompute    OnParentVersion = 4
	OnParentVersionIgnore     OnParentVersion = 5
	OnParentVersionAbort      OnParentVersion = 6
)

var onParentVersionNames = map[string]OnParentVersion{
	"COPY":       OnParentVersionCopy,
	"VERSION":    OnParentVersionVersion,
	"INITIALIZE": OnParentVersionInitialize,
	"COMPUTE":    OnParentVersionCompute,
	"IGNORE":     OnParentVersionIgnore,
	"ABORT":      OnParentVersionAbort,
}

// ParseOnParentVersion returns the action with the given name.
// The empty string means COPY.
func ParseOnParentVersion(name string) (OnParentVersion, error) {
	if name == "" {
		return OnParentVersionCopy, nil
	}
	opv, ok := onParentVersionNames[name]
	if !ok {
		return 0, NewFormatError("", "unknown on-parent-version action "+name)
	}
	return opv, nil
}

// String returns the action name.
func (o OnParentVersion) String() string {
	for name, v := range onParentVersionNames {
		if v == o {
			return name
		}
	}
	return "COPY"
}
