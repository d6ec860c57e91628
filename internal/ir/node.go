package ir

// Node is a stored node as read back from a workspace.
type Node struct {
	// ID is the backend row id. It is unique across workspaces.
	ID int64

	Path       string
	Parent     string
	Identifier string

	// PrimaryType is the name of the node's primary node type.
	PrimaryType string

	// LocalName and Namespace are split from the last path segment.
	LocalName string
	Namespace string

	Properties []Property

	// Children holds the paths of direct children, ordered by path.
	Children []string
}

// Property returns the node property with the given name.
func (n *Node) Property(name string) (Property, bool) {
	return FindProperty(n.Properties, name)
}

// Strength is the kind of a reference edge.
type Strength string

const (
	// StrengthStrong edges block deletion of their target.
	StrengthStrong Strength = "strong"

	// StrengthWeak edges are informational.
	StrengthWeak Strength = "weak"
)

// StrengthFor returns the edge strength for a reference property type.
func StrengthFor(t PropertyType) Strength {
	if t == TypeWeakReference {
		return StrengthWeak
	}
	return StrengthStrong
}

// ReferenceEdge is a persisted reference from a node property to a node.
type ReferenceEdge struct {
	SourceID       int64
	SourceProperty string
	TargetID       int64
	Strength       Strength
}

// Reference is an incoming reference as reported to callers.
type Reference struct {
	// SourcePath is the path of the referring node.
	SourcePath string

	// Property is the name of the referring property.
	Property string
}

// PropertyPath returns "SourcePath/Property".
func (r Reference) PropertyPath() string {
	if r.SourcePath == "/" {
		return "/" + r.Property
	}
	return r.SourcePath + "/" + r.Property
}
