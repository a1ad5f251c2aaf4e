package models

// SidebarNodeType tags a node in the navigation tree.
type SidebarNodeType string

const (
	SidebarNodeRoot     SidebarNodeType = "root"
	SidebarNodeBuilding SidebarNodeType = "building"
	SidebarNodeFloor    SidebarNodeType = "floor"
	SidebarNodeSpace    SidebarNodeType = "space"
	SidebarNodeRoom     SidebarNodeType = "room"
)

// SidebarNode is one node of the navigable hierarchy. Node ids are
// namespaced by type ("building:b1", "floor:f2", ...) except the single
// root, whose id is "root".
type SidebarNode struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     SidebarNodeType `json:"type"`
	Children []*SidebarNode  `json:"children"`
}

// NewSidebarRoot returns the session root node.
func NewSidebarRoot() *SidebarNode {
	return &SidebarNode{ID: "root", Name: "Buildings", Type: SidebarNodeRoot, Children: []*SidebarNode{}}
}
