package shell

// RouteState is the navigation tree as reported by the device shell. Only
// the active branch matters; Index selects which child is active at each
// level. Mirrors the shape navigation containers serialize.
type RouteState struct {
	Name   string       `json:"name"`
	Index  int          `json:"index"`
	Routes []RouteState `json:"routes,omitempty"`
}

// ResolveDeepestRoute walks the active branch of a possibly-nested route
// tree and returns the name of the deepest active route. A nil or empty
// tree resolves to "".
func ResolveDeepestRoute(root *RouteState) string {
	if root == nil {
		return ""
	}

	node := *root
	for {
		if len(node.Routes) == 0 {
			return node.Name
		}
		idx := node.Index
		if idx < 0 || idx >= len(node.Routes) {
			idx = len(node.Routes) - 1
		}
		node = node.Routes[idx]
	}
}
