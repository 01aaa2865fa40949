package domain

import m "regcov.dev/pkg/regcov/internal/model"

// DependencyGraph is the transient owner/resource index built during one
// selection pass.
type DependencyGraph struct {
	dependents map[string]map[string]struct{}
	resources  map[string]map[string]struct{}
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dependents: map[string]map[string]struct{}{},
		resources:  map[string]map[string]struct{}{},
	}
}

// Add records that owner depends on resource.
func (g *DependencyGraph) Add(owner, resource string) {
	addEdge(g.dependents, resource, owner)
	addEdge(g.resources, owner, resource)
}

// DependentsOf returns the owners depending on resource, sorted.
func (g *DependencyGraph) DependentsOf(resource string) []string {
	return m.SortedKeys(g.dependents[resource])
}

// ResourcesOf returns the resources owner depends on, sorted.
func (g *DependencyGraph) ResourcesOf(owner string) []string {
	return m.SortedKeys(g.resources[owner])
}

func addEdge(index map[string]map[string]struct{}, from, to string) {
	set, ok := index[from]
	if !ok {
		set = map[string]struct{}{}
		index[from] = set
	}

	set[to] = struct{}{}
}
