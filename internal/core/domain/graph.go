package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the dependency graph of a build set. An edge A -> B means A depends on B.
type Graph struct {
	resources      map[InternedString]*Resource
	declared       []InternedString
	position       map[InternedString]int
	dependencies   map[InternedString][]InternedString
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		resources:    make(map[InternedString]*Resource),
		position:     make(map[InternedString]int),
		dependencies: make(map[InternedString][]InternedString),
		dependents:   make(map[InternedString][]InternedString),
	}
}

// Resolve builds a graph from the build set and orders it.
// It fails on duplicate labels, unknown dependency labels and cycles, in that order.
func Resolve(set *BuildSet) (*Graph, error) {
	g := NewGraph()
	for _, r := range set.Resources() {
		if err := g.AddResource(r); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// AddResource adds a resource to the graph.
// It returns an error if a resource with the same label already exists.
func (g *Graph) AddResource(r *Resource) error {
	if _, exists := g.resources[r.Label]; exists {
		return Tag(ErrDuplicateLabel, "label", r.Label.String())
	}
	g.position[r.Label] = len(g.declared)
	g.declared = append(g.declared, r.Label)
	g.resources[r.Label] = r
	return nil
}

// Validate checks references and cycles with a depth-first topological sort.
// Roots and dependency lists are visited in declaration order, so the resulting
// order only depends on the declarations. It populates the execution order if successful.
func (g *Graph) Validate() error {
	if err := g.linkDependencies(); err != nil {
		return err
	}

	g.executionOrder = make([]InternedString, 0, len(g.declared))
	visited := make(map[InternedString]int, len(g.declared)) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		for _, dep := range g.dependencies[u] {
			switch visited[dep] {
			case 1:
				return g.buildCycleError(path, dep)
			case 0:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, label := range g.declared {
		if visited[label] == 0 {
			if err := visit(label); err != nil {
				g.executionOrder = nil
				return err
			}
		}
	}

	return nil
}

// linkDependencies resolves every dependency reference and builds both adjacency lists.
// Repeated references to the same label collapse into one edge.
func (g *Graph) linkDependencies() error {
	clear(g.dependencies)
	clear(g.dependents)

	for _, label := range g.declared {
		r := g.resources[label]
		deps := make([]InternedString, 0, len(r.Dependencies))
		for _, dep := range r.Dependencies {
			if _, ok := g.resources[dep]; !ok {
				return Tag(ErrUnresolvedDependency,
					"dependency", dep.String(),
					"dependent", label.String(),
				)
			}
			if !slices.Contains(deps, dep) {
				deps = append(deps, dep)
			}
		}
		slices.SortStableFunc(deps, func(a, b InternedString) int {
			return g.position[a] - g.position[b]
		})
		g.dependencies[label] = deps
		for _, dep := range deps {
			g.dependents[dep] = append(g.dependents[dep], label)
		}
	}
	return nil
}

// buildCycleError constructs an error with the cycle labels in detection order.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := slices.Index(path, dep)
	cycle := Strings(path[startIdx:])

	var b strings.Builder
	for _, label := range cycle {
		b.WriteString(label)
		b.WriteString(" -> ")
	}
	b.WriteString(dep.String())

	return zerr.With(Tag(ErrCyclicDependency, "cycle", cycle), "path", b.String())
}

// Walk returns an iterator that yields resources in build order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[*Resource] {
	return func(yield func(*Resource) bool) {
		for _, label := range g.executionOrder {
			if !yield(g.resources[label]) {
				return
			}
		}
	}
}

// Order returns the labels in build order.
func (g *Graph) Order() []InternedString {
	return slices.Clone(g.executionOrder)
}

// GetResource returns the resource with the given label.
func (g *Graph) GetResource(label InternedString) (*Resource, bool) {
	r, ok := g.resources[label]
	return r, ok
}

// Dependencies returns the direct dependencies of label in declaration order.
func (g *Graph) Dependencies(label InternedString) []InternedString {
	return slices.Clone(g.dependencies[label])
}

// Dependents returns the resources that directly depend on label, in declaration order.
func (g *Graph) Dependents(label InternedString) []InternedString {
	return slices.Clone(g.dependents[label])
}

// ResourceCount returns the number of resources in the graph.
func (g *Graph) ResourceCount() int {
	return len(g.declared)
}
