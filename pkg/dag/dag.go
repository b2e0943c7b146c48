// Package dag holds the pack dependency graph and the cycle check run over the
// repository once customizations have been woven in.
package dag

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/types"
)

type (
	// CycleError indicates that the graph contains a cycle. Cycle lists the
	// nodes along it, with the first node repeated at the end.
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph keyed by pack name. An edge from A to B means
	// A must be built before B, that is B depends on A.
	Graph struct {
		adjacency map[string][]string
		// insertion order, for deterministic output
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// FromSnapshot builds the dependency graph of every pack in snapshot.
// Dependencies on packs that are not in the snapshot still become nodes.
func FromSnapshot(snapshot types.Snapshot) *Graph {
	g := New()
	for _, p := range snapshot.Packages {
		g.AddNode(p.FullName())
		for _, dep := range p.Dependencies {
			g.AddEdge(dep.Name, p.FullName())
		}
	}
	return g
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to. Both nodes are added if needed.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len is the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TopologicalSort returns a build order using Kahn's algorithm, or a
// CycleError naming one cycle. Nodes at the same level keep insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, &CycleError{Cycle: g.cycleAmong(inDegree)}
	}
	return result, nil
}

// cycleAmong extracts one cycle from the nodes Kahn's algorithm could not
// order. Each of them still has an unordered predecessor, so walking
// predecessors must come back to a node already seen.
func (g *Graph) cycleAmong(inDegree map[string]int) []string {
	predecessor := make(map[string]string)
	for _, from := range g.nodes {
		if inDegree[from] == 0 {
			continue
		}
		for _, to := range g.adjacency[from] {
			if inDegree[to] > 0 {
				if _, ok := predecessor[to]; !ok {
					predecessor[to] = from
				}
			}
		}
	}

	var start string
	for _, node := range g.nodes {
		if inDegree[node] > 0 {
			start = node
			break
		}
	}

	seen := make(map[string]int)
	var walk []string
	for node := start; ; node = predecessor[node] {
		if i, ok := seen[node]; ok {
			cycle := append([]string(nil), walk[i:]...)
			return append(cycle, node)
		}
		seen[node] = len(walk)
		walk = append(walk, node)
	}
}

// Verify fails with a DEPENDENCY_CYCLE error if the packs of snapshot
// depend on each other in a cycle.
func Verify(snapshot types.Snapshot) error {
	if _, err := FromSnapshot(snapshot).TopologicalSort(); err != nil {
		return errors.Wrap(err, errors.ErrDependencyCycle, "pack dependencies form a cycle").
			WithDetail("root", snapshot.Root)
	}
	return nil
}
