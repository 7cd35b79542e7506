// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"sort"
	"strings"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
)

// depGraph is the capability dependency graph built by backward chaining.
// An edge A -> B means B depends on A: A provides a context type B requires.
type depGraph struct {
	nodes map[string]core.Capability
	// dependents[a] lists capabilities that depend on a.
	dependents map[string][]string
	// deps[b] lists capabilities b depends on.
	deps map[string][]string
	// providers marks capabilities selected to produce some needed type,
	// as opposed to nodes present only because the goal names them.
	providers map[string]bool
}

func newDepGraph() *depGraph {
	return &depGraph{
		nodes:      make(map[string]core.Capability),
		dependents: make(map[string][]string),
		deps:       make(map[string][]string),
		providers:  make(map[string]bool),
	}
}

func (g *depGraph) addNode(c core.Capability) {
	if _, ok := g.nodes[c.ID()]; ok {
		return
	}
	g.nodes[c.ID()] = c
}

func (g *depGraph) addEdge(from, to string) {
	for _, existing := range g.dependents[from] {
		if existing == to {
			return
		}
	}
	g.dependents[from] = append(g.dependents[from], to)
	g.deps[to] = append(g.deps[to], from)
}

// checkAcyclic runs a DFS over the graph and reports the first cycle
// found as a cyclic resolution error, including the offending path.
func (g *depGraph) checkAcyclic() error {
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}
		if cycle := g.findCycle(id, visited, inStack, nil); cycle != nil {
			return errors.Newf(errors.CodeCyclic,
				"capability dependency cycle: %s", strings.Join(cycle, " -> "))
		}
	}
	return nil
}

func (g *depGraph) findCycle(id string, visited, inStack map[string]bool, path []string) []string {
	visited[id] = true
	inStack[id] = true
	path = append(path, id)

	for _, next := range g.dependents[id] {
		if !visited[next] {
			if cycle := g.findCycle(next, visited, inStack, path); cycle != nil {
				return cycle
			}
		} else if inStack[next] {
			// Trim the path to the cycle entry point.
			start := 0
			for i, p := range path {
				if p == next {
					start = i
					break
				}
			}
			return append(path[start:], next)
		}
	}

	inStack[id] = false
	return nil
}

// levels groups the graph into execution levels with Kahn's algorithm.
// Capabilities within a level have no dependency edge between them and
// may run concurrently. Ties are broken by registration order so the
// result is deterministic for a fixed registry state.
func (g *depGraph) levels(index func(id string) int) [][]core.Capability {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.deps[id])
	}

	current := make([]string, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			current = append(current, id)
		}
	}

	var out [][]core.Capability
	for len(current) > 0 {
		sort.Slice(current, func(i, j int) bool {
			return index(current[i]) < index(current[j])
		})
		level := make([]core.Capability, 0, len(current))
		for _, id := range current {
			level = append(level, g.nodes[id])
		}
		out = append(out, level)

		var next []string
		for _, id := range current {
			for _, dep := range g.dependents[id] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}
	return out
}
