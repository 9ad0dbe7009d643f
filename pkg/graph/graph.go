// Copyright 2020 The Kubernetes Authors.
// SPDX-License-Identifier: Apache-2.0

// Package graph provides a directed graph of logical resource names and the
// topological sort that turns it into apply waves.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is a directed set of edges, implemented as an adjacency list (map
// key is the "from" vertex, the set holds the "to" vertices). An edge
// from A to B means A depends on B.
type Graph struct {
	edges map[string]map[string]struct{}
	// order keeps vertices in the order they were first added, so sorting
	// is deterministic.
	order map[string]int
}

// Edge encapsulates a pair of vertices describing a directed edge.
type Edge struct {
	From string
	To   string
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		edges: map[string]map[string]struct{}{},
		order: map[string]int{},
	}
}

// AddVertex adds a vertex with no edges, if it is not present yet.
func (g *Graph) AddVertex(v string) {
	if _, exists := g.edges[v]; !exists {
		g.edges[v] = map[string]struct{}{}
		g.order[v] = len(g.order)
	}
}

// AddEdge adds the edge "from" -> "to", adding missing vertices first.
func (g *Graph) AddEdge(from, to string) {
	g.AddVertex(from)
	g.AddVertex(to)
	g.edges[from][to] = struct{}{}
}

// Edges returns the edges of the graph, ordered by vertex insertion.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range g.vertices() {
		for _, to := range g.sorted(g.edges[from]) {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// Dependencies returns the vertices v has an edge to.
func (g *Graph) Dependencies(v string) []string {
	return g.sorted(g.edges[v])
}

// Size returns the number of vertices in the graph.
func (g *Graph) Size() int {
	return len(g.edges)
}

// Sort returns the vertices in sets: every vertex comes after all the
// vertices it depends on, and vertices within one set are independent of
// each other. The graph is not modified.
func (g *Graph) Sort() ([][]string, error) {
	remaining := make(map[string]map[string]struct{}, len(g.edges))
	for v, adj := range g.edges {
		deps := make(map[string]struct{}, len(adj))
		for to := range adj {
			deps[to] = struct{}{}
		}
		remaining[v] = deps
	}

	var sorted [][]string
	for len(remaining) > 0 {
		var leaves []string
		for v, adj := range remaining {
			if len(adj) == 0 {
				leaves = append(leaves, v)
			}
		}
		if len(leaves) == 0 {
			return sorted, CyclicDependencyError{Vertices: g.sortedKeys(remaining)}
		}
		leaves = g.sorted(toSet(leaves))
		for _, leaf := range leaves {
			delete(remaining, leaf)
		}
		for _, adj := range remaining {
			for _, leaf := range leaves {
				delete(adj, leaf)
			}
		}
		sorted = append(sorted, leaves)
	}
	return sorted, nil
}

// CyclicDependencyError is returned when the graph has no topological
// order. Vertices holds every vertex that could not be ordered.
type CyclicDependencyError struct {
	Vertices []string
}

func (e CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency between: %s", strings.Join(e.Vertices, ", "))
}

// Is matches a CyclicDependencyError over the same vertices.
func (e CyclicDependencyError) Is(target error) bool {
	switch t := target.(type) {
	case CyclicDependencyError:
		return equalVertices(e.Vertices, t.Vertices)
	case *CyclicDependencyError:
		return t != nil && equalVertices(e.Vertices, t.Vertices)
	}
	return false
}

func equalVertices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (g *Graph) vertices() []string {
	vs := make(map[string]struct{}, len(g.edges))
	for v := range g.edges {
		vs[v] = struct{}{}
	}
	return g.sorted(vs)
}

func (g *Graph) sortedKeys(m map[string]map[string]struct{}) []string {
	set := make(map[string]struct{}, len(m))
	for k := range m {
		set[k] = struct{}{}
	}
	return g.sorted(set)
}

func (g *Graph) sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return g.order[out[i]] < g.order[out[j]]
	})
	return out
}

func toSet(vs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return set
}
