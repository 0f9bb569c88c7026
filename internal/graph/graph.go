// Package graph implements the directed cell-reference graph. Edges run from
// precedent to dependent: if B5's formula references A1, the edge is A1 → B5.
// Nodes are plain "Sheet!Address" string keys so cycles are ordinary data.
package graph

import "sort"

// Graph is an adjacency-map digraph over cell keys.
type Graph struct {
	nodes      map[string]struct{}
	precedents map[string]map[string]struct{} // dependent -> its precedents
	dependents map[string]map[string]struct{} // precedent -> its dependents
	edgeCount  int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]struct{}),
		precedents: make(map[string]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
	}
}

// AddNode registers a cell key. Adding an existing node is a no-op.
func (g *Graph) AddNode(key string) {
	g.nodes[key] = struct{}{}
}

// AddEdge records that dependent's formula references precedent. Both
// endpoints are added as nodes; duplicate edges collapse.
func (g *Graph) AddEdge(precedent, dependent string) {
	g.AddNode(precedent)
	g.AddNode(dependent)
	if g.dependents[precedent] == nil {
		g.dependents[precedent] = make(map[string]struct{})
	}
	if g.precedents[dependent] == nil {
		g.precedents[dependent] = make(map[string]struct{})
	}
	if _, dup := g.dependents[precedent][dependent]; !dup {
		g.dependents[precedent][dependent] = struct{}{}
		g.precedents[dependent][precedent] = struct{}{}
		g.edgeCount++
	}
}

// HasNode reports whether the key exists in the graph.
func (g *Graph) HasNode(key string) bool {
	_, ok := g.nodes[key]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edgeCount }

// PrecedentsOf returns the cells the given cell's formula references, sorted.
func (g *Graph) PrecedentsOf(key string) []string {
	return sortedKeys(g.precedents[key])
}

// DependentsOf returns the cells whose formulas reference the given cell,
// sorted.
func (g *Graph) DependentsOf(key string) []string {
	return sortedKeys(g.dependents[key])
}

// InDegree returns the number of precedents of a cell.
func (g *Graph) InDegree(key string) int { return len(g.precedents[key]) }

// OutDegree returns the number of dependents of a cell.
func (g *Graph) OutDegree(key string) int { return len(g.dependents[key]) }

// Nodes returns all node keys, sorted.
func (g *Graph) Nodes() []string {
	return sortedKeys(g.nodes)
}

// TraceToDrivers follows precedents transitively from key and returns the
// terminal set: cells with no precedents of their own, plus any cells cut off
// by the depth bound. maxDepth <= 0 means unbounded. The starting cell itself
// is returned when it has no precedents.
func (g *Graph) TraceToDrivers(key string, maxDepth int) []string {
	if !g.HasNode(key) {
		return nil
	}
	type frame struct {
		key   string
		depth int
	}
	drivers := make(map[string]struct{})
	seen := map[string]struct{}{key: {}}
	queue := []frame{{key, 0}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		precs := g.precedents[f.key]
		if len(precs) == 0 {
			drivers[f.key] = struct{}{}
			continue
		}
		if maxDepth > 0 && f.depth >= maxDepth {
			drivers[f.key] = struct{}{}
			continue
		}
		for p := range precs {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			queue = append(queue, frame{p, f.depth + 1})
		}
	}
	return sortedKeys(drivers)
}

// Descendants returns every cell transitively affected by key (all downstream
// dependents), sorted. The starting cell is not included.
func (g *Graph) Descendants(key string) []string {
	if !g.HasNode(key) {
		return nil
	}
	seen := make(map[string]struct{})
	stack := []string{key}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for d := range g.dependents[v] {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			stack = append(stack, d)
		}
	}
	delete(seen, key)
	return sortedKeys(seen)
}

// CycleResult holds the cycles found by Cycles. Truncated means the cap (or
// the internal step budget) was hit and the set is a non-exhaustive sample.
type CycleResult struct {
	Cycles    [][]string
	Truncated bool
}

// Full enumeration of simple cycles is worst-case exponential, so the search
// carries a hard step budget in addition to the caller's cycle cap.
const cycleStepBudget = 500000

// Cycles enumerates simple cycles, at most maxCycles of them (default 100
// when maxCycles <= 0). Each cycle is reported exactly once, rotated so its
// lexicographically smallest member comes first.
func (g *Graph) Cycles(maxCycles int) CycleResult {
	if maxCycles <= 0 {
		maxCycles = 100
	}
	var res CycleResult
	steps := 0

	var stack []string
	onStack := make(map[string]struct{})

	// DFS restricted to nodes >= start finds exactly the cycles whose
	// minimal member is start.
	var dfs func(start, v string) bool
	dfs = func(start, v string) bool {
		for _, w := range g.DependentsOf(v) {
			steps++
			if steps > cycleStepBudget {
				res.Truncated = true
				return false
			}
			if w < start {
				continue
			}
			if w == start {
				// At the cap, one more cycle proves the set is incomplete;
				// until then a cap-sized result may still be exhaustive.
				if len(res.Cycles) >= maxCycles {
					res.Truncated = true
					return false
				}
				cycle := make([]string, len(stack))
				copy(cycle, stack)
				res.Cycles = append(res.Cycles, cycle)
				continue
			}
			if _, ok := onStack[w]; ok {
				continue
			}
			onStack[w] = struct{}{}
			stack = append(stack, w)
			ok := dfs(start, w)
			stack = stack[:len(stack)-1]
			delete(onStack, w)
			if !ok {
				return false
			}
		}
		return true
	}

	for _, start := range g.Nodes() {
		stack = stack[:0]
		stack = append(stack, start)
		onStack = map[string]struct{}{start: {}}
		if !dfs(start, start) {
			break
		}
	}
	return res
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
