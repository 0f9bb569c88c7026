package graph

import (
	"reflect"
	"testing"
)

func TestAddEdgeCreatesNodes(t *testing.T) {
	g := New()
	g.AddEdge("Model!A1", "Model!B5")

	if !g.HasNode("Model!A1") || !g.HasNode("Model!B5") {
		t.Fatal("expected both endpoints to exist as nodes")
	}
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount = %d, want 2", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}

	// Duplicate edges collapse
	g.AddEdge("Model!A1", "Model!B5")
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount after duplicate = %d, want 1", g.EdgeCount())
	}
}

func TestPrecedentsAndDependents(t *testing.T) {
	g := New()
	g.AddEdge("S!A1", "S!C1")
	g.AddEdge("S!B1", "S!C1")
	g.AddEdge("S!C1", "S!D1")

	if got := g.PrecedentsOf("S!C1"); !reflect.DeepEqual(got, []string{"S!A1", "S!B1"}) {
		t.Errorf("PrecedentsOf(C1) = %v", got)
	}
	if got := g.DependentsOf("S!C1"); !reflect.DeepEqual(got, []string{"S!D1"}) {
		t.Errorf("DependentsOf(C1) = %v", got)
	}
	if g.InDegree("S!C1") != 2 || g.OutDegree("S!C1") != 1 {
		t.Errorf("degrees = %d/%d, want 2/1", g.InDegree("S!C1"), g.OutDegree("S!C1"))
	}
}

func TestTraceToDrivers(t *testing.T) {
	// A1 -> B1 -> C1 -> D1, plus E1 -> C1
	g := New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!B1", "S!C1")
	g.AddEdge("S!E1", "S!C1")
	g.AddEdge("S!C1", "S!D1")

	got := g.TraceToDrivers("S!D1", 0)
	want := []string{"S!A1", "S!E1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TraceToDrivers(D1) = %v, want %v", got, want)
	}
}

func TestTraceToDriversDepthBound(t *testing.T) {
	g := New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!B1", "S!C1")

	// Depth 1 stops at the immediate precedent.
	got := g.TraceToDrivers("S!C1", 1)
	want := []string{"S!B1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TraceToDrivers(C1, 1) = %v, want %v", got, want)
	}
}

func TestTraceToDriversNoPrecedents(t *testing.T) {
	g := New()
	g.AddNode("S!A1")

	got := g.TraceToDrivers("S!A1", 0)
	if !reflect.DeepEqual(got, []string{"S!A1"}) {
		t.Errorf("TraceToDrivers(A1) = %v, want the cell itself", got)
	}
	if got := g.TraceToDrivers("S!Z99", 0); got != nil {
		t.Errorf("TraceToDrivers(missing) = %v, want nil", got)
	}
}

func TestDescendants(t *testing.T) {
	g := New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!B1", "S!C1")
	g.AddEdge("S!B1", "S!D1")
	g.AddNode("S!E1")

	got := g.Descendants("S!A1")
	want := []string{"S!B1", "S!C1", "S!D1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Descendants(A1) = %v, want %v", got, want)
	}
	if got := g.Descendants("S!E1"); got != nil {
		t.Errorf("Descendants(E1) = %v, want nil", got)
	}
}

func TestCyclesFindsTwoCellCycle(t *testing.T) {
	g := New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!B1", "S!A1")

	res := g.Cycles(100)
	if len(res.Cycles) != 1 {
		t.Fatalf("found %d cycles, want exactly 1: %v", len(res.Cycles), res.Cycles)
	}
	if res.Truncated {
		t.Error("unexpected truncation")
	}

	cycle := res.Cycles[0]
	if len(cycle) != 2 || cycle[0] != "S!A1" || cycle[1] != "S!B1" {
		t.Errorf("cycle = %v, want [S!A1 S!B1]", cycle)
	}
}

func TestCyclesNoneInDAG(t *testing.T) {
	g := New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!A1", "S!C1")
	g.AddEdge("S!B1", "S!C1")

	res := g.Cycles(100)
	if len(res.Cycles) != 0 || res.Truncated {
		t.Errorf("Cycles = %v (truncated %v), want none", res.Cycles, res.Truncated)
	}
}

func TestCyclesSelfLoop(t *testing.T) {
	g := New()
	g.AddEdge("S!A1", "S!A1")

	res := g.Cycles(100)
	if len(res.Cycles) != 1 {
		t.Fatalf("found %d cycles, want 1", len(res.Cycles))
	}
	if !reflect.DeepEqual(res.Cycles[0], []string{"S!A1"}) {
		t.Errorf("cycle = %v, want [S!A1]", res.Cycles[0])
	}
}

func TestCyclesCapTruncates(t *testing.T) {
	// Three independent two-cell cycles.
	g := New()
	for _, pair := range [][2]string{{"S!A1", "S!A2"}, {"S!B1", "S!B2"}, {"S!C1", "S!C2"}} {
		g.AddEdge(pair[0], pair[1])
		g.AddEdge(pair[1], pair[0])
	}

	res := g.Cycles(1)
	if len(res.Cycles) != 1 {
		t.Fatalf("found %d cycles, want 1 under cap", len(res.Cycles))
	}
	if !res.Truncated {
		t.Error("expected truncation under cycle cap")
	}

	full := g.Cycles(100)
	if len(full.Cycles) != 3 || full.Truncated {
		t.Errorf("uncapped run found %d cycles (truncated %v), want 3", len(full.Cycles), full.Truncated)
	}
}

func TestCyclesExactCapNotTruncated(t *testing.T) {
	// Exactly two cycles exist and the cap allows two, so the
	// enumeration is exhaustive and must not claim truncation.
	g := New()
	for _, pair := range [][2]string{{"S!A1", "S!A2"}, {"S!B1", "S!B2"}} {
		g.AddEdge(pair[0], pair[1])
		g.AddEdge(pair[1], pair[0])
	}

	res := g.Cycles(2)
	if len(res.Cycles) != 2 {
		t.Fatalf("found %d cycles, want 2", len(res.Cycles))
	}
	if res.Truncated {
		t.Error("cap-sized exhaustive result must not be marked truncated")
	}
}

func TestCyclesEachReportedOnce(t *testing.T) {
	// A three-cell cycle must not appear once per rotation.
	g := New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!B1", "S!C1")
	g.AddEdge("S!C1", "S!A1")

	res := g.Cycles(100)
	if len(res.Cycles) != 1 {
		t.Fatalf("found %d cycles, want 1: %v", len(res.Cycles), res.Cycles)
	}
	if res.Cycles[0][0] != "S!A1" {
		t.Errorf("cycle starts at %s, want its smallest member S!A1", res.Cycles[0][0])
	}
}
