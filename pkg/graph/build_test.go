package graph

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/smith-xyz/bindgraph/pkg/appconfig"
	"github.com/smith-xyz/bindgraph/pkg/inspect"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
)

type scriptedInspector struct {
	byBase map[string]*moduledata.ModuleData
}

func (s *scriptedInspector) Name() string { return "scripted" }
func (s *scriptedInspector) Inspect(file string) (*moduledata.ModuleData, error) {
	data, ok := s.byBase[filepath.Base(file)]
	if !ok {
		return &moduledata.ModuleData{Kind: moduledata.BinaryKindUnknown, LoaderError: "unscripted file"}, nil
	}
	clone := *data
	return &clone, nil
}

func writeFixtureFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuildGraphForDirectoryBindsLiveReference(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir, "A.dll", "B.dll")

	versionA := "1.0.0.0"
	versionB := "1.0.0.0"
	pipeline := &inspect.Pipeline{Inspectors: []inspect.Inspector{&scriptedInspector{byBase: map[string]*moduledata.ModuleData{
		"A.dll": {
			BinaryName: "A",
			Kind:       moduledata.BinaryKindManaged,
			Version:    &versionA,
			References: []moduledata.Reference{
				{BinaryName: "B", DeclaredVersion: &versionB, Kind: moduledata.ReferenceKindManagedRef},
			},
		},
		"B.dll": {
			BinaryName: "B",
			Kind:       moduledata.BinaryKindManaged,
			Version:    &versionB,
		},
	}}}}

	b := NewBuilder(pipeline, nil, appconfig.AnalyzerConfig{}, nil)
	g, err := b.BuildGraphForDirectory(context.Background(), dir, appconfig.ModuleConfig{Extensions: []string{".dll"}})
	if err != nil {
		t.Fatalf("BuildGraphForDirectory failed: %v", err)
	}

	if len(g.Nodes) != 2 {
		t.Fatalf("expected exactly 2 nodes (no stub needed), got %d", len(g.Nodes))
	}

	var nodeA *GraphNode
	for _, n := range g.Nodes {
		if n.Data.BinaryName == "A" {
			nodeA = n
		}
	}
	if nodeA == nil {
		t.Fatal("node A not found")
	}
	if len(nodeA.Dependencies) != 1 || nodeA.Dependencies[0].Data.BinaryName != "B" {
		t.Errorf("expected A to bind to live node B, got %+v", nodeA.Dependencies)
	}
	if nodeA.Dependencies[0].Data.FilePath == nil {
		t.Error("expected A's dependency to be the live B node (has a file path), not a stub")
	}

	assertDegreeSumInvariant(t, g)
}

// assertDegreeSumInvariant checks spec.md:294's testable property: summed
// over a graph, total outgoing edges must equal total incoming edges.
func assertDegreeSumInvariant(t *testing.T, g *Graph) {
	t.Helper()
	var totalIn, totalOut int
	for _, n := range g.Nodes {
		totalIn += n.IncomingCount
		totalOut += n.OutgoingCount
		wantWeight := math.Log1p(float64(n.IncomingCount + n.OutgoingCount))
		if n.Weight != wantWeight {
			t.Errorf("node %s Weight = %v, want ln(in+out+1) = %v", n.Data.BinaryName, n.Weight, wantWeight)
		}
	}
	if totalIn != totalOut {
		t.Errorf("sum(IncomingCount) = %d != sum(OutgoingCount) = %d", totalIn, totalOut)
	}
	if totalOut != g.EdgeCount {
		t.Errorf("sum(OutgoingCount) = %d != EdgeCount = %d", totalOut, g.EdgeCount)
	}
}

func TestBuildGraphForDirectoryCreatesStubForUnresolvedReference(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir, "A.dll")

	versionA := "1.0.0.0"
	pipeline := &inspect.Pipeline{Inspectors: []inspect.Inspector{&scriptedInspector{byBase: map[string]*moduledata.ModuleData{
		"A.dll": {
			BinaryName: "A",
			Kind:       moduledata.BinaryKindManaged,
			Version:    &versionA,
			References: []moduledata.Reference{
				{BinaryName: "Missing", Kind: moduledata.ReferenceKindManagedRef},
			},
		},
	}}}}

	b := NewBuilder(pipeline, nil, appconfig.AnalyzerConfig{}, nil)
	g, err := b.BuildGraphForDirectory(context.Background(), dir, appconfig.ModuleConfig{Extensions: []string{".dll"}})
	if err != nil {
		t.Fatalf("BuildGraphForDirectory failed: %v", err)
	}

	if len(g.Nodes) != 2 {
		t.Fatalf("expected node A plus one stub, got %d", len(g.Nodes))
	}

	var stub *GraphNode
	for _, n := range g.Nodes {
		if n.Data.IsStub() {
			stub = n
		}
	}
	if stub == nil {
		t.Fatal("expected a stub node for the unresolved reference")
	}
	if stub.Data.BinaryName != "Missing" {
		t.Errorf("stub BinaryName = %q, want Missing", stub.Data.BinaryName)
	}
	if stub.IncomingCount != 1 {
		t.Errorf("stub IncomingCount = %d, want 1", stub.IncomingCount)
	}

	assertDegreeSumInvariant(t, g)
}

func TestBuildGraphForDirectoryReusesStubAcrossCodebaseHint(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir, "A.dll", "B.dll")

	versionA, versionB := "1.0.0.0", "1.0.0.0"
	hint := "Override/Helpers.dll"
	pipeline := &inspect.Pipeline{Inspectors: []inspect.Inspector{&scriptedInspector{byBase: map[string]*moduledata.ModuleData{
		"A.dll": {
			BinaryName: "A",
			Kind:       moduledata.BinaryKindManaged,
			Version:    &versionA,
			References: []moduledata.Reference{
				{BinaryName: "Helpers", Kind: moduledata.ReferenceKindManagedRef},
			},
		},
		"B.dll": {
			BinaryName: "B",
			Kind:       moduledata.BinaryKindManaged,
			Version:    &versionB,
			References: []moduledata.Reference{
				{BinaryName: "Helpers", Kind: moduledata.ReferenceKindManagedRef, CodebaseHint: &hint},
			},
		},
	}}}}

	b := NewBuilder(pipeline, nil, appconfig.AnalyzerConfig{}, nil)
	g, err := b.BuildGraphForDirectory(context.Background(), dir, appconfig.ModuleConfig{Extensions: []string{".dll"}})
	if err != nil {
		t.Fatalf("BuildGraphForDirectory failed: %v", err)
	}

	var stubs []*GraphNode
	for _, n := range g.Nodes {
		if n.Data.IsStub() {
			stubs = append(stubs, n)
		}
	}
	if len(stubs) != 1 {
		t.Fatalf("expected exactly one stub for Helpers regardless of codebase hint, got %d", len(stubs))
	}
	if stubs[0].IncomingCount != 2 {
		t.Errorf("stub IncomingCount = %d, want 2 (referenced by both A and B)", stubs[0].IncomingCount)
	}

	var a, bNode *GraphNode
	for _, n := range g.Nodes {
		switch n.Data.BinaryName {
		case "A":
			a = n
		case "B":
			bNode = n
		}
	}
	if a == nil || bNode == nil {
		t.Fatal("expected both A and B nodes present")
	}
	if len(a.Dependencies) != 1 || a.Dependencies[0] != stubs[0] {
		t.Error("expected A's dependency to point at the single shared stub")
	}
	if len(bNode.Dependencies) != 1 || bNode.Dependencies[0] != stubs[0] {
		t.Error("expected B's dependency to point at the single shared stub, not an orphaned duplicate")
	}

	assertDegreeSumInvariant(t, g)
}

func TestBuildGraphForFileProducesRootPlusPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeFixtureFiles(t, dir, "A.dll")

	pipeline := &inspect.Pipeline{Inspectors: []inspect.Inspector{&scriptedInspector{byBase: map[string]*moduledata.ModuleData{
		"A.dll": {
			BinaryName: "A",
			Kind:       moduledata.BinaryKindManaged,
			References: []moduledata.Reference{
				{BinaryName: "X", Kind: moduledata.ReferenceKindManagedRef},
				{BinaryName: "Y", Kind: moduledata.ReferenceKindPlatformInvoke},
			},
		},
	}}}}

	b := NewBuilder(pipeline, nil, appconfig.AnalyzerConfig{}, nil)
	g := b.BuildGraphForFile(filepath.Join(dir, "A.dll"))

	if len(g.Nodes) != 3 {
		t.Fatalf("expected root + 2 placeholders, got %d", len(g.Nodes))
	}
	if g.EdgeCount != 2 {
		t.Errorf("EdgeCount = %d, want 2", g.EdgeCount)
	}
	if g.Nodes[0].OutgoingCount != 2 {
		t.Errorf("root OutgoingCount = %d, want 2", g.Nodes[0].OutgoingCount)
	}

	assertDegreeSumInvariant(t, g)
}
