package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/smith-xyz/bindgraph/pkg/graph"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
)

func TestRenderIncludesDependenciesAndPackages(t *testing.T) {
	dep := &graph.GraphNode{Data: &moduledata.ModuleData{BinaryName: "B", Kind: moduledata.BinaryKindManaged}}
	root := &graph.GraphNode{
		Data: &moduledata.ModuleData{
			BinaryName:     "A",
			Kind:           moduledata.BinaryKindManaged,
			SourcePackages: []moduledata.PackageId{{Name: "A.Pkg", Version: "1.0.0"}},
		},
		Dependencies: []*graph.GraphNode{dep},
	}
	g := &graph.Graph{Nodes: []*graph.GraphNode{root, dep}, EdgeCount: 1}

	doc := Render(g)
	if doc.EdgeCount != 1 {
		t.Errorf("EdgeCount = %d, want 1", doc.EdgeCount)
	}
	if len(doc.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(doc.Modules))
	}

	var a Module
	for _, m := range doc.Modules {
		if m.BinaryName == "A" {
			a = m
		}
	}
	if len(a.Dependencies) != 1 || a.Dependencies[0] != "B" {
		t.Errorf("A.Dependencies = %+v, want [B]", a.Dependencies)
	}
	if len(a.SourcePackages) != 1 || a.SourcePackages[0] != "A.Pkg@1.0.0" {
		t.Errorf("A.SourcePackages = %+v, want [A.Pkg@1.0.0]", a.SourcePackages)
	}
}

func TestWriteProducesValidJSON(t *testing.T) {
	g := &graph.Graph{Nodes: []*graph.GraphNode{
		{Data: &moduledata.ModuleData{BinaryName: "A", Kind: moduledata.BinaryKindManaged}},
	}}

	var buf bytes.Buffer
	if err := Write(&buf, g); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(doc.Modules) != 1 {
		t.Errorf("expected 1 module, got %d", len(doc.Modules))
	}
}

func TestRenderMarksStubs(t *testing.T) {
	stub := &graph.GraphNode{Data: &moduledata.ModuleData{BinaryName: "Missing", Kind: moduledata.BinaryKindManaged}}
	g := &graph.Graph{Nodes: []*graph.GraphNode{stub}}

	doc := Render(g)
	if !doc.Modules[0].IsStub {
		t.Error("expected stub module to be marked IsStub")
	}
}
