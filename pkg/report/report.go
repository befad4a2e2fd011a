// Package report renders a dependency graph (pkg/graph) into the
// consumer-facing JSON document written to standard output by the
// analysis driver. Spec §6 leaves the exact shape of this document
// unspecified ("a consumer-defined form. Bit-exact compatibility is not
// required"), so this is one reasonable rendering rather than a contract
// callers must match byte-for-byte.
package report

import (
	"encoding/json"
	"io"

	"github.com/smith-xyz/bindgraph/pkg/graph"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
)

// Module is the JSON-facing projection of one GraphNode.
type Module struct {
	BinaryName     string   `json:"binary_name"`
	FullName       string   `json:"full_name,omitempty"`
	Version        string   `json:"version,omitempty"`
	FrameworkID    string   `json:"framework_id,omitempty"`
	Platform       string   `json:"platform"`
	Kind           string   `json:"kind"`
	ContentHash    string   `json:"content_hash,omitempty"`
	LoaderError    string   `json:"loader_error,omitempty"`
	IsStub         bool     `json:"is_stub"`
	IncomingCount  int      `json:"incoming_count"`
	OutgoingCount  int      `json:"outgoing_count"`
	Weight         float64  `json:"weight"`
	Dependencies   []string `json:"dependencies,omitempty"`
	SourcePackages []string `json:"source_packages,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

// Document is the top-level JSON shape written to standard output.
type Document struct {
	Modules   []Module `json:"modules"`
	EdgeCount int      `json:"edge_count"`
}

// Render converts a graph into a Document.
func Render(g *graph.Graph) Document {
	doc := Document{EdgeCount: g.EdgeCount}
	for _, node := range g.Nodes {
		doc.Modules = append(doc.Modules, renderNode(node))
	}
	return doc
}

func renderNode(node *graph.GraphNode) Module {
	m := Module{
		BinaryName:    node.Data.BinaryName,
		Platform:      node.Data.Platform.String(),
		Kind:          node.Data.Kind.String(),
		IsStub:        node.Data.IsStub(),
		IncomingCount: node.IncomingCount,
		OutgoingCount: node.OutgoingCount,
		Weight:        node.Weight,
		Errors:        node.Errors,
	}
	if node.Data.FullName != nil {
		m.FullName = *node.Data.FullName
	}
	if node.Data.Version != nil {
		m.Version = *node.Data.Version
	}
	m.FrameworkID = node.Data.FrameworkID
	m.ContentHash = node.Data.ContentHash
	m.LoaderError = node.Data.LoaderError

	for _, dep := range node.Dependencies {
		m.Dependencies = append(m.Dependencies, dep.Data.BinaryName)
	}
	for _, pkg := range node.Data.SourcePackages {
		m.SourcePackages = append(m.SourcePackages, renderPackageId(pkg))
	}

	return m
}

func renderPackageId(id moduledata.PackageId) string {
	return id.Name + "@" + id.Version
}

// Write renders g as indented JSON to w.
func Write(w io.Writer, g *graph.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Render(g))
}
