// Package graph implements the analyzer / graph builder of spec §4.5: it
// inspects candidate files (through the shared cache of pkg/cache), binds
// each declared reference against the discovered module set or synthesizes
// a stub node for it, and assembles the resulting dependency graph.
package graph

import (
	"math"

	"github.com/smith-xyz/bindgraph/pkg/cache"
	"github.com/smith-xyz/bindgraph/pkg/inspect"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/pkgindex"
)

// GraphNode wraps one ModuleData with its resolved outbound dependencies
// and any binding errors accumulated against it. IncomingCount and
// OutgoingCount are the raw in/out degrees; Weight is the derived
// ln(in+out+1) measure spec.md:81 defines on top of them.
type GraphNode struct {
	Data          *moduledata.ModuleData
	Dependencies  []*GraphNode
	Errors        []string
	IncomingCount int
	OutgoingCount int
	Weight        float64
}

// Graph is the full dependency graph produced by BuildGraphForFile or
// BuildGraphForDirectory.
type Graph struct {
	Nodes     []*GraphNode
	EdgeCount int
}

// finalizeWeights sets OutgoingCount from the assembled Dependencies slice
// and derives Weight = ln(in+out+1) for every node (spec.md:81), once all
// edges have been added.
func finalizeWeights(nodes []*GraphNode) {
	for _, n := range nodes {
		n.OutgoingCount = len(n.Dependencies)
		n.Weight = math.Log1p(float64(n.IncomingCount + n.OutgoingCount))
	}
}

// InspectCached implements spec §4.5's inspect_cached: return the cached
// ModuleData for file if present, otherwise run the inspector pipeline,
// normalize, cache, and (if pkgIdx is non-nil) union in resolved source
// packages.
func InspectCached(file string, cache *cache.Cache[string, *moduledata.ModuleData], pipeline *inspect.Pipeline, pkgIdx *pkgindex.Index) *moduledata.ModuleData {
	result, _ := cache.GetOrInsert(file, func() (*moduledata.ModuleData, error) {
		data := pipeline.Run(file)
		if pkgIdx != nil {
			for _, match := range pkgIdx.Resolve(data.BinaryName, data.ContentHash) {
				data.AddSourcePackage(match.Package)
			}
		}
		return data, nil
	})
	return result
}
