package graph

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	appcache "github.com/smith-xyz/bindgraph/pkg/cache"
	"github.com/smith-xyz/bindgraph/pkg/appconfig"
	"github.com/smith-xyz/bindgraph/pkg/inspect"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/pkgindex"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

// Builder holds the shared collaborators the graph builder needs across
// calls: the inspection cache, inspector pipeline, package index, and
// analyzer configuration.
type Builder struct {
	Cache    *appcache.Cache[string, *moduledata.ModuleData]
	Pipeline *inspect.Pipeline
	PkgIndex *pkgindex.Index
	Config   appconfig.AnalyzerConfig
	Logger   *utils.VerboseLogger
	instr    *utils.Instrumentation
}

// NewBuilder constructs a Builder with a fresh inspection cache.
func NewBuilder(pipeline *inspect.Pipeline, pkgIdx *pkgindex.Index, cfg appconfig.AnalyzerConfig, logger *utils.VerboseLogger) *Builder {
	verbose := logger != nil && logger.IsVerbose()
	return &Builder{
		Cache:    appcache.New[string, *moduledata.ModuleData](),
		Pipeline: pipeline,
		PkgIndex: pkgIdx,
		Config:   cfg,
		Logger:   logger,
		instr:    utils.NewInstrumentation(slog.Default(), verbose),
	}
}

// BuildGraphForFile produces one root node plus one placeholder child node
// per declared reference (spec §4.5: "Graph from a single file").
func (b *Builder) BuildGraphForFile(file string) *Graph {
	root := &GraphNode{Data: InspectCached(file, b.Cache, b.Pipeline, b.PkgIndex)}

	g := &Graph{Nodes: []*GraphNode{root}}
	for _, ref := range root.Data.References {
		target := targetFor(ref)
		stub := &GraphNode{Data: stubModuleData(target, b.PkgIndex)}
		root.Dependencies = append(root.Dependencies, stub)
		stub.IncomingCount++
		g.Nodes = append(g.Nodes, stub)
		g.EdgeCount++
	}

	finalizeWeights(g.Nodes)
	return g
}

// BuildGraphForDirectory enumerates candidate module files under dir,
// inspects them concurrently, then binds every reference against the
// discovered set, synthesizing stub nodes for anything unresolved (spec
// §4.5: "Graph from a directory").
func (b *Builder) BuildGraphForDirectory(ctx context.Context, dir string, modules appconfig.ModuleConfig) (*Graph, error) {
	files, err := enumerateCandidates(dir, modules)
	if err != nil {
		return nil, err
	}

	phases := b.instr.NewPhaseTracker("build-graph-for-directory")
	phases.StartPhase("inspect")
	progress := b.instr.NewProgressTracker("inspect-files", len(files))

	nodes := make([]*GraphNode, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if b.Config.WorkerCount > 0 {
		g.SetLimit(b.Config.WorkerCount)
	}

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			result, _ := b.instr.TimedOperationWithResult("inspect:"+filepath.Base(file), func() (interface{}, error) {
				return InspectCached(file, b.Cache, b.Pipeline, b.PkgIndex), nil
			})
			nodes[i] = &GraphNode{Data: result.(*moduledata.ModuleData)}
			progress.Update(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	progress.Complete()

	phases.StartPhase("bind")

	stubs := map[moduledata.StubKey]*GraphNode{}
	graphResult := &Graph{}

	for _, source := range nodes {
		for _, ref := range source.Data.References {
			target := targetFor(ref)

			bound := findLiveBind(nodes, source, target, b.Logger)
			live := bound != nil
			if bound == nil {
				bound = findStubBind(stubs, target)
			}
			if bound == nil {
				bound = &GraphNode{Data: stubModuleData(target, b.PkgIndex)}
				stubs[moduledata.StubKey{BinaryName: target.name, Version: target.version, Kind: target.kind}] = bound
			}

			source.Dependencies = append(source.Dependencies, bound)
			bound.IncomingCount++
			graphResult.EdgeCount++

			source.Errors = append(source.Errors, postBindingErrors(source.Data, bound.Data, target, live)...)
		}
	}

	graphResult.Nodes = append(graphResult.Nodes, nodes...)
	for _, stub := range stubs {
		graphResult.Nodes = append(graphResult.Nodes, stub)
	}

	finalizeWeights(graphResult.Nodes)
	phases.Complete(len(graphResult.Nodes))

	return graphResult, nil
}

func findLiveBind(nodes []*GraphNode, source *GraphNode, target bindTarget, logger *utils.VerboseLogger) *GraphNode {
	for _, node := range nodes {
		if node == source {
			continue
		}
		if attemptBind(node.Data, target, logger) {
			return node
		}
	}
	return nil
}

func findStubBind(stubs map[moduledata.StubKey]*GraphNode, target bindTarget) *GraphNode {
	key := moduledata.StubKey{BinaryName: target.name, Version: target.version, Kind: target.kind}
	if node, ok := stubs[key]; ok && attemptBindStub(node.Data, target) {
		return node
	}
	return nil
}

func stubModuleData(target bindTarget, pkgIdx *pkgindex.Index) *moduledata.ModuleData {
	data := &moduledata.ModuleData{
		BinaryName: target.name,
		Kind:       target.kind,
	}
	if target.version != "" {
		v := target.version
		data.Version = &v
	}
	if target.fullName != "" {
		fn := target.fullName
		data.FullName = &fn
	}
	if pkgIdx != nil {
		for _, match := range pkgIdx.Resolve(target.name, "") {
			data.AddSourcePackage(match.Package)
		}
	}
	return data
}

func enumerateCandidates(dir string, modules appconfig.ModuleConfig) ([]string, error) {
	cfg := appconfig.Config{Modules: modules}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if cfg.IsCandidateModule(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
