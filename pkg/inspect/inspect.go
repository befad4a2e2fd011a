// Package inspect implements the inspector pipeline of spec §4.2: an
// ordered list of Inspectors tried in turn against a candidate file, with
// the pipeline responsible for catching per-inspector failures and
// normalizing whichever result it settles on.
package inspect

import (
	"path/filepath"
	"strings"

	"github.com/smith-xyz/bindgraph/pkg/appconfig"
	"github.com/smith-xyz/bindgraph/pkg/bgerrors"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

// Inspector produces a ModuleData from a file path, or fails.
type Inspector interface {
	Name() string
	Inspect(file string) (*moduledata.ModuleData, error)
}

// Pipeline holds an ordered list of Inspectors and runs them per spec
// §4.2: try each in turn, remember the best non-null result, stop at the
// first result with an empty loader error.
type Pipeline struct {
	Inspectors []Inspector
	Logger     *utils.VerboseLogger
}

// New builds the default pipeline: managed inspection first, then native.
// Managed images fail cleanly and cheaply on a non-CLR file (no CLR
// header), so trying it first costs little and lets the native inspector
// serve as the fallback for everything else.
func New(cfg appconfig.NativeConfig, logger *utils.VerboseLogger) *Pipeline {
	return &Pipeline{
		Inspectors: []Inspector{
			NewManagedInspector(logger),
			NewNativeInspector(cfg, logger),
		},
		Logger: logger,
	}
}

// Run executes the pipeline against file and returns a fully
// post-processed ModuleData. It never returns an error: a total failure
// surfaces as a ModuleData with a non-empty LoaderError, matching the
// inspection-never-throws propagation policy of spec §7.
func (p *Pipeline) Run(file string) *moduledata.ModuleData {
	var best *moduledata.ModuleData

	for _, inspector := range p.Inspectors {
		result, err := p.tryInspect(inspector, file)
		if err != nil {
			if p.Logger != nil {
				p.Logger.DebugLogf("inspect: %s failed on %s: %v\n", inspector.Name(), file, err)
			}
			continue
		}
		if best == nil {
			best = result
		}
		if result.LoaderError == "" {
			best = result
			break
		}
		best = result
	}

	if best == nil {
		best = &moduledata.ModuleData{
			BinaryName:  filepath.Base(file),
			Kind:        moduledata.BinaryKindUnknown,
			LoaderError: "no inspector produced a result",
		}
	}

	normalize(best, file)
	return best
}

// tryInspect calls inspector.Inspect, converting a panic-free Go error
// into an InspectorFailure so the caller can log and continue per spec
// §4.2 step 1 ("catch any error; log and continue").
func (p *Pipeline) tryInspect(inspector Inspector, file string) (*moduledata.ModuleData, error) {
	result, err := inspector.Inspect(file)
	if err != nil {
		return nil, &bgerrors.InspectorFailure{InspectorName: inspector.Name(), Err: err}
	}
	return result, nil
}

// normalize applies the post-processing steps of spec §4.2: file path
// defaults to the input, binary name defaults to the stem, content hash
// is computed if empty, and loader error is never nil (the zero value of
// ModuleData.LoaderError is already "", so only the first three need
// action here).
func normalize(m *moduledata.ModuleData, file string) {
	if m.FilePath == nil {
		f := file
		m.FilePath = &f
	}
	if m.BinaryName == "" {
		m.BinaryName = stem(file)
	}
	if m.ContentHash == "" {
		if hash, err := utils.HashFileMD5(file); err == nil {
			m.ContentHash = hash
		}
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
