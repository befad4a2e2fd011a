package inspect

import (
	"fmt"
	"strings"

	"github.com/smith-xyz/bindgraph/pkg/clrmeta"
	"github.com/smith-xyz/bindgraph/pkg/framework"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/overrides"
	"github.com/smith-xyz/bindgraph/pkg/peinfo"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

// foundationModules are skipped when emitting ManagedRef references (spec
// §4.2: "skipping two well-known foundation modules").
var foundationModules = map[string]bool{
	"mscorlib": true,
	"system":   true,
}

// ManagedInspector implements C3: reading a managed-runtime module's
// identity, target framework, referenced assemblies, and platform-invoke
// call targets out of its CLR metadata.
type ManagedInspector struct {
	logger *utils.VerboseLogger
}

// NewManagedInspector builds a ManagedInspector.
func NewManagedInspector(logger *utils.VerboseLogger) *ManagedInspector {
	return &ManagedInspector{logger: logger}
}

func (m *ManagedInspector) Name() string { return "managed" }

// Inspect reads path's CLR metadata and produces a ModuleData. It returns
// clrmeta.ErrNotManaged (wrapped by the pipeline into an
// InspectorFailure) for any file with no CLR header, letting the native
// inspector take a turn instead.
func (m *ManagedInspector) Inspect(path string) (*moduledata.ModuleData, error) {
	header, err := peinfo.Read(path)
	if err != nil {
		return nil, err
	}
	if !header.IsManaged() {
		return nil, clrmeta.ErrNotManaged
	}

	info, err := clrmeta.Read(path)
	if err != nil {
		return nil, err
	}

	versionStr := info.AssemblyVersion.String()
	fullName := fmt.Sprintf("%s, Version=%s", info.AssemblyName, versionStr)

	data := &moduledata.ModuleData{
		BinaryName:   info.AssemblyName,
		FullName:     &fullName,
		Version:      &versionStr,
		FrameworkID:  info.TargetFramework,
		FrameworkVer: framework.Parse(info.TargetFramework),
		Platform:     peinfo.DerivePlatform(header),
		Kind:         moduledata.BinaryKindManaged,
	}
	if data.BinaryName == "" {
		data.BinaryName = info.ModuleName
	}

	data.References = append(data.References, managedRefs(info)...)
	data.References = append(data.References, platformInvokeRefs(info)...)

	parsed := overrides.ParseSidecar(path, m.logger)
	for _, warning := range parsed.Warnings {
		if m.logger != nil {
			m.logger.DebugLogf("inspect: %s\n", warning)
		}
	}
	data.References = overrides.Apply(data.References, parsed.Rules)

	return data, nil
}

func managedRefs(info *clrmeta.Info) []moduledata.Reference {
	var refs []moduledata.Reference
	for _, ref := range info.AssemblyRefs {
		if foundationModules[strings.ToLower(ref.Name)] {
			continue
		}
		version := ref.Version.String()
		refs = append(refs, moduledata.Reference{
			BinaryName:      ref.Name,
			DeclaredVersion: &version,
			Kind:            moduledata.ReferenceKindManagedRef,
		})
	}
	return refs
}

func platformInvokeRefs(info *clrmeta.Info) []moduledata.Reference {
	seen := map[string]bool{}
	var refs []moduledata.Reference
	for _, pi := range info.PInvokes {
		name := stem(pi.ModuleName)
		key := strings.ToLower(name)
		if seen[key] || key == "" {
			continue
		}
		seen[key] = true
		refs = append(refs, moduledata.Reference{
			BinaryName: name,
			Kind:       moduledata.ReferenceKindPlatformInvoke,
		})
	}
	return refs
}
