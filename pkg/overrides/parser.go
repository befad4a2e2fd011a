// Package overrides parses the sidecar "<binary>.config" XML document into
// binding-override rules (spec §4.1) and applies those rules to a module's
// references to a stable fixpoint (spec §4.5, used by the managed
// inspector).
//
// encoding/xml is used deliberately: no third-party XML library appears
// anywhere in the retrieved corpus, and the sidecar grammar (spec §4.1) is
// small enough that the standard decoder's struct-tag binding is the
// idiomatic choice a Go author reaching for this corpus's stack would make.
package overrides

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

type configDocument struct {
	XMLName  xml.Name `xml:"configuration"`
	Runtime  runtime  `xml:"runtime"`
}

type runtime struct {
	Dependents []dependentAssembly `xml:"dependentAssembly"`
}

type dependentAssembly struct {
	Identity        assemblyIdentity `xml:"assemblyIdentity"`
	BindingRedirect []bindingRedirect `xml:"bindingRedirect"`
	CodeBase        []codeBase        `xml:"codeBase"`
}

type assemblyIdentity struct {
	Name string `xml:"name,attr"`
}

type bindingRedirect struct {
	OldVersion string `xml:"oldVersion,attr"`
	NewVersion string `xml:"newVersion,attr"`
}

type codeBase struct {
	Version string `xml:"version,attr"`
	Href    string `xml:"href,attr"`
}

// ParseResult carries the parsed rules alongside any non-fatal warnings
// encountered while parsing individual redirect entries (spec §4.1,
// §7 ParseWarning).
type ParseResult struct {
	Rules    []moduledata.OverrideRule
	Warnings []string
}

// ParseSidecar opens "<binaryPath>.config" if present and parses it per
// spec §4.1. Any parse exception on the file returns an empty rule list
// plus a warning; it never returns an error to the caller (inspection
// must never fail because a sidecar config is malformed).
func ParseSidecar(binaryPath string, logger *utils.VerboseLogger) ParseResult {
	configPath := binaryPath + ".config"

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ParseResult{}
		}
		return ParseResult{Warnings: []string{fmt.Sprintf("overrides: failed to read %s: %v", configPath, err)}}
	}

	var doc configDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		if logger != nil {
			logger.DebugLogf("overrides: failed to parse %s: %v\n", configPath, err)
		}
		return ParseResult{Warnings: []string{fmt.Sprintf("overrides: failed to parse %s: %v", configPath, err)}}
	}

	var result ParseResult
	for _, dep := range doc.Runtime.Dependents {
		name := utils.TrimSpaceNonEmpty(dep.Identity.Name)
		if name == "" {
			continue
		}

		for _, redirect := range dep.BindingRedirect {
			rule, warning := parseBindingRedirect(name, redirect)
			if warning != "" {
				result.Warnings = append(result.Warnings, warning)
				continue
			}
			result.Rules = append(result.Rules, rule)
		}

		for _, cb := range dep.CodeBase {
			rule, warning := parseCodeBase(name, cb)
			if warning != "" {
				result.Warnings = append(result.Warnings, warning)
				continue
			}
			result.Rules = append(result.Rules, rule)
		}
	}

	return result
}

func parseBindingRedirect(name string, r bindingRedirect) (moduledata.OverrideRule, string) {
	if r.OldVersion == "" || r.NewVersion == "" {
		return moduledata.OverrideRule{}, fmt.Sprintf("overrides: skipping bindingRedirect for %s: missing oldVersion or newVersion", name)
	}

	min, max := r.OldVersion, r.OldVersion
	if idx := strings.Index(r.OldVersion, "-"); idx >= 0 {
		min, max = r.OldVersion[:idx], r.OldVersion[idx+1:]
	}

	if _, err := moduleversion.Parse(min); err != nil {
		return moduledata.OverrideRule{}, fmt.Sprintf("overrides: skipping bindingRedirect for %s: invalid oldVersion min %q: %v", name, min, err)
	}
	if _, err := moduleversion.Parse(max); err != nil {
		return moduledata.OverrideRule{}, fmt.Sprintf("overrides: skipping bindingRedirect for %s: invalid oldVersion max %q: %v", name, max, err)
	}
	newVersion, err := moduleversion.Parse(r.NewVersion)
	if err != nil {
		return moduledata.OverrideRule{}, fmt.Sprintf("overrides: skipping bindingRedirect for %s: invalid newVersion %q: %v", name, r.NewVersion, err)
	}
	newVersionStr := newVersion.String()

	return moduledata.OverrideRule{
		TargetBinaryName: name,
		OldVersionMin:    min,
		OldVersionMax:    max,
		NewVersion:       &newVersionStr,
	}, ""
}

func parseCodeBase(name string, cb codeBase) (moduledata.OverrideRule, string) {
	if cb.Version == "" || cb.Href == "" {
		return moduledata.OverrideRule{}, fmt.Sprintf("overrides: skipping codeBase for %s: missing version or href", name)
	}
	if _, err := moduleversion.Parse(cb.Version); err != nil {
		return moduledata.OverrideRule{}, fmt.Sprintf("overrides: skipping codeBase for %s: invalid version %q: %v", name, cb.Version, err)
	}

	newVersion := cb.Version
	href := cb.Href
	return moduledata.OverrideRule{
		TargetBinaryName: name,
		OldVersionMin:    cb.Version,
		OldVersionMax:    cb.Version,
		NewVersion:       &newVersion,
		Codebase:         &href,
	}, ""
}
