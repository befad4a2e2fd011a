package graph

import (
	"fmt"
	"strings"

	"github.com/smith-xyz/bindgraph/pkg/framework"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

// bindTarget is the (name, kind, version, codebase hint) tuple a reference
// resolves to before binding is attempted, per spec §4.5 step 3.
type bindTarget struct {
	name         string
	kind         moduledata.BinaryKind
	version      string
	codebaseHint string
	fullName     string
}

func targetFor(ref moduledata.Reference) bindTarget {
	version := ""
	if ref.EffectiveVersion != nil {
		version = *ref.EffectiveVersion
	} else if ref.DeclaredVersion != nil {
		version = *ref.DeclaredVersion
	}
	codebase := ""
	if ref.CodebaseHint != nil {
		codebase = *ref.CodebaseHint
	}
	fullName := ""
	if ref.FullName != nil {
		fullName = *ref.FullName
	}
	return bindTarget{
		name:         ref.BinaryName,
		kind:         ref.Kind.TargetBinaryKind(),
		version:      version,
		codebaseHint: codebase,
		fullName:     fullName,
	}
}

// attemptBind implements spec §4.5's attempt_bind against a live (file-
// backed) candidate.
func attemptBind(candidate *moduledata.ModuleData, target bindTarget, logger *utils.VerboseLogger) bool {
	if !strings.EqualFold(candidate.BinaryName, target.name) {
		return false
	}
	if candidate.Kind != target.kind {
		if logger != nil {
			logger.DebugLogf("graph: candidate %s has kind %v, want %v\n", candidate.BinaryName, candidate.Kind, target.kind)
		}
		return false
	}

	if target.version != "" && candidate.Version != nil {
		candVer, err1 := moduleversion.Parse(*candidate.Version)
		targVer, err2 := moduleversion.Parse(target.version)
		if err1 == nil && err2 == nil && candVer.Major != targVer.Major {
			if logger != nil {
				logger.DebugLogf("graph: candidate %s major version %d does not match requested %d\n", candidate.BinaryName, candVer.Major, targVer.Major)
			}
		}
	}

	if target.codebaseHint != "" {
		if candidate.FilePath == nil {
			return false
		}
		expected, err := utils.ResolveCodebaseHint(*candidate.FilePath, target.codebaseHint)
		if err != nil || expected != *candidate.FilePath {
			return false
		}
	}

	return true
}

// attemptBindStub binds against an existing stub node, which by
// construction has no file path. A stub can never satisfy a codebase hint,
// so per spec §4.5 ("bind with empty codebase hint; reuse if one matches")
// the hint on target is ignored entirely rather than treated as a mismatch —
// this is what lets findStubBind dedup two references to the same missing
// (name, version, kind) even when one of them carries a hint.
func attemptBindStub(candidate *moduledata.ModuleData, target bindTarget) bool {
	if !strings.EqualFold(candidate.BinaryName, target.name) {
		return false
	}
	if candidate.Kind != target.kind {
		return false
	}
	return true
}

// postBindingErrors computes the error strings appended to a source node
// after a successful bind, per spec §4.5.
func postBindingErrors(source, candidate *moduledata.ModuleData, target bindTarget, live bool) []string {
	var errs []string

	if live && target.version != "" && candidate.Version != nil {
		candVer, err1 := moduleversion.Parse(*candidate.Version)
		targVer, err2 := moduleversion.Parse(target.version)
		if err1 == nil && err2 == nil && moduleversion.Less(candVer, targVer) {
			errs = append(errs, fmt.Sprintf("down-grade: requested v%s but resolved v%s", targVer, candVer))
		}
	}

	if source.FrameworkVer.Kind != framework.Unknown && candidate.FrameworkVer.Kind != framework.Unknown {
		legal, err := framework.Legal(source.FrameworkVer, candidate.FrameworkVer)
		if err == nil && !legal {
			errs = append(errs, fmt.Sprintf("cross-framework: %s is a higher-level framework", candidate.FrameworkVer.Render()))
		}
	}

	return errs
}
