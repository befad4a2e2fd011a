// Package moduledata holds the immutable-after-construction record types
// produced by the inspector pipeline and consumed by the graph builder:
// ModuleData, Reference, OverrideRule, PackageId, and their positional
// binary serialization (spec §3, §4.4).
package moduledata

import "github.com/smith-xyz/bindgraph/pkg/framework"

// Platform identifies the target machine architecture and bitness policy
// of a module, derived from PE header flags (spec §3, §4.2).
type Platform int32

const (
	PlatformUnknown Platform = iota
	PlatformAnyCPU
	PlatformAnyCPUPrefer32
	PlatformAMD64
	PlatformX86
)

func (p Platform) String() string {
	switch p {
	case PlatformAnyCPU:
		return "AnyCPU"
	case PlatformAnyCPUPrefer32:
		return "AnyCPU-Prefer32"
	case PlatformAMD64:
		return "AMD64"
	case PlatformX86:
		return "X86"
	default:
		return "Unknown"
	}
}

// BinaryKind classifies whether a module is a managed assembly, a native
// image, or could not be determined.
type BinaryKind int32

const (
	BinaryKindUnknown BinaryKind = iota
	BinaryKindManaged
	BinaryKindNative
)

func (k BinaryKind) String() string {
	switch k {
	case BinaryKindManaged:
		return "Managed"
	case BinaryKindNative:
		return "Native"
	default:
		return "Unknown"
	}
}

// ReferenceKind classifies the nature of an outbound reference.
type ReferenceKind int32

const (
	ReferenceKindUnknown ReferenceKind = iota
	ReferenceKindManagedRef
	ReferenceKindPlatformInvoke
	ReferenceKindNativeImport
)

func (k ReferenceKind) String() string {
	switch k {
	case ReferenceKindManagedRef:
		return "ManagedRef"
	case ReferenceKindPlatformInvoke:
		return "PlatformInvoke"
	case ReferenceKindNativeImport:
		return "NativeImport"
	default:
		return "Unknown"
	}
}

// TargetBinaryKind maps a reference kind to the binary kind a candidate
// must have to satisfy it (spec §4.5): Managed→Managed;
// PlatformInvoke|NativeImport→Native; else Unknown.
func (k ReferenceKind) TargetBinaryKind() BinaryKind {
	switch k {
	case ReferenceKindManagedRef:
		return BinaryKindManaged
	case ReferenceKindPlatformInvoke, ReferenceKindNativeImport:
		return BinaryKindNative
	default:
		return BinaryKindUnknown
	}
}

// Reference is one declared outbound dependency from a module.
type Reference struct {
	BinaryName       string
	DeclaredVersion  *string
	EffectiveVersion *string
	FullName         *string
	CodebaseHint     *string
	Kind             ReferenceKind
}

// OverrideRule is one binding-override entry: either a version redirect
// parsed from a <bindingRedirect>, or a codebase hint synthesized from a
// <codeBase> element (spec §4.1, §3).
type OverrideRule struct {
	TargetBinaryName string
	OldVersionMin    string
	OldVersionMax    string
	NewVersion       *string
	Codebase         *string
}

// PackageId identifies a package in a content-addressed package cache.
// Equality is case-sensitive structural equality, matching spec §3.
type PackageId struct {
	Name    string
	Version string
}

// ModuleData is the immutable-after-construction record for one inspected
// file (spec §3).
type ModuleData struct {
	FilePath        *string
	BinaryName      string
	FullName        *string
	Version         *string
	FrameworkID     string
	FrameworkVer    framework.FrameworkVersion
	Platform        Platform
	Kind            BinaryKind
	ContentHash     string
	LoaderError     string
	References      []Reference
	SourcePackages  []PackageId
}

// AddSourcePackage unions pkg into the module's source-package set,
// deduplicating on (Name, Version) structural equality (spec §3).
func (m *ModuleData) AddSourcePackage(pkg PackageId) {
	for _, existing := range m.SourcePackages {
		if existing == pkg {
			return
		}
	}
	m.SourcePackages = append(m.SourcePackages, pkg)
}

// IsStub reports whether this ModuleData was synthesized for an unresolved
// reference rather than produced by inspecting a real file.
func (m *ModuleData) IsStub() bool {
	return m.FilePath == nil
}

// StubKey is the identity of a stub node: at most one stub per
// (binary name, effective version, binary kind) triple in a given graph
// (spec §3 invariant).
type StubKey struct {
	BinaryName string
	Version    string
	Kind       BinaryKind
}
