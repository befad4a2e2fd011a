package overrides

import (
	"testing"

	"github.com/smith-xyz/bindgraph/pkg/moduledata"
)

func strp(s string) *string { return &s }

func TestApplyRedirect(t *testing.T) {
	refs := []moduledata.Reference{
		{BinaryName: "Foundation", DeclaredVersion: strp("12.0.0.0"), Kind: moduledata.ReferenceKindManagedRef},
	}
	rules := []moduledata.OverrideRule{
		{TargetBinaryName: "Foundation", OldVersionMin: "12.0.0.0", OldVersionMax: "12.0.0.0", NewVersion: strp("12.0.0.5")},
	}

	out := Apply(refs, rules)
	if out[0].EffectiveVersion == nil || *out[0].EffectiveVersion != "12.0.0.5" {
		t.Fatalf("expected effective version 12.0.0.5, got %+v", out[0].EffectiveVersion)
	}
}

func TestApplyOutsideRangeNotApplied(t *testing.T) {
	refs := []moduledata.Reference{
		{BinaryName: "Foundation", DeclaredVersion: strp("0.9.0.0"), Kind: moduledata.ReferenceKindManagedRef},
	}
	rules := []moduledata.OverrideRule{
		{TargetBinaryName: "Foundation", OldVersionMin: "1.0.0.0", OldVersionMax: "9.0.0.0", NewVersion: strp("9.0.0.1")},
	}

	out := Apply(refs, rules)
	if out[0].EffectiveVersion == nil || *out[0].EffectiveVersion != "0.9.0.0" {
		t.Fatalf("expected override to not apply outside range, got %+v", out[0].EffectiveVersion)
	}
}

func TestApplyCodebaseHint(t *testing.T) {
	refs := []moduledata.Reference{
		{BinaryName: "Helpers", DeclaredVersion: strp("1.0.0.0"), Kind: moduledata.ReferenceKindManagedRef},
	}
	rules := []moduledata.OverrideRule{
		{TargetBinaryName: "Helpers", OldVersionMin: "1.0.0.0", OldVersionMax: "1.0.0.0", NewVersion: strp("1.1.15.0"), Codebase: strp("Override/Helpers.dll")},
	}

	out := Apply(refs, rules)
	if out[0].CodebaseHint == nil || *out[0].CodebaseHint != "Override/Helpers.dll" {
		t.Fatalf("expected codebase hint set, got %+v", out[0].CodebaseHint)
	}
	if *out[0].EffectiveVersion != "1.1.15.0" {
		t.Fatalf("expected effective version 1.1.15.0, got %s", *out[0].EffectiveVersion)
	}
}

func TestApplyIsIdempotentAtFixpoint(t *testing.T) {
	refs := []moduledata.Reference{
		{BinaryName: "Core", DeclaredVersion: strp("4.0.0.0"), Kind: moduledata.ReferenceKindManagedRef},
	}
	rules := []moduledata.OverrideRule{
		{TargetBinaryName: "Core", OldVersionMin: "4.0.0.0", OldVersionMax: "4.0.0.0", NewVersion: strp("4.0.0.1")},
	}

	once := Apply(refs, rules)
	twice := Apply(once, rules)

	if *once[0].EffectiveVersion != *twice[0].EffectiveVersion {
		t.Errorf("second application changed effective version: %s vs %s", *once[0].EffectiveVersion, *twice[0].EffectiveVersion)
	}
}

func TestApplyLeavesPlatformInvokeUntouched(t *testing.T) {
	refs := []moduledata.Reference{
		{BinaryName: "native_audio", Kind: moduledata.ReferenceKindPlatformInvoke},
	}
	rules := []moduledata.OverrideRule{
		{TargetBinaryName: "native_audio", OldVersionMin: "0.0.0.0", OldVersionMax: "99.0.0.0", NewVersion: strp("1.0.0.0")},
	}

	out := Apply(refs, rules)
	if out[0].EffectiveVersion != nil {
		t.Errorf("expected PlatformInvoke reference to remain without an effective version, got %v", *out[0].EffectiveVersion)
	}
}
