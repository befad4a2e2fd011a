package moduledata

import (
	"testing"

	"github.com/smith-xyz/bindgraph/pkg/framework"
	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
)

func strp(s string) *string { return &s }

func sampleModule() *ModuleData {
	return &ModuleData{
		FilePath:    strp("/mods/Consumer.dll"),
		BinaryName:  "Consumer",
		FullName:    strp("Consumer, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null"),
		Version:     strp("1.0.0.0"),
		FrameworkID: ".NETFramework,Version=v4.5",
		FrameworkVer: framework.FrameworkVersion{
			Kind:    framework.NETFramework,
			Version: moduleversion.MustParse("4.5.0.0"),
		},
		Platform:    PlatformAnyCPU,
		Kind:        BinaryKindManaged,
		ContentHash: "0123456789abcdef0123456789abcdef",
		LoaderError: "",
		References: []Reference{
			{
				BinaryName:       "Foundation",
				DeclaredVersion:  strp("12.0.0.0"),
				EffectiveVersion: strp("12.0.0.5"),
				Kind:             ReferenceKindManagedRef,
				FullName:         strp("Foundation, Version=12.0.0.5"),
			},
			{
				BinaryName: "native_audio",
				Kind:       ReferenceKindPlatformInvoke,
			},
			{
				BinaryName:   "Helpers",
				Kind:         ReferenceKindManagedRef,
				CodebaseHint: strp("Override/Helpers.dll"),
			},
		},
		SourcePackages: []PackageId{
			{Name: "foundation.runtime", Version: "5.3.1"},
		},
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	original := sampleModule()
	encoded := Serialize(original)
	decoded, err := Deserialize(encoded)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if !Equal(original, decoded) {
		t.Errorf("round trip mismatch:\noriginal: %+v\ndecoded:  %+v", original, decoded)
	}
}

func TestSerializeRoundTripStubNode(t *testing.T) {
	original := &ModuleData{
		BinaryName:  "Foundation",
		Version:     strp("1.8.5.0"),
		Kind:        BinaryKindManaged,
		LoaderError: "",
	}
	decoded, err := Deserialize(Serialize(original))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if !Equal(original, decoded) {
		t.Errorf("stub round trip mismatch: %+v vs %+v", original, decoded)
	}
	if !decoded.IsStub() {
		t.Error("expected decoded stub node to report IsStub() == true")
	}
}

func TestSerializeEmptyCollections(t *testing.T) {
	original := &ModuleData{
		BinaryName: "Empty",
		Kind:       BinaryKindUnknown,
	}
	decoded, err := Deserialize(Serialize(original))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if len(decoded.References) != 0 || len(decoded.SourcePackages) != 0 {
		t.Errorf("expected empty collections, got refs=%d pkgs=%d", len(decoded.References), len(decoded.SourcePackages))
	}
}

func TestDeserializeTruncated(t *testing.T) {
	encoded := Serialize(sampleModule())
	if _, err := Deserialize(encoded[:len(encoded)-2]); err == nil {
		t.Error("expected error decoding truncated buffer")
	}
}
