package framework

import (
	"errors"
	"testing"

	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []string{
		".NETFramework,Version=v4.5",
		".NETStandard,Version=v2.1",
		".NETCoreApp,Version=v3.1",
	}
	for _, raw := range tests {
		fv := Parse(raw)
		if fv.Kind == Unknown {
			t.Fatalf("Parse(%q) returned Unknown", raw)
		}
		if got := fv.Render(); got != raw {
			t.Errorf("Render(Parse(%q)) = %q, want %q", raw, got, raw)
		}
		again := Parse(fv.Render())
		if again != fv {
			t.Errorf("Parse(Render(v)) = %+v, want %+v", again, fv)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	fv := Parse("garbage")
	if fv.Kind != Unknown || !fv.Version.IsZero() {
		t.Errorf("Parse(garbage) = %+v, want Unknown/zero", fv)
	}
}

func TestLegalSameKind(t *testing.T) {
	src := FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.6.0.0")}
	dst := FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.5.0.0")}
	ok, err := Legal(src, dst)
	if err != nil || !ok {
		t.Errorf("higher framework source should legally bind to lower target, got ok=%v err=%v", ok, err)
	}

	ok, err = Legal(dst, src)
	if err != nil || ok {
		t.Errorf("lower framework source should not bind to higher target")
	}
}

func TestLegalUnknownIsPermissive(t *testing.T) {
	unknown := FrameworkVersion{Kind: Unknown}
	other := FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.5.0.0")}
	if ok, _ := Legal(unknown, other); !ok {
		t.Error("unknown source should always be legal")
	}
	if ok, _ := Legal(other, unknown); !ok {
		t.Error("unknown target should always be legal")
	}
}

func TestLegalStandardTable(t *testing.T) {
	tests := []struct {
		name   string
		source FrameworkVersion
		target FrameworkVersion
		want   bool
	}{
		{
			name:   "framework 4.5.1 satisfies standard 1.2",
			source: FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.5.1.0")},
			target: FrameworkVersion{Kind: NETStandard, Version: moduleversion.MustParse("1.2.0.0")},
			want:   true,
		},
		{
			name:   "framework 4.5.0 fails standard 1.2",
			source: FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.5.0.0")},
			target: FrameworkVersion{Kind: NETStandard, Version: moduleversion.MustParse("1.2.0.0")},
			want:   false,
		},
		{
			name:   "framework cannot satisfy standard 2.1",
			source: FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.8.0.0")},
			target: FrameworkVersion{Kind: NETStandard, Version: moduleversion.MustParse("2.1.0.0")},
			want:   false,
		},
		{
			name:   "core 3.0 satisfies standard 2.1",
			source: FrameworkVersion{Kind: NETCoreApp, Version: moduleversion.MustParse("3.0.0.0")},
			target: FrameworkVersion{Kind: NETStandard, Version: moduleversion.MustParse("2.1.0.0")},
			want:   true,
		},
		{
			name:   "core 2.0 fails standard 2.1",
			source: FrameworkVersion{Kind: NETCoreApp, Version: moduleversion.MustParse("2.0.0.0")},
			target: FrameworkVersion{Kind: NETStandard, Version: moduleversion.MustParse("2.1.0.0")},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Legal(tt.source, tt.target)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Legal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLegalUnsupportedStandardVersion(t *testing.T) {
	source := FrameworkVersion{Kind: NETCoreApp, Version: moduleversion.MustParse("3.0.0.0")}
	target := FrameworkVersion{Kind: NETStandard, Version: moduleversion.MustParse("3.0.0.0")}
	_, err := Legal(source, target)
	var unsupported *ErrUnsupportedStandardVersion
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedStandardVersion, got %v", err)
	}
}

func TestLegalCoreToFrameworkIsCoarseApproximation(t *testing.T) {
	source := FrameworkVersion{Kind: NETCoreApp, Version: moduleversion.MustParse("6.0.0.0")}
	target := FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.8.0.0")}
	ok, err := Legal(source, target)
	if err != nil || !ok {
		t.Errorf("core source targeting framework should be legal (coarse approximation), got ok=%v err=%v", ok, err)
	}
}

func TestLegalFrameworkOrStandardToCoreIsIllegal(t *testing.T) {
	target := FrameworkVersion{Kind: NETCoreApp, Version: moduleversion.MustParse("6.0.0.0")}

	fw := FrameworkVersion{Kind: NETFramework, Version: moduleversion.MustParse("4.8.0.0")}
	if ok, _ := Legal(fw, target); ok {
		t.Error("framework source targeting core should be illegal")
	}

	std := FrameworkVersion{Kind: NETStandard, Version: moduleversion.MustParse("2.1.0.0")}
	if ok, _ := Legal(std, target); ok {
		t.Error("standard source targeting core should be illegal")
	}
}
