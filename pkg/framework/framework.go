// Package framework parses and compares target-framework identifiers
// (".NETFramework,Version=v4.5" and similar) and implements the
// cross-framework legality table used to flag illegal bindings.
package framework

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
)

// Kind identifies which framework flavor a module targets.
type Kind int

const (
	Unknown Kind = iota
	NETFramework
	NETStandard
	NETCoreApp
)

func (k Kind) String() string {
	switch k {
	case NETFramework:
		return ".NETFramework"
	case NETStandard:
		return ".NETStandard"
	case NETCoreApp:
		return ".NETCoreApp"
	default:
		return "Unknown"
	}
}

// FrameworkVersion is the parsed {kind, version} pair for a module's target
// framework attribute.
type FrameworkVersion struct {
	Kind    Kind
	Version moduleversion.Version
}

var identPattern = regexp.MustCompile(`^(\.NETFramework|\.NETStandard|\.NETCoreApp)(?:,Version=v([0-9.]+))?$`)

// Parse parses a framework identifier string of the form
// "(kindToken)(,Version=v(x.y[.z[.w]]))?". On any failure it returns
// {Unknown, moduleversion.Zero} rather than an error, matching spec §4.3
// ("On failure, kind=Unknown, version=(0,0)").
func Parse(identifier string) FrameworkVersion {
	identifier = strings.TrimSpace(identifier)
	m := identPattern.FindStringSubmatch(identifier)
	if m == nil {
		return FrameworkVersion{Kind: Unknown, Version: moduleversion.Zero}
	}

	kind := parseKind(m[1])
	if kind == Unknown {
		return FrameworkVersion{Kind: Unknown, Version: moduleversion.Zero}
	}

	if m[2] == "" {
		return FrameworkVersion{Kind: kind, Version: moduleversion.Zero}
	}

	v, err := moduleversion.Parse(m[2])
	if err != nil {
		return FrameworkVersion{Kind: Unknown, Version: moduleversion.Zero}
	}
	return FrameworkVersion{Kind: kind, Version: v}
}

func parseKind(token string) Kind {
	switch token {
	case ".NETFramework":
		return NETFramework
	case ".NETStandard":
		return NETStandard
	case ".NETCoreApp":
		return NETCoreApp
	default:
		return Unknown
	}
}

// Render renders a FrameworkVersion back to its identifier string form.
// Render(Parse(s)) == s for any well-formed s whose version carries no
// trailing zero build/revision parts (".NETFramework,Version=v4.5.0"
// renders back as ".NETFramework,Version=v4.5"); Parse(Render(v)) == v for
// any v with a known Kind (spec §8 round-trip law).
func (fv FrameworkVersion) Render() string {
	if fv.Kind == Unknown {
		return ""
	}
	if fv.Version.IsZero() {
		return fv.Kind.String()
	}
	return fmt.Sprintf("%s,Version=v%s", fv.Kind.String(), trimTrailingZeroParts(fv.Version))
}

// trimTrailingZeroParts renders a version the way .NET framework monikers
// do: at least two parts (major.minor), dropping build/revision when zero.
func trimTrailingZeroParts(v moduleversion.Version) string {
	if v.Build == 0 && v.Revision == 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	if v.Revision == 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
	}
	return v.String()
}

// standardRule describes the minimum source requirements a given
// .NETStandard target version imposes, per the ECMA-approximated table in
// spec §4.3. Reproduced verbatim from the specification.
type standardRule struct {
	minFramework moduleversion.Version // zero means any framework version
	frameworkOK  bool                  // false means "framework not allowed"
	minCore      moduleversion.Version
	coreOK       bool
}

var standardRules = map[string]standardRule{
	"1.0": {frameworkOK: true, coreOK: true},
	"1.1": {frameworkOK: true, coreOK: true},
	"1.2": {frameworkOK: true, minFramework: moduleversion.MustParse("4.5.1.0"), coreOK: true},
	"1.3": {frameworkOK: true, minFramework: moduleversion.MustParse("4.6.0.0"), coreOK: true},
	"1.4": {frameworkOK: true, minFramework: moduleversion.MustParse("4.6.1.0"), coreOK: true},
	"1.5": {frameworkOK: true, minFramework: moduleversion.MustParse("4.6.1.0"), coreOK: true},
	"1.6": {frameworkOK: true, minFramework: moduleversion.MustParse("4.6.1.0"), coreOK: true},
	"2.0": {frameworkOK: true, minFramework: moduleversion.MustParse("4.6.1.0"), coreOK: true, minCore: moduleversion.MustParse("2.0.0.0")},
	"2.1": {frameworkOK: false, coreOK: true, minCore: moduleversion.MustParse("3.0.0.0")},
}

// ErrUnsupportedStandardVersion is returned by Legal when the target
// .NETStandard version has no entry in the legality table (spec §4.3,
// §7 UnsupportedStandardVersion).
type ErrUnsupportedStandardVersion struct {
	Version moduleversion.Version
}

func (e *ErrUnsupportedStandardVersion) Error() string {
	return fmt.Sprintf("framework: unsupported .NETStandard version %s", e.Version)
}

// Legal implements the cross-framework legality check of spec §4.3.
// It returns an error only for ErrUnsupportedStandardVersion; any other
// bool result is a definitive legal/illegal verdict.
func Legal(source, target FrameworkVersion) (bool, error) {
	if source.Kind == Unknown || target.Kind == Unknown {
		return true, nil
	}

	if source.Kind == target.Kind {
		return moduleversion.Compare(source.Version, target.Version) >= 0, nil
	}

	switch target.Kind {
	case NETStandard:
		return legalAgainstStandard(source, target)
	case NETFramework:
		// target = Framework, source = Core → legal (coarse approximation,
		// preserved verbatim per spec §4.3 and design notes §9).
		if source.Kind == NETCoreApp {
			return true, nil
		}
		return false, nil
	case NETCoreApp:
		// target = Core, source = Framework or Standard → illegal.
		return false, nil
	default:
		return true, nil
	}
}

func legalAgainstStandard(source, target FrameworkVersion) (bool, error) {
	key := trimTrailingZeroParts(moduleversion.Version{Major: target.Version.Major, Minor: target.Version.Minor})
	rule, ok := standardRules[key]
	if !ok {
		return false, &ErrUnsupportedStandardVersion{Version: target.Version}
	}

	switch source.Kind {
	case NETFramework:
		if !rule.frameworkOK {
			return false, nil
		}
		return moduleversion.Compare(source.Version, rule.minFramework) >= 0, nil
	case NETCoreApp:
		if !rule.coreOK {
			return false, nil
		}
		return moduleversion.Compare(source.Version, rule.minCore) >= 0, nil
	case NETStandard:
		return moduleversion.Compare(source.Version, target.Version) >= 0, nil
	default:
		return true, nil
	}
}
