package overrides

import (
	"strings"

	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/moduleversion"
)

// maxPasses bounds the fixpoint iteration of Apply per spec §3
// ("must terminate in ≤ 5 passes").
const maxPasses = 5

// Apply sets EffectiveVersion (and CodebaseHint) on refs by iterating rules
// to a fixpoint, per spec §4.5. It is order-stable: rules are consulted in
// the order given (document order from ParseSidecar), and iteration stops
// as soon as a pass makes no change.
//
// A PlatformInvoke reference is left untouched: it carries no declared
// version by construction (spec §3 invariant) and so never has a non-nil
// EffectiveVersion to redirect.
func Apply(refs []moduledata.Reference, rules []moduledata.OverrideRule) []moduledata.Reference {
	out := make([]moduledata.Reference, len(refs))
	copy(out, refs)

	for i := range out {
		if out[i].EffectiveVersion == nil && out[i].DeclaredVersion != nil {
			v := *out[i].DeclaredVersion
			out[i].EffectiveVersion = &v
		}
	}

	for pass := 0; pass < maxPasses; pass++ {
		changed := false

		for i := range out {
			if out[i].EffectiveVersion == nil {
				continue
			}

			current, err := moduleversion.Parse(*out[i].EffectiveVersion)
			if err != nil {
				continue
			}

			for _, rule := range rules {
				if !strings.EqualFold(rule.TargetBinaryName, out[i].BinaryName) {
					continue
				}

				min, errMin := moduleversion.Parse(rule.OldVersionMin)
				max, errMax := moduleversion.Parse(rule.OldVersionMax)
				if errMin != nil || errMax != nil {
					continue
				}
				if !moduleversion.InRange(current, min, max) {
					continue
				}

				if rule.NewVersion != nil && *rule.NewVersion != *out[i].EffectiveVersion {
					newVersion := *rule.NewVersion
					out[i].EffectiveVersion = &newVersion
					current, _ = moduleversion.Parse(newVersion)
					changed = true
				}
				if rule.Codebase != nil {
					hint := *rule.Codebase
					if out[i].CodebaseHint == nil || *out[i].CodebaseHint != hint {
						out[i].CodebaseHint = &hint
						changed = true
					}
				}
			}
		}

		if !changed {
			break
		}
	}

	return out
}
