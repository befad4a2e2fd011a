package inspect

import (
	"bufio"
	"os/exec"
	"strings"

	"github.com/smith-xyz/bindgraph/pkg/appconfig"
	"github.com/smith-xyz/bindgraph/pkg/moduledata"
	"github.com/smith-xyz/bindgraph/pkg/utils"
)

const (
	fileHeaderMarker   = "FILE HEADER VALUES"
	dependenciesMarker = "Image has the following dependencies:"
)

// NativeInspector implements C4: running an external dump utility against
// a candidate file and parsing its textual report for machine word width
// and the native import table.
type NativeInspector struct {
	cfg    appconfig.NativeConfig
	logger *utils.VerboseLogger
}

// NewNativeInspector builds a NativeInspector configured with the dump
// command and arguments from appconfig.
func NewNativeInspector(cfg appconfig.NativeConfig, logger *utils.VerboseLogger) *NativeInspector {
	return &NativeInspector{cfg: cfg, logger: logger}
}

func (n *NativeInspector) Name() string { return "native" }

// Inspect runs the configured dump utility against path and parses its
// output per spec §4.2. The dump utility's own exit code is not treated
// as fatal: some dump tools exit non-zero on files they can still report
// useful headers for, so the parse proceeds against whatever text was
// captured on stdout/stderr.
func (n *NativeInspector) Inspect(path string) (*moduledata.ModuleData, error) {
	args := append(append([]string{}, n.cfg.DumpArgs...), path)
	cmd := exec.Command(n.cfg.DumpCommand, args...) // #nosec G204 - dump command is operator-configured, not user input
	output, _ := cmd.CombinedOutput()
	text := string(output)

	if n.logger != nil {
		n.logger.DebugLogf("inspect: ran %s %v on %s\n", n.cfg.DumpCommand, args, path)
	}

	if !strings.Contains(text, fileHeaderMarker) {
		return &moduledata.ModuleData{
			Kind:        moduledata.BinaryKindUnknown,
			LoaderError: "File is not a native executable",
		}, nil
	}

	data := &moduledata.ModuleData{
		Kind:     moduledata.BinaryKindNative,
		Platform: parseMachine(text),
	}
	data.References = parseDependencies(text)

	return data, nil
}

func parseMachine(text string) moduledata.Platform {
	switch {
	case strings.Contains(text, "machine (x64)"):
		return moduledata.PlatformAMD64
	case strings.Contains(text, "machine (x86)"):
		return moduledata.PlatformX86
	default:
		return moduledata.PlatformUnknown
	}
}

// parseDependencies reads the "Image has the following dependencies:"
// block: skip two lines (the marker line and the blank line after it),
// then read entries until a blank line, trimming each and lower-casing its
// stem for the emitted NativeImport reference.
func parseDependencies(text string) []moduledata.Reference {
	scanner := bufio.NewScanner(strings.NewReader(text))
	var refs []moduledata.Reference
	inBlock := false
	skip := 0

	for scanner.Scan() {
		line := scanner.Text()

		if !inBlock {
			if strings.Contains(line, dependenciesMarker) {
				inBlock = true
				skip = 1
			}
			continue
		}

		if skip > 0 {
			skip--
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}

		refs = append(refs, moduledata.Reference{
			BinaryName: strings.ToLower(stem(trimmed)),
			Kind:       moduledata.ReferenceKindNativeImport,
		})
	}

	return refs
}
