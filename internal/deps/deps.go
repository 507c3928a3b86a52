package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of an external tool
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
	Purpose   string
	Required  bool
}

// Tool describes an external program medivoice shells out to.
type Tool struct {
	Name        string
	VersionArgs []string
	Purpose     string
	Required    bool
}

// Tools lists every external program used at runtime.
var Tools = []Tool{
	{Name: "pw-record", VersionArgs: []string{"--version"}, Purpose: "microphone capture", Required: true},
	{Name: "notify-send", VersionArgs: []string{"--version"}, Purpose: "desktop notifications"},
	{Name: "wl-copy", VersionArgs: []string{"--version"}, Purpose: "copy summaries to the clipboard"},
	{Name: "wtype", Purpose: "type summaries into the focused window"},
}

var (
	lookPath = exec.LookPath

	commandOutput = func(path string, args ...string) ([]byte, error) {
		return exec.Command(path, args...).Output()
	}
)

// Check reports whether tool is installed and, when it can tell, its version.
func Check(tool Tool) Status {
	status := Status{Name: tool.Name, Purpose: tool.Purpose, Required: tool.Required}

	path, err := lookPath(tool.Name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	if len(tool.VersionArgs) == 0 {
		return status
	}
	output, err := commandOutput(path, tool.VersionArgs...)
	if err == nil {
		// first line carries the version for all of these tools
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}

// CheckAll checks every entry of Tools.
func CheckAll() []Status {
	out := make([]Status, 0, len(Tools))
	for _, t := range Tools {
		out = append(out, Check(t))
	}
	return out
}

// Missing returns the required tools that are not installed.
func Missing(statuses []Status) []string {
	var names []string
	for _, s := range statuses {
		if s.Required && !s.Installed {
			names = append(names, s.Name)
		}
	}
	return names
}
