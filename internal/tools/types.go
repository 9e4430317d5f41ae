package tools

type Source string

const (
	SourceUnknown Source = ""
	SourceConfig  Source = "config"
	SourceSystem  Source = "system"
)

// Status captures the resolved state for a required tool.
type Status struct {
	Tool      string   `json:"tool"`
	Version   string   `json:"version,omitempty"`
	Minimum   string   `json:"minimum,omitempty"`
	Source    Source   `json:"source"`
	Path      string   `json:"path,omitempty"`
	Satisfied bool     `json:"satisfied"`
	Error     string   `json:"error,omitempty"`
	Hints     []string `json:"hints,omitempty"`
}

// ToolDefinition contains metadata required to locate and check a tool.
type ToolDefinition struct {
	Name           string
	MinimumVersion string
	Executable     string
	VersionSwitch  string
}
