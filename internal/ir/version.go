package ir

// Version constants for the store schema and tool.
const (
	// SchemaVersion is the user_version written by the current schema.
	SchemaVersion = 1

	// ToolVersion is the insertdb version.
	ToolVersion = "0.1.0"
)
