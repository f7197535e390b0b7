package fem

// Version constants for the canonical model and the tool.
const (
	// ModelVersion is the canonical model encoding version.
	ModelVersion = "1"

	// ToolVersion is the deckbridge release version.
	ToolVersion = "0.1.0"
)
