package validation

// Enum values - these MUST match the DB CHECK constraints in the schema.
var (
	ValidStages = []string{"aging", "coating", "completed"}
	ValidKinds  = []string{"AM7", "AU8"}
)
