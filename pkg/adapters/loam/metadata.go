package loam

// StateMetadata is the frontmatter of a script document. It uses
// "mapstructure" tags to match the decoded frontmatter keys.
type StateMetadata struct {
	// Name overrides the state name implied by the filename.
	Name string `json:"name" mapstructure:"name"`

	// Default marks the state conversations rest in.
	// Exactly one state document must set it.
	Default bool `json:"default" mapstructure:"default"`

	// Rules is the declarative response policy. Kept loose and decoded
	// rule by rule so a malformed entry fails with its position.
	Rules []any `json:"rules" mapstructure:"rules"`

	// Else is the fallback transition when no rule matches.
	Else map[string]any `json:"else" mapstructure:"else"`

	// Tags contributes phrase -> tag(s) entries to the script table.
	// Usually lives in the tags document, but any file may contribute.
	Tags map[string]any `json:"tags" mapstructure:"tags"`
}

type ruleMeta struct {
	When     string `mapstructure:"when"`
	MinCount int    `mapstructure:"min_count"`
	GoTo     string `mapstructure:"go_to"`
	Finish   string `mapstructure:"finish"`
}

type elseMeta struct {
	GoTo   string `mapstructure:"go_to"`
	Finish string `mapstructure:"finish"`
}
