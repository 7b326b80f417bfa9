package analysis

// Issue kinds.
const (
	KindSpelling    = "spelling"
	KindGrammar     = "grammar"
	KindPunctuation = "punctuation"
	KindOther       = "other"
)

// Issue locations.
const (
	LocationTitle       = "title"
	LocationDescription = "description"
	LocationImageText   = "image_text"
)

// Quality tiers. QualityUnknown marks judgments substituted after an
// unparsable analyzer response.
const (
	QualityExcellent        = "excellent"
	QualityGood             = "good"
	QualityNeedsImprovement = "needs_improvement"
	QualityPoor             = "poor"
	QualityUnknown          = "unknown"
)

// Issue is a single linguistic problem found in product copy.
type Issue struct {
	Kind       string `json:"type"`
	Location   string `json:"location"`
	Original   string `json:"original"`
	Suggestion string `json:"suggestion"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
}

// Judgment is the structured verdict on a product's combined text.
// HasIssues is always kept consistent with len(Issues) > 0.
type Judgment struct {
	HasIssues  bool    `json:"hasIssues"`
	Issues     []Issue `json:"issues"`
	Quality    string  `json:"overallQuality"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}
