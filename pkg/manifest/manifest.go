package manifest

// SummaryManifest represents the structure of summary.json.
// It gives a lightweight overview of a run: its settings, the shape of the
// corpus, and the top entries, without reading the full ranking files.
type SummaryManifest struct {
	GeneratedAt    string         `json:"generated_at"`
	RunID          string         `json:"run_id"`
	Command        string         `json:"command"`
	Strategy       string         `json:"strategy"`
	Workers        int            `json:"workers"`
	TopK           int            `json:"top_k"`
	TagMarker      string         `json:"tag_marker"`
	Records        int            `json:"records"`
	DistinctTokens int            `json:"distinct_tokens"`
	TotalTokens    int64          `json:"total_tokens"`
	CorpusHash     string         `json:"corpus_hash,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
	Load           LoadSummary    `json:"load"`
	Inputs         []InputSummary `json:"inputs,omitempty"`
	TopWords       []string       `json:"top_words"`
	TopTags        []string       `json:"top_tags"`
}

// LoadSummary mirrors what happened to the input rows.
type LoadSummary struct {
	Files      int `json:"files"`
	Rows       int `json:"rows"`
	Duplicates int `json:"duplicates,omitempty"`
	Rejected   int `json:"rejected,omitempty"`
	Filtered   int `json:"filtered,omitempty"`
}

// InputSummary represents one input file.
type InputSummary struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}
