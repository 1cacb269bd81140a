package loganalysis

// DefaultConfidenceThreshold is the score below which a refinement pass is
// attempted.
const DefaultConfidenceThreshold = 70

// Analysis is the structured result of analyzing one log excerpt, whether
// produced by a model or by the external analyzer subprocess.
type Analysis struct {
	Category       string   `json:"category"`
	Confidence     int      `json:"confidence"`
	Critical       bool     `json:"critical"`
	RootCause      string   `json:"root_cause"`
	SuggestedFixes []string `json:"suggested_fixes"`
	Patch          string   `json:"patch,omitempty"`

	// Source records provenance: the model id or "analyzer" for the
	// subprocess. Filled by the workflow, not the producer.
	Source string `json:"source,omitempty"`
	// Refined marks results adopted from a second pass.
	Refined bool `json:"refined,omitempty"`
}

// CodeFix is the structured result of a code-fix request.
type CodeFix struct {
	FixedCode   string `json:"fixed_code"`
	Explanation string `json:"explanation"`
	Confidence  int    `json:"confidence"`
	Source      string `json:"source,omitempty"`
}
