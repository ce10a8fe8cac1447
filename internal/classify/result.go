package classify

// Result is the verdict for one flow vector.
type Result struct {
	Verdict     string   `json:"verdict"`
	Category    Category `json:"category"`
	Confidence  string   `json:"confidence"`
	Probability float64  `json:"probability"`
	Reason      string   `json:"reason,omitempty"`
	Mode        Mode     `json:"mode"`
}
