package classify

import "errors"

// Request is the JSON body accepted by the API and websocket surfaces.
type Request struct {
	FlowData     string `json:"flow_data"`
	AnalysisMode string `json:"analysis_mode"`
}

// Response is the JSON rendering of one classification outcome.
type Response struct {
	Verdict     string   `json:"verdict"`
	Category    Category `json:"category"`
	Confidence  string   `json:"confidence,omitempty"`
	Probability float64  `json:"probability,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	ErrorKind   string   `json:"error_kind,omitempty"`
}

// NewResponse renders res, or err when res is nil. Errors use the attack
// category and carry the "Error: " prefix shown on the form.
func NewResponse(res *Result, err error) Response {
	if err != nil {
		msg := err.Error()
		var ce *Error
		if !errors.As(err, &ce) {
			msg = "internal error"
		}
		return Response{
			Verdict:   "Error: " + msg,
			Category:  CategoryAttack,
			ErrorKind: KindOf(err).String(),
		}
	}
	return Response{
		Verdict:     res.Verdict,
		Category:    res.Category,
		Confidence:  res.Confidence,
		Probability: res.Probability,
		Reason:      res.Reason,
		Mode:        res.Mode.String(),
	}
}
