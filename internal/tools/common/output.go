package common

import (
	"encoding/json"
	"io"
	"time"
)

// CIResult is the machine-readable summary a tool prints with --ci.
type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
	Elapsed string   `json:"elapsed"`
}

func NewCIResult(title string, details []string, err error, elapsed time.Duration) CIResult {
	r := CIResult{OK: err == nil, Title: title, Details: details, Elapsed: elapsed.Round(time.Millisecond).String()}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func WriteCIResult(w io.Writer, r CIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
