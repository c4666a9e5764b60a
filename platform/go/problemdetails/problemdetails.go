// Package problemdetails provides the RFC 7807 error body shared by all
// HTTP handlers.
package problemdetails

import (
	"encoding/json"
	"net/http"
)

// ContentType is the media type for problem responses.
const ContentType = "application/problem+json"

// ProblemDetails is the wire representation of a failed request. Reason and
// SuggestedDate are extension members used by the scheduling endpoints.
type ProblemDetails struct {
	Type          *string             `json:"type,omitempty"`
	Title         string              `json:"title"`
	Status        int                 `json:"status"`
	Detail        *string             `json:"detail,omitempty"`
	Errors        map[string][]string `json:"errors,omitempty"`
	Reason        string              `json:"reason,omitempty"`
	SuggestedDate *string             `json:"suggestedDate,omitempty"`
}

// Write serializes the problem with the proper content type and status code.
func Write(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
