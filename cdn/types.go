package cdn

import (
	"fmt"
	"strings"
)

// PurgeRequest is one tag purge for one zone.
type PurgeRequest struct {
	// ID correlates the request across logs and spans. Optional.
	ID    string
	Zone  string
	Token string
	Tags  []string
}

// Validate reports ErrInvalidRequest for incomplete requests.
func (r PurgeRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Zone) == "" {
		missing = append(missing, "zone")
	}
	if strings.TrimSpace(r.Token) == "" {
		missing = append(missing, "token")
	}
	if len(r.Tags) == 0 {
		missing = append(missing, "tags")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// purgeBody is the wire body of a tag purge.
type purgeBody struct {
	Tags []string `json:"tags"`
}

// APIMessage is an entry of the errors or messages arrays of an API response.
type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (m APIMessage) String() string {
	return fmt.Sprintf("%d: %s", m.Code, m.Message)
}

// PurgeResult is the decoded API response of one purge.
type PurgeResult struct {
	Success    bool         `json:"success"`
	Errors     []APIMessage `json:"errors"`
	Messages   []APIMessage `json:"messages"`
	StatusCode int          `json:"-"`

	// Raw is the response body exactly as received.
	Raw []byte `json:"-"`
}

// ErrorSummary joins the API errors into one line.
func (r *PurgeResult) ErrorSummary() string {
	if r == nil || len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}
