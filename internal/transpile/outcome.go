package transpile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks replies that do not have the expected shape.
var ErrMalformedResponse = errors.New("malformed transpile response")

// Result is the normalized reply of one transpile cycle.
type Result struct {
	Text      string
	Succeeded bool
}

// Outcome is the decoded reply: Success, Failure or Malformed.
type Outcome interface {
	outcome()
}

// Success carries translated text the service vouched for.
type Success struct{ Text string }

// Failure carries whatever diagnostic text the service returned.
type Failure struct{ Text string }

// Malformed describes why a reply could not be used.
type Malformed struct{ Reason string }

func (Success) outcome()   {}
func (Failure) outcome()   {}
func (Malformed) outcome() {}

// wireRequest is the body sent to POST /transpile.
type wireRequest struct {
	Code string `json:"code"`
}

// wireResponse uses pointers so absent fields are distinguishable from
// zero values.
type wireResponse struct {
	Result  *string `json:"result"`
	Success *bool   `json:"success"`
}

// Decode validates a reply body. Success is only ever taken from the
// explicit boolean field, never from the presence of text.
func Decode(body []byte) Outcome {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Malformed{Reason: "empty body"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Malformed{Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	var resp wireResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return Malformed{Reason: fmt.Sprintf("unexpected field types: %v", err)}
	}
	if resp.Success == nil {
		return Malformed{Reason: `missing "success"`}
	}
	if resp.Result == nil {
		return Malformed{Reason: `missing "result"`}
	}
	if *resp.Success {
		return Success{Text: *resp.Result}
	}
	return Failure{Text: *resp.Result}
}

// resolve maps an Outcome to the Client contract.
func resolve(o Outcome) (Result, error) {
	switch v := o.(type) {
	case Success:
		return Result{Text: v.Text, Succeeded: true}, nil
	case Failure:
		return Result{Text: v.Text, Succeeded: false}, nil
	case Malformed:
		return Result{}, fmt.Errorf("%w: %s", ErrMalformedResponse, v.Reason)
	default:
		return Result{}, fmt.Errorf("%w: unknown outcome %T", ErrMalformedResponse, o)
	}
}

// IsMalformed reports whether err came from an unusable reply.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// stripFences removes a Markdown code fence that models like to wrap
// JSON replies in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
