package sfcli

import (
	"encoding/json"
	"fmt"

	"sforg/internal/errors"
)

// Envelope is the JSON document the CLI emits on stdout. The tool
// reports failure both through its exit code and through a non-zero
// embedded status, so both must be checked.
type Envelope struct {
	Status  int             `json:"status"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Name    string          `json:"name"`
}

// ParseEnvelope decodes stdout and rejects non-JSON payloads and
// embedded non-zero statuses.
func ParseEnvelope(out []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(out, &env); err != nil {
		return nil, errors.New(errors.ToolError, "response is not valid JSON", err)
	}

	if env.Status != 0 {
		msg := env.Message
		if msg == "" {
			msg = env.Name
		}
		if msg == "" {
			msg = "unknown tool failure"
		}
		return nil, errors.New(errors.ToolError,
			fmt.Sprintf("tool reported status %d: %s", env.Status, msg), nil)
	}

	return &env, nil
}

// Records decodes the envelope result as a list of T. A single-object
// result is normalized to a one-element slice; a null result is empty.
func Records[T any](env *Envelope) ([]T, error) {
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, nil
	}

	var list []T
	if err := json.Unmarshal(env.Result, &list); err == nil {
		return list, nil
	}

	var single T
	if err := json.Unmarshal(env.Result, &single); err != nil {
		return nil, errors.New(errors.ToolError, "result payload has unexpected shape", err)
	}
	return []T{single}, nil
}

// QueryRecords decodes the usual {"records": [...]} shape of query
// responses, tolerating a bare array as well.
func QueryRecords[T any](env *Envelope) ([]T, error) {
	var wrapped struct {
		Records []T `json:"records"`
	}
	if err := json.Unmarshal(env.Result, &wrapped); err == nil && wrapped.Records != nil {
		return wrapped.Records, nil
	}
	return Records[T](env)
}
