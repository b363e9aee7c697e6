// Package loosejson decodes JSON produced by language models, which is not
// always strictly valid: the object is frequently wrapped in prose or code
// fences. Decode tries a direct parse first, then falls back to the substring
// between the first '{' and the last '}'.
package loosejson

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedResponseError reports text that could not be decoded even after
// brace extraction. It is permanent; callers must not retry.
type MalformedResponseError struct {
	Snippet string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response %q: %v", e.Snippet, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

const snippetLen = 120

// Decode unmarshals raw into v, recovering once via brace extraction.
func Decode(raw string, v interface{}) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return &MalformedResponseError{
			Snippet: snippet(raw),
			Err:     fmt.Errorf("no JSON object found"),
		}
	}

	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return &MalformedResponseError{Snippet: snippet(raw), Err: err}
	}
	return nil
}

func snippet(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > snippetLen {
		return raw[:snippetLen] + "..."
	}
	return raw
}
