package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeJSON unmarshals a model answer into v. Code fences and chatter around
// the object are dropped; near-miss JSON (trailing commas, unterminated
// strings) is repaired once before giving up with ErrMalformedResponse.
func DecodeJSON(content string, v any) error {
	raw, ok := extractObject(content)
	if !ok {
		return fmt.Errorf("%w: no JSON object in answer", ErrMalformedResponse)
	}

	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// DecodeStrictJSON is DecodeJSON without the repair pass. Answers whose
// content is acted on must use it, since a repaired truncation still parses.
func DecodeStrictJSON(content string, v any) error {
	raw, ok := extractObject(content)
	if !ok {
		return fmt.Errorf("%w: no JSON object in answer", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func extractObject(content string) (string, bool) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		// Truncated answer; let the repair pass close it.
		return s[start:], true
	}
	return s[start : end+1], true
}
