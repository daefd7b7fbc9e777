package store

import (
	"bytes"
	"encoding/json"
	"math"

	"licensepurge/pkg/removal"
)

// maxBodyPreview bounds the response text kept for fatal outcomes
const maxBodyPreview = 500

// Classify maps a completed removal response to an Outcome.
//
// Non-2xx is a failure. A body that is not JSON means the session is gone
// or the request was intercepted, which is fatal. Otherwise the "success"
// code decides; a missing or non-numeric code counts as 0.
func Classify(statusCode int, body []byte, allowSkipping bool) removal.Outcome {
	if statusCode < 200 || statusCode >= 300 {
		return removal.Fail(statusCode)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return removal.Fatal(preview(trimmed))
	}

	var payload interface{}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return removal.Fatal(preview(trimmed))
	}

	code := successCode(payload)
	switch {
	case code == CodeSuccess:
		return removal.Success()
	case code == CodeUndefinedID:
		return removal.UndefinedID()
	case allowSkipping:
		return removal.Skipped(code)
	default:
		return removal.RateLimited(code)
	}
}

func successCode(payload interface{}) int {
	obj, ok := payload.(map[string]interface{})
	if !ok {
		return 0
	}
	n, ok := obj["success"].(float64)
	if !ok {
		return 0
	}
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0
	}
	return int(n)
}

func preview(body []byte) string {
	if len(body) > maxBodyPreview {
		return string(body[:maxBodyPreview]) + "..."
	}
	return string(body)
}
