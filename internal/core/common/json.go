package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON extracts the outermost JSON object from a model reply and
// decodes it into T. Replies often wrap the object in prose or a fenced
// code block.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start := strings.IndexByte(response, '{')
	if start == -1 {
		return zero, fmt.Errorf("no JSON object found in response (missing '{')")
	}
	end := strings.LastIndexByte(response, '}')
	if end < start {
		return zero, fmt.Errorf("no JSON object found in response (missing '}')")
	}
	body := response[start : end+1]

	var result T
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, body)
	}

	return result, nil
}
