package classify

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TobiSchelling/CommentGender/internal/llm"
)

// ErrUnparseableResponse is returned when a model reply cannot be turned into a
// username to gender map.
var ErrUnparseableResponse = errors.New("unparseable classification response")

// RepairResponse cuts the JSON object out of a model reply, closing it when the
// reply was truncated.
func RepairResponse(text string) (string, error) {
	obj, err := llm.ExtractJSONObject(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	return obj, nil
}

// DecodeResponse repairs and decodes a model reply. Every value must be one of
// the gender codes.
func DecodeResponse(text string) (map[string]Gender, error) {
	obj, err := RepairResponse(text)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}

	labels := make(map[string]Gender, len(raw))
	for username, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: value for %q is %T, not a string", ErrUnparseableResponse, username, v)
		}
		g, err := ParseGender(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
		}
		labels[username] = g
	}
	return labels, nil
}
