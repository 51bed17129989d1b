package llm

import (
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a response contains no '{'.
var ErrNoJSONObject = errors.New("no JSON object in response")

// ExtractJSONObject returns the JSON object embedded in free-form model output.
//
// The object starts at the first '{'. When the text holds no '}' at all the
// response is assumed truncated mid-object: it is cut at the last comma and
// closed with '}'. This drops the trailing pair even if that pair was complete.
// Otherwise the object ends at the last '}'.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	if !strings.Contains(text, "}") {
		cut := strings.LastIndexByte(text, ',')
		if cut < 0 {
			// No comma: drop the final byte, as the truncation point.
			cut = len(text) - 1
		}
		text = text[:cut] + "}"
	}

	end := strings.LastIndexByte(text, '}') + 1
	if end <= start {
		return "", ErrNoJSONObject
	}
	return text[start:end], nil
}
