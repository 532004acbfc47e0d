package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/nas/track-learning/internal/errors"
)

var (
	fencedBlock = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	braceSpan   = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ExtractJSON recovers the JSON object in a model reply.
//
// The reply is trimmed and, when it holds a ``` fence, narrowed to the fence
// interior. The span from the first '{' to the last '}' is then parsed as-is;
// malformed JSON is not repaired.
func ExtractJSON(text string) (map[string]any, error) {
	raw := strings.TrimSpace(text)
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}

	span := braceSpan.FindString(raw)
	if span == "" {
		return nil, errors.NewExtraction("no JSON found in LLM response", nil)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(span), &out); err != nil {
		return nil, errors.NewExtraction("invalid JSON in LLM response: "+err.Error(), err)
	}
	return out, nil
}
