package usecase

import (
	"encoding/json"

	"loantrack-core/internal/domain/entity"
)

// The upstream API has changed response shapes across versions, so
// extraction is an ordered chain of independent extractors. Each one is
// pure: it either yields a parsed JSON object or reports no match, and the
// chain short-circuits on the first success.

type extractor func(*entity.ModelResponse) (map[string]any, bool)

// ExtractCommandJSON pulls a single JSON object out of a model response,
// trying the flattened-text field, then the segmented output list, then the
// legacy single-message shape. Returns nil if no shape yields valid JSON.
func ExtractCommandJSON(resp *entity.ModelResponse) map[string]any {
	if resp == nil {
		return nil
	}
	for _, ex := range []extractor{extractFlattenedText, extractOutputSegments, extractLegacyChoice} {
		if obj, ok := ex(resp); ok {
			return obj
		}
	}
	return nil
}

func extractFlattenedText(resp *entity.ModelResponse) (map[string]any, bool) {
	if resp.OutputText == "" {
		return nil, false
	}
	return decodeFirstObject(resp.OutputText)
}

func extractOutputSegments(resp *entity.ModelResponse) (map[string]any, bool) {
	for _, item := range resp.Output {
		for _, part := range item.Content {
			if part.Text == "" {
				continue
			}
			if obj, ok := decodeFirstObject(part.Text); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

func extractLegacyChoice(resp *entity.ModelResponse) (map[string]any, bool) {
	if len(resp.Choices) == 0 {
		return nil, false
	}
	return decodeFirstObject(resp.Choices[0].Message.Content)
}

// decodeFirstObject scans text for top-level JSON object candidates and
// returns the first one that unmarshals. Tolerates prose and code fences
// around the object.
func decodeFirstObject(text string) (map[string]any, bool) {
	for _, candidate := range findJSONCandidates(text) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}

// findJSONCandidates walks the input byte by byte tracking brace depth and
// string/escape state, collecting each complete top-level {...} span. Safe
// to iterate bytes because the delimiters are ASCII and UTF-8 never embeds
// ASCII bytes in multi-byte sequences.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}
