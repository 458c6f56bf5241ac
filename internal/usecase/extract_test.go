package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loantrack-core/internal/domain/entity"
)

func TestExtractCommandJSON_FlattenedText(t *testing.T) {
	resp := &entity.ModelResponse{
		OutputText: `{"action":"get_loans","parameters":{},"message":"ok","need_followup":false}`,
	}
	obj := ExtractCommandJSON(resp)
	require.NotNil(t, obj)
	assert.Equal(t, "get_loans", obj["action"])
}

func TestExtractCommandJSON_ToleratesProseAndFences(t *testing.T) {
	resp := &entity.ModelResponse{
		OutputText: "Sure! Here is the result:\n```json\n{\"action\":\"get_loans\",\"parameters\":{},\"message\":\"ok\",\"need_followup\":false}\n```",
	}
	obj := ExtractCommandJSON(resp)
	require.NotNil(t, obj)
	assert.Equal(t, "get_loans", obj["action"])
}

func TestExtractCommandJSON_OutputSegments(t *testing.T) {
	resp := &entity.ModelResponse{
		Output: []entity.ModelOutputItem{
			{Type: "reasoning"},
			{Type: "message", Content: []entity.ModelContentPart{
				{Type: "output_text", Text: "not json"},
				{Type: "output_text", Text: `{"action":"add_payment","message":"ok","need_followup":false}`},
			}},
		},
	}
	obj := ExtractCommandJSON(resp)
	require.NotNil(t, obj)
	assert.Equal(t, "add_payment", obj["action"])
}

func TestExtractCommandJSON_LegacyChoice(t *testing.T) {
	resp := &entity.ModelResponse{
		Choices: []entity.ModelChoice{
			{Message: entity.ModelChoiceMessage{Content: `{"action":"delete_loan","message":"ok","need_followup":false}`}},
		},
	}
	obj := ExtractCommandJSON(resp)
	require.NotNil(t, obj)
	assert.Equal(t, "delete_loan", obj["action"])
}

func TestExtractCommandJSON_PrefersFlattenedText(t *testing.T) {
	resp := &entity.ModelResponse{
		OutputText: `{"action":"get_loans","message":"flat","need_followup":false}`,
		Choices: []entity.ModelChoice{
			{Message: entity.ModelChoiceMessage{Content: `{"action":"get_loans","message":"legacy","need_followup":false}`}},
		},
	}
	obj := ExtractCommandJSON(resp)
	require.NotNil(t, obj)
	assert.Equal(t, "flat", obj["message"])
}

func TestExtractCommandJSON_NoJSONAnywhere(t *testing.T) {
	assert.Nil(t, ExtractCommandJSON(nil))
	assert.Nil(t, ExtractCommandJSON(&entity.ModelResponse{}))
	assert.Nil(t, ExtractCommandJSON(&entity.ModelResponse{OutputText: "I could not help with that."}))
	assert.Nil(t, ExtractCommandJSON(&entity.ModelResponse{OutputText: "{broken json"}))
}

func TestFindJSONCandidates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"bare object", `{"a":1}`, []string{`{"a":1}`}},
		{"nested braces", `{"a":{"b":2}}`, []string{`{"a":{"b":2}}`}},
		{"brace inside string", `{"a":"}"}`, []string{`{"a":"}"}`}},
		{"escaped quote", `{"a":"\"}"}`, []string{`{"a":"\"}"}`}},
		{"two objects", `{"a":1} and {"b":2}`, []string{`{"a":1}`, `{"b":2}`}},
		{"unterminated", `{"a":1`, nil},
		{"no object", "plain text", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findJSONCandidates(tt.in))
		})
	}
}

func TestDecodeFirstObject_SkipsInvalidCandidates(t *testing.T) {
	obj, ok := decodeFirstObject(`{"a":} then {"b":2}`)
	require.True(t, ok)
	assert.Equal(t, float64(2), obj["b"])
}
