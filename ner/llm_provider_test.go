package ner

import (
	"context"
	"errors"
	"testing"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func mustParseTemplate(t *testing.T, text string) *template.Template {
	t.Helper()
	tmpl, err := template.New("ner").Funcs(sprig.FuncMap()).Parse(text)
	require.NoError(t, err)
	return tmpl
}

// mockLLM implements llms.Model for testing without a real backend
type mockLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (m *mockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	idx := m.calls
	m.calls++

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx >= len(m.responses) {
		return nil, errors.New("no more mock responses")
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[idx]}},
	}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestParseEntityResponse(t *testing.T) {
	line := "Name: Ravi Kumar S/O Mohan Lal"

	tests := []struct {
		name    string
		content string
		want    []Entity
		wantErr bool
	}{
		{
			name:    "clean object response",
			content: `{"entities": [{"text": "Ravi Kumar", "label": "PERSON", "start": 6, "end": 16}]}`,
			want:    []Entity{{Text: "Ravi Kumar", Label: "PERSON", Start: 6, End: 16}},
		},
		{
			name:    "bare array response",
			content: `[{"text": "Ravi Kumar", "label": "PERSON", "start": 6, "end": 16}]`,
			want:    []Entity{{Text: "Ravi Kumar", Label: "PERSON", Start: 6, End: 16}},
		},
		{
			name: "reasoning tags stripped",
			content: `<think>The name appears after the colon.</think>
{"entities": [{"text": "Ravi Kumar", "label": "PERSON", "start": 6, "end": 16}]}`,
			want: []Entity{{Text: "Ravi Kumar", Label: "PERSON", Start: 6, End: 16}},
		},
		{
			name: "markdown code fences stripped",
			content: "```json\n" +
				`{"entities": [{"text": "Ravi Kumar", "label": "PERSON", "start": 6, "end": 16}]}` +
				"\n```",
			want: []Entity{{Text: "Ravi Kumar", Label: "PERSON", Start: 6, End: 16}},
		},
		{
			name:    "wrong offsets repaired by search",
			content: `{"entities": [{"text": "Mohan Lal", "label": "PERSON", "start": 0, "end": 9}]}`,
			want:    []Entity{{Text: "Mohan Lal", Label: "PERSON", Start: 21, End: 30}},
		},
		{
			name:    "entity not present in line dropped",
			content: `{"entities": [{"text": "Nobody Here", "label": "PERSON", "start": 0, "end": 11}]}`,
			want:    []Entity{},
		},
		{
			name:    "empty entity text dropped",
			content: `{"entities": [{"text": "", "label": "PERSON", "start": 0, "end": 0}]}`,
			want:    []Entity{},
		},
		{
			name:    "no entities",
			content: `{"entities": []}`,
			want:    []Entity{},
		},
		{
			name:    "unparseable response",
			content: `the document contains the name Ravi Kumar`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEntityResponse(tt.content, line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripReasoning(t *testing.T) {
	assert.Equal(t, "result", stripReasoning("<think>hmm</think>result"))
	assert.Equal(t, "result", stripReasoning("  result  "))
	assert.Equal(t, "<think>unclosed", stripReasoning("<think>unclosed"))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, stripCodeFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripCodeFences("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, stripCodeFences(`{"a": 1}`))
}

func TestRateLimitedLLMRetries(t *testing.T) {
	mock := &mockLLM{
		responses: []string{"", "", `{"entities": []}`},
		errs:      []error{errors.New("rate limited"), errors.New("rate limited"), nil},
	}

	limited := newRateLimitedLLM(mock, rateLimitConfig{MaxRetries: 3})
	limited.backoffMin = time.Millisecond
	limited.backoffMax = 2 * time.Millisecond

	resp, err := limited.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "prompt"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, mock.calls)
	assert.Equal(t, `{"entities": []}`, resp.Choices[0].Content)
}

func TestRateLimitedLLMExhaustsRetries(t *testing.T) {
	mock := &mockLLM{
		errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}

	limited := newRateLimitedLLM(mock, rateLimitConfig{MaxRetries: 2})
	limited.backoffMin = time.Millisecond
	limited.backoffMax = 2 * time.Millisecond

	_, err := limited.GenerateContent(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retry attempts failed")
	assert.Equal(t, 3, mock.calls)
}

func TestLLMProviderExtractEntities(t *testing.T) {
	mock := &mockLLM{
		responses: []string{`{"entities": [{"text": "Ravi Kumar", "label": "PERSON", "start": 6, "end": 16}]}`},
	}

	provider := &LLMProvider{
		provider: "openai",
		model:    "gpt-4o-mini",
		llm:      mock,
		template: mustParseTemplate(t, DefaultPrompt),
	}

	entities, err := provider.ExtractEntities(context.Background(), "Name: Ravi Kumar")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Ravi Kumar", entities[0].Text)
	assert.Equal(t, "PERSON", entities[0].Label)
}
