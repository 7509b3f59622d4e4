package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
)

// DefaultPrompt is the entity extraction prompt used when no template file
// is configured.
const DefaultPrompt = `You are a named-entity recognition engine. Find every person name in the text below.

Respond ONLY with a JSON object of the form {"entities": [{"text": "...", "label": "...", "start": 0, "end": 0}]}.
Use one entry per person name, label it {{.Labels | join ", "}}, and give "start"/"end" as byte offsets into the text with "end" exclusive.
If the text contains no person names respond with {"entities": []}.

Text:
{{.Text}}
`

// LLMProvider implements NER using a text LLM prompted to return entity
// spans as JSON.
type LLMProvider struct {
	provider string
	model    string
	llm      llms.Model
	template *template.Template
}

func newLLMProvider(config Config) (*LLMProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": config.LLMProvider,
		"model":    config.LLMModel,
	})
	logger.Info("Creating new LLM NER provider")

	model, err := createLLM(config)
	if err != nil {
		logger.WithError(err).Error("Failed to create LLM client")
		return nil, fmt.Errorf("error creating LLM client: %w", err)
	}

	limited := newRateLimitedLLM(model, rateLimitConfig{
		RequestsPerMinute: config.RequestsPerMinute,
		MaxRetries:        config.MaxRetries,
	})

	promptText := config.LLMPrompt
	if promptText == "" {
		promptText = DefaultPrompt
	}
	tmpl, err := template.New("ner").Funcs(sprig.FuncMap()).Parse(promptText)
	if err != nil {
		return nil, fmt.Errorf("error parsing NER prompt template: %w", err)
	}

	logger.Info("Successfully initialized LLM NER provider")
	return &LLMProvider{
		provider: config.LLMProvider,
		model:    config.LLMModel,
		llm:      limited,
		template: tmpl,
	}, nil
}

// llmEntityResponse is the structured output schema the model is asked for
type llmEntityResponse struct {
	Think    *string  `json:"think,omitempty"` // Optional reasoning field to help models produce better results
	Entities []Entity `json:"entities"`
}

func (p *LLMProvider) ExtractEntities(ctx context.Context, text string) ([]Entity, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": p.provider,
		"model":    p.model,
	})
	logger.Debug("Starting LLM entity extraction")

	var promptBuffer bytes.Buffer
	err := p.template.Execute(&promptBuffer, map[string]interface{}{
		"Text":   text,
		"Labels": p.PersonLabels(),
	})
	if err != nil {
		return nil, fmt.Errorf("error executing NER prompt template: %w", err)
	}

	completion, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, promptBuffer.String()),
	}, llms.WithJSONMode())
	if err != nil {
		logger.WithError(err).Error("Failed to get response from LLM")
		return nil, fmt.Errorf("error getting response from LLM: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from LLM")
	}

	entities, err := parseEntityResponse(completion.Choices[0].Content, text)
	if err != nil {
		logger.WithError(err).Error("Failed to parse LLM entity response")
		return nil, fmt.Errorf("error parsing LLM entity response: %w", err)
	}

	logger.WithField("entity_count", len(entities)).Debug("LLM extraction complete")
	return entities, nil
}

// PersonLabels returns the label the prompt instructs the model to use.
func (p *LLMProvider) PersonLabels() []string {
	return []string{"PERSON"}
}

// parseEntityResponse decodes the model output and repairs span offsets the
// model got wrong. Entities whose text cannot be located in the line at all
// are dropped.
func parseEntityResponse(content, text string) ([]Entity, error) {
	cleaned := stripReasoning(content)
	cleaned = stripCodeFences(cleaned)

	var resp llmEntityResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		// Some models answer with a bare array despite the instructions.
		var bare []Entity
		if arrErr := json.Unmarshal([]byte(cleaned), &bare); arrErr != nil {
			return nil, fmt.Errorf("failed to parse structured response: %w", err)
		}
		resp.Entities = bare
	}

	entities := make([]Entity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		if e.Text == "" {
			continue
		}
		if !spanMatches(e, text) {
			idx := strings.Index(text, e.Text)
			if idx < 0 {
				continue
			}
			e.Start = idx
			e.End = idx + len(e.Text)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func spanMatches(e Entity, text string) bool {
	return e.Start >= 0 && e.End <= len(text) && e.Start < e.End && text[e.Start:e.End] == e.Text
}

// stripReasoning removes reasoning indicated by <think> and </think> tags.
// Some models include their reasoning in the output ahead of the JSON.
func stripReasoning(content string) string {
	reasoningStart := strings.Index(content, "<think>")
	if reasoningStart != -1 {
		reasoningEnd := strings.Index(content, "</think>")
		if reasoningEnd != -1 {
			content = content[:reasoningStart] + content[reasoningEnd+len("</think>"):]
		}
	}
	return strings.TrimSpace(content)
}

// stripCodeFences unwraps a response packaged as a markdown code block.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
