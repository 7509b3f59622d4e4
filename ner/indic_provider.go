package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// IndicProvider implements NER against a HuggingFace-style token
// classification endpoint hosting an IndicNER model. Works with both the
// hosted inference API and a local text-generation-inference deployment.
type IndicProvider struct {
	baseURL    string
	token      string
	httpClient *retryablehttp.Client
}

func newIndicProvider(config Config) (*IndicProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"url": config.IndicURL,
	})
	logger.Info("Creating new IndicNER provider")

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Logger = logger

	provider := &IndicProvider{
		baseURL:    config.IndicURL,
		token:      config.IndicToken,
		httpClient: client,
	}

	logger.Info("Successfully initialized IndicNER provider")
	return provider, nil
}

// indicRequest is the HuggingFace inference request body
type indicRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// indicEntity mirrors one entry of the token classification response
type indicEntity struct {
	EntityGroup string  `json:"entity_group"`
	Score       float64 `json:"score"`
	Word        string  `json:"word"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

func (p *IndicProvider) ExtractEntities(ctx context.Context, text string) ([]Entity, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": "indic",
		"url":      p.baseURL,
	})
	logger.Debug("Starting IndicNER entity extraction")

	body, err := json.Marshal(indicRequest{
		Inputs: text,
		Parameters: map[string]interface{}{
			"aggregation_strategy": "simple",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling IndicNER request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Error("Failed to create HTTP request")
		return nil, fmt.Errorf("error creating IndicNER request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("Failed to send request to IndicNER endpoint")
		return nil, fmt.Errorf("error sending request to IndicNER endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Error("Failed to read IndicNER response body")
		return nil, fmt.Errorf("error reading IndicNER response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(respBodyBytes),
		}).Error("Received non-OK status from IndicNER endpoint")
		return nil, fmt.Errorf("IndicNER endpoint returned status %d: %s", resp.StatusCode, string(respBodyBytes))
	}

	var raw []indicEntity
	if err := json.Unmarshal(respBodyBytes, &raw); err != nil {
		logger.WithError(err).WithField("response", string(respBodyBytes)).Error("Failed to parse IndicNER JSON response")
		return nil, fmt.Errorf("error parsing IndicNER JSON response: %w", err)
	}

	entities := make([]Entity, 0, len(raw))
	for _, e := range raw {
		entities = append(entities, Entity{
			Text:  e.Word,
			Label: e.EntityGroup,
			Start: e.Start,
			End:   e.End,
		})
	}

	logger.WithField("entity_count", len(entities)).Debug("IndicNER extraction complete")
	return entities, nil
}

// PersonLabels returns the person designations of IndicNER models.
func (p *IndicProvider) PersonLabels() []string {
	return []string{"PER"}
}
