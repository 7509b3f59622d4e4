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

// SpacyProvider implements NER against a spaCy span service: a thin HTTP
// wrapper around a loaded spaCy pipeline that returns entity spans for a
// posted piece of text.
type SpacyProvider struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

func newSpacyProvider(config Config) (*SpacyProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"url": config.SpacyURL,
	})
	logger.Info("Creating new spaCy provider")

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Logger = logger

	provider := &SpacyProvider{
		baseURL:    config.SpacyURL,
		httpClient: client,
	}

	logger.Info("Successfully initialized spaCy provider")
	return provider, nil
}

// spacyEntRequest is the request body of the span service's /ent endpoint
type spacyEntRequest struct {
	Text string `json:"text"`
}

// spacyEntResponse mirrors the span service's JSON response
type spacyEntResponse struct {
	Entities []Entity `json:"entities"`
}

func (p *SpacyProvider) ExtractEntities(ctx context.Context, text string) ([]Entity, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": "spacy",
		"url":      p.baseURL,
	})
	logger.Debug("Starting spaCy entity extraction")

	body, err := json.Marshal(spacyEntRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("error marshaling spaCy request: %w", err)
	}

	requestURL := p.baseURL + "/ent"
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", requestURL, bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Error("Failed to create HTTP request")
		return nil, fmt.Errorf("error creating spaCy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Error("Failed to send request to spaCy service")
		return nil, fmt.Errorf("error sending request to spaCy service: %w", err)
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Error("Failed to read spaCy response body")
		return nil, fmt.Errorf("error reading spaCy response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(respBodyBytes),
		}).Error("Received non-OK status from spaCy service")
		return nil, fmt.Errorf("spaCy service returned status %d: %s", resp.StatusCode, string(respBodyBytes))
	}

	var entResp spacyEntResponse
	if err := json.Unmarshal(respBodyBytes, &entResp); err != nil {
		logger.WithError(err).WithField("response", string(respBodyBytes)).Error("Failed to parse spaCy JSON response")
		return nil, fmt.Errorf("error parsing spaCy JSON response: %w", err)
	}

	logger.WithField("entity_count", len(entResp.Entities)).Debug("spaCy extraction complete")
	return entResp.Entities, nil
}

// PersonLabels returns the person designations of spaCy pipelines.
func (p *SpacyProvider) PersonLabels() []string {
	return []string{"PERSON"}
}
