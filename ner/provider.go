package ner

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Entity is a single named-entity span over a piece of text. Start and End
// are byte offsets into the analyzed text, End exclusive.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Provider defines the interface for named-entity recognition engines
type Provider interface {
	// ExtractEntities analyzes a single line of text and returns every
	// entity span the backend recognizes.
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)

	// PersonLabels returns the labels this backend assigns to person
	// names. Matching against them is case-insensitive.
	PersonLabels() []string
}

// Config holds the NER provider configuration
type Config struct {
	// Provider type ("spacy", "indic" or "llm")
	Provider string

	// spaCy span-service settings
	SpacyURL string

	// IndicNER inference settings (HuggingFace-style endpoint)
	IndicURL   string
	IndicToken string

	// LLM settings
	LLMProvider string
	LLMModel    string
	LLMPrompt   string

	// Rate limiting and retries for the LLM backend
	RequestsPerMinute float64
	MaxRetries        int
}

// NewProvider creates a new NER provider based on configuration
func NewProvider(config Config) (Provider, error) {
	log.Info("Initializing NER provider: ", config.Provider)

	switch config.Provider {
	case "spacy":
		if config.SpacyURL == "" {
			return nil, fmt.Errorf("missing required spaCy configuration (SPACY_URL)")
		}
		log.WithField("url", config.SpacyURL).Info("Using spaCy provider")
		return newSpacyProvider(config)

	case "indic":
		if config.IndicURL == "" {
			return nil, fmt.Errorf("missing required IndicNER configuration (INDIC_NER_URL)")
		}
		log.WithField("url", config.IndicURL).Info("Using IndicNER provider")
		return newIndicProvider(config)

	case "llm":
		if config.LLMProvider == "" || config.LLMModel == "" {
			return nil, fmt.Errorf("missing required LLM configuration")
		}
		log.WithFields(logrus.Fields{
			"provider": config.LLMProvider,
			"model":    config.LLMModel,
		}).Info("Using LLM NER provider")
		return newLLMProvider(config)

	default:
		return nil, fmt.Errorf("unsupported NER provider: %s", config.Provider)
	}
}

// SetLogLevel sets the logging level for the NER package
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
