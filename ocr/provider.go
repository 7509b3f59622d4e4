package ocr

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Word is a single recognized token on a page image. Geometry is in pixels
// of the submitted image. Block, Paragraph and Line carry the engine's
// layout grouping; words sharing all three belong to the same visual line.
type Word struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int

	Block     int
	Paragraph int
	Line      int

	// Confidence in percent (0-100), if the engine reports one.
	Confidence float64
}

// Provider defines the interface for word-level OCR engines
type Provider interface {
	// RecognizeWords runs OCR on a single encoded page image and returns
	// every recognized word with its geometry and layout grouping.
	RecognizeWords(ctx context.Context, imageContent []byte) ([]Word, error)
}

// Config holds the OCR provider configuration
type Config struct {
	// Provider type ("tesseract" or "google_docai")
	Provider string

	// Tesseract settings
	TesseractLanguages []string // language codes, e.g. ["eng", "hin"]
	TesseractDataPath  string   // optional tessdata directory override

	// Google Document AI settings
	GoogleProjectID   string
	GoogleLocation    string
	GoogleProcessorID string
}

// NewProvider creates a new OCR provider based on configuration
func NewProvider(config Config) (Provider, error) {
	log.Info("Initializing OCR provider: ", config.Provider)

	switch config.Provider {
	case "tesseract":
		log.WithFields(logrus.Fields{
			"languages": config.TesseractLanguages,
			"data_path": config.TesseractDataPath,
		}).Info("Using Tesseract provider")
		return newTesseractProvider(config)

	case "google_docai":
		if config.GoogleProjectID == "" || config.GoogleLocation == "" || config.GoogleProcessorID == "" {
			return nil, fmt.Errorf("missing required Google Document AI configuration")
		}
		log.WithFields(logrus.Fields{
			"location":     config.GoogleLocation,
			"processor_id": config.GoogleProcessorID,
		}).Info("Using Google Document AI provider")
		return newGoogleDocAIProvider(config)

	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", config.Provider)
	}
}

// SetLogLevel sets the logging level for the OCR package
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
