package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
)

// TesseractProvider implements word-level OCR using a local Tesseract
// installation via gosseract.
type TesseractProvider struct {
	languages []string
	dataPath  string

	// clientFactory allows tests to substitute client construction.
	clientFactory func() *gosseract.Client
}

func newTesseractProvider(config Config) (*TesseractProvider, error) {
	languages := config.TesseractLanguages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	return &TesseractProvider{
		languages:     languages,
		dataPath:      config.TesseractDataPath,
		clientFactory: gosseract.NewClient,
	}, nil
}

// RecognizeWords runs Tesseract over the image and returns one Word per
// recognized token. A fresh client is created per call; gosseract clients
// are not safe for concurrent use and pages are processed in parallel.
func (p *TesseractProvider) RecognizeWords(ctx context.Context, imageContent []byte) ([]Word, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	logger := log.WithFields(logrus.Fields{
		"provider":  "tesseract",
		"languages": p.languages,
	})
	logger.Debug("Starting Tesseract processing")

	client := p.clientFactory()
	defer client.Close()

	if p.dataPath != "" {
		if err := client.SetTessdataPrefix(p.dataPath); err != nil {
			return nil, fmt.Errorf("error setting tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(p.languages...); err != nil {
		return nil, fmt.Errorf("error setting languages: %w", err)
	}
	// Single uniform block of text suits scanned identity documents better
	// than full automatic page segmentation.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return nil, fmt.Errorf("error setting page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(imageContent); err != nil {
		return nil, fmt.Errorf("error setting image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		logger.WithError(err).Error("Tesseract recognition failed")
		return nil, fmt.Errorf("error recognizing words: %w", err)
	}

	words := wordsFromBoxes(boxes)
	logger.WithField("word_count", len(words)).Debug("Tesseract processing complete")
	return words, nil
}

// wordsFromBoxes converts gosseract's verbose TSV-style rows into Words.
func wordsFromBoxes(boxes []gosseract.BoundingBox) []Word {
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{
			Text:       b.Word,
			Left:       b.Box.Min.X,
			Top:        b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
			Block:      b.BlockNum,
			Paragraph:  b.ParNum,
			Line:       b.LineNum,
			Confidence: b.Confidence,
		})
	}
	return words
}
