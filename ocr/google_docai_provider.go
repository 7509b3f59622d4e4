package ocr

import (
	"context"
	"fmt"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GoogleDocAIProvider implements word-level OCR using Google Document AI
type GoogleDocAIProvider struct {
	projectID   string
	location    string
	processorID string
	client      *documentai.DocumentProcessorClient
}

func newGoogleDocAIProvider(config Config) (*GoogleDocAIProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"location":     config.GoogleLocation,
		"processor_id": config.GoogleProcessorID,
	})
	logger.Info("Creating new Google Document AI provider")

	ctx := context.Background()
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.GoogleLocation)

	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		logger.WithError(err).Error("Failed to create Document AI client")
		return nil, fmt.Errorf("error creating Document AI client: %w", err)
	}

	provider := &GoogleDocAIProvider{
		projectID:   config.GoogleProjectID,
		location:    config.GoogleLocation,
		processorID: config.GoogleProcessorID,
		client:      client,
	}

	logger.Info("Successfully initialized Google Document AI provider")
	return provider, nil
}

func (p *GoogleDocAIProvider) RecognizeWords(ctx context.Context, imageContent []byte) ([]Word, error) {
	logger := log.WithFields(logrus.Fields{
		"project_id":   p.projectID,
		"location":     p.location,
		"processor_id": p.processorID,
	})
	logger.Debug("Starting Document AI processing")

	mtype := mimetype.Detect(imageContent)
	logger.WithField("mime_type", mtype.String()).Debug("Detected file type")

	if !isImageMIMEType(mtype.String()) {
		logger.WithField("mime_type", mtype.String()).Error("Unsupported file type")
		return nil, fmt.Errorf("unsupported file type: %s", mtype.String())
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", p.projectID, p.location, p.processorID)

	req := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  imageContent,
				MimeType: mtype.String(),
			},
		},
	}

	logger.Debug("Sending request to Document AI")
	resp, err := p.client.ProcessDocument(ctx, req)
	if err != nil {
		logger.WithError(err).Error("Failed to process document")
		return nil, fmt.Errorf("error processing document: %w", err)
	}

	if resp == nil || resp.Document == nil {
		logger.Error("Received nil response or document from Document AI")
		return nil, fmt.Errorf("received nil response or document from Document AI")
	}

	if resp.Document.Error != nil {
		logger.WithField("error", resp.Document.Error.Message).Error("Document processing error")
		return nil, fmt.Errorf("document processing error: %s", resp.Document.Error.Message)
	}

	words := wordsFromDocument(resp.Document)
	logger.WithField("word_count", len(words)).Info("Successfully processed document")
	return words, nil
}

// isImageMIMEType checks if the given MIME type is a supported image type
func isImageMIMEType(mimeType string) bool {
	supportedTypes := map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/tiff": true,
		"image/bmp":  true,
	}
	return supportedTypes[mimeType]
}

// wordsFromDocument flattens a Document AI response into Words. Tokens are
// assigned block/paragraph/line indices by text-anchor containment, the same
// ordering Tesseract reports natively.
func wordsFromDocument(doc *documentaipb.Document) []Word {
	var words []Word
	for _, page := range doc.GetPages() {
		for _, token := range page.GetTokens() {
			text := strings.TrimSpace(textFromLayout(token.GetLayout(), doc.GetText()))

			left, top, right, bottom, ok := pixelBox(token.GetLayout(), page.GetDimension())
			if !ok {
				continue
			}

			word := Word{
				Text:      text,
				Left:      left,
				Top:       top,
				Width:     right - left,
				Height:    bottom - top,
				Block:     indexOfParent(token.GetLayout(), blockLayouts(page)),
				Paragraph: indexOfParent(token.GetLayout(), paragraphLayouts(page)),
				Line:      indexOfParent(token.GetLayout(), lineLayouts(page)),
			}
			if token.GetLayout() != nil {
				word.Confidence = float64(token.GetLayout().GetConfidence() * 100)
			}
			words = append(words, word)
		}
	}
	return words
}

// textFromLayout extracts the text a layout's anchor covers.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.GetTextAnchor() == nil {
		return ""
	}
	var sb strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start, end := seg.GetStartIndex(), seg.GetEndIndex()
		if start < 0 || end > int64(len(fullText)) || start > end {
			continue
		}
		sb.WriteString(fullText[start:end])
	}
	return sb.String()
}

// pixelBox converts a layout's normalized vertices to pixel coordinates.
func pixelBox(layout *documentaipb.Document_Page_Layout, dimension *documentaipb.Document_Page_Dimension) (left, top, right, bottom int, ok bool) {
	if layout == nil || layout.GetBoundingPoly() == nil || dimension == nil {
		return 0, 0, 0, 0, false
	}
	vertices := layout.GetBoundingPoly().GetNormalizedVertices()
	if len(vertices) < 4 {
		return 0, 0, 0, 0, false
	}
	left = int(vertices[0].GetX()*dimension.GetWidth() + 0.5)
	top = int(vertices[0].GetY()*dimension.GetHeight() + 0.5)
	right = int(vertices[2].GetX()*dimension.GetWidth() + 0.5)
	bottom = int(vertices[2].GetY()*dimension.GetHeight() + 0.5)
	return left, top, right, bottom, true
}

func blockLayouts(page *documentaipb.Document_Page) []*documentaipb.Document_Page_Layout {
	layouts := make([]*documentaipb.Document_Page_Layout, len(page.GetBlocks()))
	for i, b := range page.GetBlocks() {
		layouts[i] = b.GetLayout()
	}
	return layouts
}

func paragraphLayouts(page *documentaipb.Document_Page) []*documentaipb.Document_Page_Layout {
	layouts := make([]*documentaipb.Document_Page_Layout, len(page.GetParagraphs()))
	for i, p := range page.GetParagraphs() {
		layouts[i] = p.GetLayout()
	}
	return layouts
}

func lineLayouts(page *documentaipb.Document_Page) []*documentaipb.Document_Page_Layout {
	layouts := make([]*documentaipb.Document_Page_Layout, len(page.GetLines()))
	for i, l := range page.GetLines() {
		layouts[i] = l.GetLayout()
	}
	return layouts
}

// indexOfParent returns the index of the first layout whose text anchor
// contains the element's anchor, or 0 when none does.
func indexOfParent(element *documentaipb.Document_Page_Layout, parents []*documentaipb.Document_Page_Layout) int {
	for i, parent := range parents {
		if isElementInParent(element, parent) {
			return i
		}
	}
	return 0
}

func isElementInParent(element, parent *documentaipb.Document_Page_Layout) bool {
	if element == nil || parent == nil ||
		element.GetTextAnchor() == nil || parent.GetTextAnchor() == nil ||
		len(element.GetTextAnchor().GetTextSegments()) == 0 || len(parent.GetTextAnchor().GetTextSegments()) == 0 {
		return false
	}

	elementStart := element.GetTextAnchor().GetTextSegments()[0].GetStartIndex()
	elementEnd := element.GetTextAnchor().GetTextSegments()[0].GetEndIndex()
	parentStart := parent.GetTextAnchor().GetTextSegments()[0].GetStartIndex()
	parentEnd := parent.GetTextAnchor().GetTextSegments()[0].GetEndIndex()

	return elementStart >= parentStart && elementEnd <= parentEnd
}

// Close releases resources used by the provider
func (p *GoogleDocAIProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
