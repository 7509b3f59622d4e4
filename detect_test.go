package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumit2809/PII-Final/ner"
	"github.com/Sumit2809/PII-Final/ocr"
)

// fakeOCR returns a canned token list for every page.
type fakeOCR struct {
	words []ocr.Word
	err   error
}

func (f *fakeOCR) RecognizeWords(ctx context.Context, imageContent []byte) ([]ocr.Word, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.words, nil
}

// fakeNER maps line text to canned entities.
type fakeNER struct {
	entities map[string][]ner.Entity
	err      error
	labels   []string
}

func (f *fakeNER) ExtractEntities(ctx context.Context, text string) ([]ner.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entities[text], nil
}

func (f *fakeNER) PersonLabels() []string {
	if f.labels != nil {
		return f.labels
	}
	return []string{"PERSON"}
}

func newTestApp(ocrBackend ocr.Provider, nerBackend ner.Provider) *App {
	return &App{
		OCR:         ocrBackend,
		NER:         nerBackend,
		PageWorkers: 2,
		MaxFileSize: 50 * 1024 * 1024,
	}
}

func testPageImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestLocalizeEntities(t *testing.T) {
	words := []ocr.Word{
		{Text: "Name:", Left: 10, Top: 10, Width: 50, Height: 20, Block: 1, Paragraph: 1, Line: 1},
		{Text: "Ravi", Left: 70, Top: 12, Width: 40, Height: 18, Block: 1, Paragraph: 1, Line: 1},
		{Text: "Kumar", Left: 120, Top: 10, Width: 60, Height: 20, Block: 1, Paragraph: 1, Line: 1},
	}
	nerBackend := &fakeNER{entities: map[string][]ner.Entity{
		"Name: Ravi Kumar": {
			{Text: "Ravi Kumar", Label: "PERSON", Start: 6, End: 16},
			{Text: "Name:", Label: "MISC", Start: 0, End: 5},
		},
	}}
	app := newTestApp(&fakeOCR{}, nerBackend)

	boxes, summary, err := app.localizeEntities(context.Background(), assembleLines(words), 0)
	require.NoError(t, err)

	// Only the PERSON span becomes a box, covering the union of the two
	// overlapped tokens and not the "Name:" token before it.
	require.Len(t, boxes, 1)
	assert.Equal(t, DetectedBox{
		Label: LabelName, Text: "Ravi Kumar", Page: 0,
		Left: 70, Top: 10, Width: 110, Height: 20,
	}, boxes[0])
	assert.Equal(t, Summary{LabelName: 1}, summary)
}

func TestLocalizeEntitiesBoundaryExclusive(t *testing.T) {
	words := []ocr.Word{
		{Text: "Ravi", Left: 0, Top: 0, Width: 40, Height: 10, Line: 1},
		{Text: "Kumar", Left: 50, Top: 0, Width: 50, Height: 10, Line: 1},
	}
	// Span [0,4) ends exactly where the second token starts at offset 5,
	// so only the first token is covered.
	nerBackend := &fakeNER{entities: map[string][]ner.Entity{
		"Ravi Kumar": {{Text: "Ravi", Label: "PERSON", Start: 0, End: 4}},
	}}
	app := newTestApp(&fakeOCR{}, nerBackend)

	boxes, _, err := app.localizeEntities(context.Background(), assembleLines(words), 0)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, Box{Left: 0, Top: 0, Width: 40, Height: 10}, boxes[0].Box())
}

func TestLocalizeEntitiesPersonLabelsPerBackend(t *testing.T) {
	words := []ocr.Word{{Text: "Ravi", Left: 0, Top: 0, Width: 40, Height: 10, Line: 1}}
	entities := map[string][]ner.Entity{
		"Ravi": {{Text: "Ravi", Label: "per", Start: 0, End: 4}},
	}

	// With the default PERSON label the lowercase "per" tag is ignored.
	app := newTestApp(&fakeOCR{}, &fakeNER{entities: entities})
	boxes, _, err := app.localizeEntities(context.Background(), assembleLines(words), 0)
	require.NoError(t, err)
	assert.Empty(t, boxes)

	// A backend announcing PER matches it case-insensitively.
	app = newTestApp(&fakeOCR{}, &fakeNER{entities: entities, labels: []string{"PER"}})
	boxes, _, err = app.localizeEntities(context.Background(), assembleLines(words), 0)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, LabelName, boxes[0].Label)
}

func TestLocalizeEntitiesUnlocatableSpanSkipped(t *testing.T) {
	words := []ocr.Word{{Text: "Ravi", Left: 0, Top: 0, Width: 40, Height: 10, Line: 1}}
	nerBackend := &fakeNER{entities: map[string][]ner.Entity{
		"Ravi": {{Text: "Sharma", Label: "PERSON", Start: 50, End: 56}},
	}}
	app := newTestApp(&fakeOCR{}, nerBackend)

	boxes, summary, err := app.localizeEntities(context.Background(), assembleLines(words), 0)
	require.NoError(t, err)
	assert.Empty(t, boxes)
	assert.Empty(t, summary)
}

func TestDetectPage(t *testing.T) {
	words := []ocr.Word{
		{Text: "Ravi", Left: 10, Top: 10, Width: 40, Height: 20, Line: 1},
		{Text: "9876543210", Left: 10, Top: 40, Width: 100, Height: 20, Line: 2},
	}
	nerBackend := &fakeNER{entities: map[string][]ner.Entity{
		"Ravi": {{Text: "Ravi", Label: "PERSON", Start: 0, End: 4}},
	}}
	app := newTestApp(&fakeOCR{words: words}, nerBackend)

	pd, err := app.detectPage(context.Background(), testPageImage(200, 100), 0)
	require.NoError(t, err)

	require.Len(t, pd.boxes, 2)
	assert.Equal(t, LabelPhone, pd.boxes[0].Label)
	assert.Equal(t, LabelName, pd.boxes[1].Label)
	assert.Equal(t, Summary{LabelPhone: 1, LabelName: 1}, pd.summary)
	assert.Equal(t, words, pd.words)
}

func TestDetectPageDoubleCount(t *testing.T) {
	// A token that is both a pattern match and part of a person span is
	// reported twice, once per mechanism.
	words := []ocr.Word{{Text: "9876543210", Left: 10, Top: 10, Width: 100, Height: 20, Line: 1}}
	nerBackend := &fakeNER{entities: map[string][]ner.Entity{
		"9876543210": {{Text: "9876543210", Label: "PERSON", Start: 0, End: 10}},
	}}
	app := newTestApp(&fakeOCR{words: words}, nerBackend)

	pd, err := app.detectPage(context.Background(), testPageImage(200, 100), 0)
	require.NoError(t, err)

	require.Len(t, pd.boxes, 2)
	assert.Equal(t, Summary{LabelPhone: 1, LabelName: 1}, pd.summary)
}

func TestDetectPageOCRFailure(t *testing.T) {
	app := newTestApp(&fakeOCR{err: errors.New("tesseract not installed")}, &fakeNER{})

	_, err := app.detectPage(context.Background(), testPageImage(10, 10), 3)
	require.Error(t, err)

	var collabErr *CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, "ocr", collabErr.Collaborator)
	assert.Equal(t, 3, collabErr.Page)
}

func TestDetectPageNERFailure(t *testing.T) {
	words := []ocr.Word{{Text: "Ravi", Left: 0, Top: 0, Width: 40, Height: 10, Line: 1}}
	app := newTestApp(&fakeOCR{words: words}, &fakeNER{err: errors.New("connection refused")})

	_, err := app.detectPage(context.Background(), testPageImage(10, 10), 0)
	require.Error(t, err)

	var collabErr *CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, "ner", collabErr.Collaborator)
}

func TestDetectDocumentSingleImage(t *testing.T) {
	words := []ocr.Word{{Text: "ABCDE1234F", Left: 10, Top: 10, Width: 90, Height: 20, Line: 1}}
	app := newTestApp(&fakeOCR{words: words}, &fakeNER{})

	data, err := encodePNG(testPageImage(200, 100))
	require.NoError(t, err)

	boxes, summary, err := app.detectDocument(context.Background(), data, "pan_card.png")
	require.NoError(t, err)

	require.Len(t, boxes, 1)
	assert.Equal(t, 0, boxes[0].Page)
	assert.Equal(t, Summary{LabelPAN: 1}, summary)
}

func TestDetectDocumentUndecodableInput(t *testing.T) {
	app := newTestApp(&fakeOCR{}, &fakeNER{})

	_, _, err := app.detectDocument(context.Background(), []byte("not an image"), "junk.png")
	require.Error(t, err)

	var decodeErr *InputDecodingError
	assert.ErrorAs(t, err, &decodeErr)
	assert.True(t, isClientError(err))
}

func TestEntitiesFromBoxes(t *testing.T) {
	boxes := []DetectedBox{
		{Label: LabelPAN, Text: "ABCDE1234F", Page: 1, Left: 10, Top: 20, Width: 90, Height: 30},
	}

	entities := entitiesFromBoxes(boxes)
	require.Len(t, entities, 1)
	assert.Equal(t, DetectedEntity{
		Label: LabelPAN,
		Text:  "ABCDE1234F",
		Page:  1,
		Box:   Box{Left: 10, Top: 20, Width: 90, Height: 30},
	}, entities[0])

	assert.NotNil(t, entitiesFromBoxes(nil))
	assert.Empty(t, entitiesFromBoxes(nil))
}
