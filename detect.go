package main

import (
	"context"
	"fmt"
	"image"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Sumit2809/PII-Final/ocr"
)

// pageDetection holds one page's detection output. The raw tokens are
// kept so the optional hOCR dump can be built after the fan-out.
type pageDetection struct {
	words   []ocr.Word
	boxes   []DetectedBox
	summary Summary
}

// isPersonLabel reports whether an entity label counts as a person
// designation for the active NER backend. Comparison is case-insensitive
// since backends disagree on casing.
func isPersonLabel(label string, personLabels []string) bool {
	for _, candidate := range personLabels {
		if strings.EqualFold(label, candidate) {
			return true
		}
	}
	return false
}

// localizeEntities runs NER over each assembled line and converts every
// person span into a pixel box by uniting the boxes of the tokens the
// span overlaps.
func (app *App) localizeEntities(ctx context.Context, lines []*lineGroup, page int) ([]DetectedBox, Summary, error) {
	var boxes []DetectedBox
	summary := Summary{}
	personLabels := app.NER.PersonLabels()

	for _, line := range lines {
		if strings.TrimSpace(line.text) == "" {
			continue
		}

		entities, err := app.NER.ExtractEntities(ctx, line.text)
		if err != nil {
			return nil, nil, &CollaboratorError{Collaborator: "ner", Page: page, Cause: err}
		}

		for _, entity := range entities {
			if !isPersonLabel(entity.Label, personLabels) {
				continue
			}

			left, top, right, bottom := 0, 0, 0, 0
			found := false
			for i, off := range line.offsets {
				if off.end <= entity.Start || off.start >= entity.End {
					continue
				}
				w := line.words[i]
				if !found {
					left, top = w.Left, w.Top
					right, bottom = w.Left+w.Width, w.Top+w.Height
					found = true
					continue
				}
				left = min(left, w.Left)
				top = min(top, w.Top)
				right = max(right, w.Left+w.Width)
				bottom = max(bottom, w.Top+w.Height)
			}
			if !found {
				// A span that overlaps no token cannot be located on
				// the page, and a box with made-up geometry is worse
				// than none.
				log.Debugf("Skipping unlocatable entity %q on page %d", entity.Text, page)
				continue
			}

			boxes = append(boxes, DetectedBox{
				Label:  LabelName,
				Text:   entity.Text,
				Page:   page,
				Left:   left,
				Top:    top,
				Width:  right - left,
				Height: bottom - top,
			})
			summary[LabelName]++
		}
	}
	return boxes, summary, nil
}

// detectPage runs the full detection pass over a single page raster:
// OCR on a preprocessed copy, pattern matching over tokens, then NER
// over assembled lines. Box coordinates always refer to the original
// raster since preprocessing never resizes.
func (app *App) detectPage(ctx context.Context, img image.Image, page int) (pageDetection, error) {
	encoded, err := encodePNG(preprocessForOCR(img))
	if err != nil {
		return pageDetection{}, fmt.Errorf("error encoding page %d for OCR: %w", page, err)
	}

	words, err := app.OCR.RecognizeWords(ctx, encoded)
	if err != nil {
		return pageDetection{}, &CollaboratorError{Collaborator: "ocr", Page: page, Cause: err}
	}
	log.Debugf("Page %d: OCR returned %d tokens", page, len(words))

	boxes, summary := detectPatterns(words, page)

	entityBoxes, entitySummary, err := app.localizeEntities(ctx, assembleLines(words), page)
	if err != nil {
		return pageDetection{}, err
	}
	boxes = append(boxes, entityBoxes...)
	summary.accumulate(entitySummary)

	return pageDetection{words: words, boxes: boxes, summary: summary}, nil
}

// detectDocument rasterizes the upload and runs detection on every page.
// Pages are processed concurrently; results are stitched back in page
// order so output never depends on scheduling.
func (app *App) detectDocument(ctx context.Context, fileBytes []byte, filename string) ([]DetectedBox, Summary, error) {
	pages, _, err := renderPages(fileBytes, filename)
	if err != nil {
		return nil, nil, err
	}

	results := make([]pageDetection, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(app.PageWorkers)
	for idx, pageImage := range pages {
		g.Go(func() error {
			pd, err := app.detectPage(gctx, pageImage, idx)
			if err != nil {
				return err
			}
			results[idx] = pd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	app.maybeDumpHOCR(pages, results)

	allBoxes := []DetectedBox{}
	combined := Summary{}
	for _, r := range results {
		allBoxes = append(allBoxes, r.boxes...)
		combined.accumulate(r.summary)
	}
	return allBoxes, combined, nil
}

// entitiesFromBoxes converts internal detection records into the API
// representation.
func entitiesFromBoxes(boxes []DetectedBox) []DetectedEntity {
	entities := make([]DetectedEntity, 0, len(boxes))
	for _, b := range boxes {
		entities = append(entities, DetectedEntity{
			Label: b.Label,
			Text:  b.Text,
			Page:  b.Page,
			Box:   b.Box(),
		})
	}
	return entities
}
