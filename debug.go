package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/gardar/ocrchestra/pkg/hocr"
	"github.com/google/uuid"

	"github.com/Sumit2809/PII-Final/ocr"
)

// maybeDumpHOCR writes the document's OCR tokens as an hOCR file when
// the debug dump is enabled. Failures are logged, never returned: a
// broken debug artifact must not fail the request that produced it.
func (app *App) maybeDumpHOCR(pages []image.Image, detections []pageDetection) {
	if !app.EnableHOCR {
		return
	}

	doc := &hocr.HOCR{
		Title: "OCR token dump",
		Pages: make([]hocr.Page, 0, len(pages)),
	}
	for i := range pages {
		doc.Pages = append(doc.Pages, buildHOCRPage(detections[i].words, pages[i].Bounds(), i+1))
	}

	html, err := hocr.GenerateHOCRDocument(doc)
	if err != nil {
		log.Errorf("Error generating hOCR dump: %v", err)
		return
	}

	if err := os.MkdirAll(app.HOCROutputPath, 0755); err != nil {
		log.Errorf("Error creating hOCR output directory: %v", err)
		return
	}
	path := filepath.Join(app.HOCROutputPath, uuid.New().String()+".hocr")
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		log.Errorf("Error writing hOCR dump: %v", err)
		return
	}
	log.Infof("Wrote hOCR dump to %s", path)
}

// buildHOCRPage converts one page's tokens into an hOCR page tree,
// grouped into the lines the OCR engine recognized.
func buildHOCRPage(words []ocr.Word, bounds image.Rectangle, pageNumber int) hocr.Page {
	page := hocr.Page{
		ID:         fmt.Sprintf("page_%d", pageNumber),
		PageNumber: pageNumber,
		BBox:       hocr.NewBoundingBox(0, 0, float64(bounds.Dx()), float64(bounds.Dy())),
	}

	for li, line := range assembleLines(words) {
		hline := hocr.Line{ID: fmt.Sprintf("line_%d_%d", pageNumber, li+1)}

		left, top, right, bottom := 0, 0, 0, 0
		for wi, w := range line.words {
			hline.Words = append(hline.Words, hocr.Word{
				ID:         fmt.Sprintf("word_%d_%d_%d", pageNumber, li+1, wi+1),
				Text:       w.Text,
				BBox:       hocr.NewBoundingBox(float64(w.Left), float64(w.Top), float64(w.Left+w.Width), float64(w.Top+w.Height)),
				Confidence: w.Confidence,
			})
			if wi == 0 {
				left, top = w.Left, w.Top
				right, bottom = w.Left+w.Width, w.Top+w.Height
				continue
			}
			left = min(left, w.Left)
			top = min(top, w.Top)
			right = max(right, w.Left+w.Width)
			bottom = max(bottom, w.Top+w.Height)
		}
		hline.BBox = hocr.NewBoundingBox(float64(left), float64(top), float64(right), float64(bottom))
		page.Lines = append(page.Lines, hline)
	}
	return page
}
