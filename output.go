package main

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"codeberg.org/go-pdf/fpdf"
)

// assembleOutput reassembles redacted pages into the response document.
// A single page from a non-PDF upload round-trips as PNG; everything
// else becomes a PDF with each page sized to its raster.
func assembleOutput(pages []image.Image, filename string, pdfInput bool) ([]byte, string, error) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if len(pages) == 1 && !pdfInput {
		data, err := encodePNG(pages[0])
		if err != nil {
			return nil, "", fmt.Errorf("error encoding redacted page: %w", err)
		}
		return data, "redacted_" + stem + ".png", nil
	}

	data, err := buildPDF(pages)
	if err != nil {
		return nil, "", err
	}
	return data, "redacted_" + stem + ".pdf", nil
}

// buildPDF lays each raster onto its own PDF page. Page dimensions are
// taken from the raster in points, so pixel coordinates and page
// coordinates stay 1:1.
func buildPDF(pages []image.Image) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")

	for i, page := range pages {
		data, err := encodePNG(page)
		if err != nil {
			return nil, fmt.Errorf("error encoding page %d: %w", i, err)
		}

		w := float64(page.Bounds().Dx())
		h := float64(page.Bounds().Dy())
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		imageName := fmt.Sprintf("page%d", i)
		opts := fpdf.ImageOptions{ReadDpi: false, ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(data))
		pdf.ImageOptions(imageName, 0, 0, w, h, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating PDF: %w", err)
	}
	return buf.Bytes(), nil
}
