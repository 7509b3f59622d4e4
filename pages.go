package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	_ "image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

// renderPages turns uploaded bytes into ordered page rasters. PDFs are
// rendered page by page through MuPDF; anything else must decode as a
// single image. The bool result reports whether the upload was treated
// as a PDF, which decides the output format later.
func renderPages(fileBytes []byte, filename string) ([]image.Image, bool, error) {
	if isPDF(fileBytes, filename) {
		pages, err := renderPDFPages(fileBytes, filename)
		return pages, true, err
	}

	img, format, err := image.Decode(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, false, &InputDecodingError{Filename: filename, Cause: err}
	}
	log.Debugf("Decoded %q as single %s image", filename, format)
	return []image.Image{img}, false, nil
}

// isPDF routes on the filename extension first, then sniffs the content
// so a mislabeled upload still renders correctly.
func isPDF(fileBytes []byte, filename string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return true
	}
	return mimetype.Detect(fileBytes).Is("application/pdf")
}

// renderPDFPages validates the PDF and renders every page to a raster.
// MuPDF is not thread-safe, so rendering is serialized even though the
// surrounding work fans out per page.
func renderPDFPages(fileBytes []byte, filename string) ([]image.Image, error) {
	pageCount, err := api.PageCount(bytes.NewReader(fileBytes), nil)
	if err != nil {
		return nil, &InputDecodingError{Filename: filename, Cause: err}
	}
	log.Debugf("PDF %q has %d pages", filename, pageCount)

	doc, err := fitz.NewFromMemory(fileBytes)
	if err != nil {
		return nil, &InputDecodingError{Filename: filename, Cause: err}
	}
	defer doc.Close()

	totalPages := doc.NumPage()
	pages := make([]image.Image, totalPages)

	var mu sync.Mutex
	var g errgroup.Group
	for n := 0; n < totalPages; n++ {
		g.Go(func() error {
			mu.Lock()
			img, err := doc.Image(n)
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("error rendering PDF page %d: %w", n, err)
			}
			pages[n] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &InputDecodingError{Filename: filename, Cause: err}
	}
	return pages, nil
}

// preprocessForOCR applies the cleanup pass the OCR engines prefer:
// grayscale, contrast stretch, mild sharpen. None of the steps resize,
// so token geometry maps straight back onto the original raster.
func preprocessForOCR(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	out = autocontrast(out)
	return imaging.Sharpen(out, 1.5)
}

// autocontrast linearly stretches the tonal range so the darkest
// occupied histogram bin maps to 0 and the brightest to 255.
func autocontrast(img image.Image) *image.NRGBA {
	hist := imaging.Histogram(img)

	lo := 0
	for lo < 255 && hist[lo] == 0 {
		lo++
	}
	hi := 255
	for hi > 0 && hist[hi] == 0 {
		hi--
	}
	if lo >= hi {
		// Flat image, nothing to stretch.
		return imaging.Clone(img)
	}

	scale := 255.0 / float64(hi-lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: stretchChannel(c.R, lo, scale),
			G: stretchChannel(c.G, lo, scale),
			B: stretchChannel(c.B, lo, scale),
			A: c.A,
		}
	})
}

func stretchChannel(v uint8, lo int, scale float64) uint8 {
	stretched := float64(int(v)-lo) * scale
	if stretched < 0 {
		return 0
	}
	if stretched > 255 {
		return 255
	}
	return uint8(stretched + 0.5)
}

// encodePNG serializes a raster for OCR handoff or PNG output.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
