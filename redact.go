package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// blurSigma is the Gaussian blur strength applied in blur mode.
const blurSigma = 10.0

// partialRatios maps labels to the leading fraction of a box that
// partial redaction covers. Labels not listed here, NAME included, are
// always fully masked: a partly visible name defeats the point.
var partialRatios = map[string]float64{
	LabelAadhaar: 0.7,
	LabelPhone:   0.7,
	LabelPAN:     0.6,
	LabelEmail:   0.6,
}

// validateMode whitelists redaction modes and applies the default.
func validateMode(mode string) (string, error) {
	switch mode {
	case "":
		return ModeBlack, nil
	case ModeBlack, ModeBlur:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q (accepted: black, blur)", ErrUnsupportedMode, mode)
	}
}

// normalizeLabels uppercases the requested label set so matching is
// case-insensitive. Unknown labels stay in the set and simply match
// nothing.
func normalizeLabels(labels []string) map[string]bool {
	requested := make(map[string]bool, len(labels))
	for _, label := range labels {
		requested[strings.ToUpper(strings.TrimSpace(label))] = true
	}
	return requested
}

// filterBoxes keeps detections whose label is in the requested set.
func filterBoxes(boxes []DetectedBox, requested map[string]bool) []DetectedBox {
	var kept []DetectedBox
	for _, b := range boxes {
		if requested[strings.ToUpper(b.Label)] {
			kept = append(kept, b)
		}
	}
	return kept
}

// partialRatioFor returns the fraction of a box's width that partial
// redaction covers for the given label.
func partialRatioFor(label string) float64 {
	if ratio, ok := partialRatios[label]; ok {
		return ratio
	}
	return 1.0
}

// maskRegion computes the pixel rectangle a redaction covers, clamped to
// the page bounds. Partial redaction shrinks the width only; the full
// height is always covered.
func maskRegion(box DetectedBox, partial bool, bounds image.Rectangle) image.Rectangle {
	width := box.Width
	if partial {
		width = int(float64(box.Width) * partialRatioFor(box.Label))
	}
	return image.Rect(box.Left, box.Top, box.Left+width, box.Top+box.Height).Intersect(bounds)
}

// redactPage applies the requested masks to a copy of the page raster.
// The input image is never modified: every box was computed against the
// untouched original, so masking order cannot change what gets covered.
func redactPage(img image.Image, boxes []DetectedBox, mode string, partial bool) (image.Image, error) {
	out := imaging.Clone(img)

	for _, box := range boxes {
		region := maskRegion(box, partial, out.Bounds())
		if region.Empty() {
			continue
		}

		switch mode {
		case ModeBlack:
			draw.Draw(out, region, image.NewUniform(color.Black), image.Point{}, draw.Src)
		case ModeBlur:
			blurred := imaging.Blur(imaging.Crop(out, region), blurSigma)
			draw.Draw(out, region, blurred, image.Point{}, draw.Src)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
		}
	}
	return out, nil
}

// redactDocument runs detection over the upload and re-renders it with
// the requested labels masked. Pages are processed concurrently and
// reassembled in order.
func (app *App) redactDocument(ctx context.Context, fileBytes []byte, filename string, labels []string, mode string, partial bool) ([]byte, string, error) {
	mode, err := validateMode(mode)
	if err != nil {
		return nil, "", err
	}
	requested := normalizeLabels(labels)

	pages, pdfInput, err := renderPages(fileBytes, filename)
	if err != nil {
		return nil, "", err
	}

	redacted := make([]image.Image, len(pages))
	detections := make([]pageDetection, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(app.PageWorkers)
	for idx, pageImage := range pages {
		g.Go(func() error {
			pd, err := app.detectPage(gctx, pageImage, idx)
			if err != nil {
				return err
			}
			detections[idx] = pd

			matched := filterBoxes(pd.boxes, requested)
			log.Debugf("Page %d: masking %d of %d detections", idx, len(matched), len(pd.boxes))

			out, err := redactPage(pageImage, matched, mode, partial)
			if err != nil {
				return err
			}
			redacted[idx] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	app.maybeDumpHOCR(pages, detections)

	return assembleOutput(redacted, filename, pdfInput)
}
