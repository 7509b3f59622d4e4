package main

import (
	"regexp"
	"strings"

	"github.com/Sumit2809/PII-Final/ocr"
)

// patternRule pairs a PII label with the expression a whole token must
// satisfy to earn it.
type patternRule struct {
	label string
	re    *regexp.Regexp
}

// piiPatterns is the pattern registry. Order matters: a token belongs to
// the first rule it matches and is never tested against later rules.
var piiPatterns = []patternRule{
	{label: LabelPAN, re: regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)},
	{label: LabelAadhaar, re: regexp.MustCompile(`^\d{4}\s?\d{4}\s?\d{4}$`)},
	{label: LabelPhone, re: regexp.MustCompile(`^[6-9]\d{9}$`)},
	{label: LabelEmail, re: regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w{2,3}$`)},
}

// detectPatterns scans every recognized token against the registry.
// Matching is whole-token: the entire trimmed text must satisfy the
// expression, so a digit run buried inside a longer token never
// produces a box.
func detectPatterns(words []ocr.Word, page int) ([]DetectedBox, Summary) {
	var boxes []DetectedBox
	summary := Summary{}

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}

		for _, rule := range piiPatterns {
			if !rule.re.MatchString(text) {
				continue
			}
			boxes = append(boxes, DetectedBox{
				Label:  rule.label,
				Text:   text,
				Page:   page,
				Left:   w.Left,
				Top:    w.Top,
				Width:  w.Width,
				Height: w.Height,
			})
			summary[rule.label]++
			break
		}
	}
	return boxes, summary
}
