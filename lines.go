package main

import (
	"strings"

	"github.com/Sumit2809/PII-Final/ocr"
)

// lineKey identifies one visual text line in the recognized layout.
type lineKey struct {
	block     int
	paragraph int
	line      int
}

// span is a character range within an assembled line, end exclusive.
type span struct {
	start int
	end   int
}

// lineGroup is one assembled text line: the tokens sharing a layout key,
// their joined text and the offset each token occupies within it.
type lineGroup struct {
	words   []ocr.Word
	text    string
	offsets []span
}

// assembleLines groups recognized tokens into text lines keyed by
// (block, paragraph, line). Whitespace-only tokens are dropped before
// grouping so they cannot shift offsets. Tokens keep the engine's
// reading order, and offsets advance by len(word)+1 to mirror the
// single-space join exactly.
func assembleLines(words []ocr.Word) []*lineGroup {
	groups := make(map[lineKey]*lineGroup)
	var order []lineKey

	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}

		key := lineKey{block: w.Block, paragraph: w.Paragraph, line: w.Line}
		group, ok := groups[key]
		if !ok {
			group = &lineGroup{}
			groups[key] = group
			order = append(order, key)
		}

		trimmed := w
		trimmed.Text = text
		group.words = append(group.words, trimmed)
	}

	lines := make([]*lineGroup, 0, len(order))
	for _, key := range order {
		group := groups[key]
		texts := make([]string, len(group.words))
		group.offsets = make([]span, len(group.words))

		pos := 0
		for i, w := range group.words {
			texts[i] = w.Text
			group.offsets[i] = span{start: pos, end: pos + len(w.Text)}
			pos += len(w.Text) + 1
		}
		group.text = strings.Join(texts, " ")
		lines = append(lines, group)
	}
	return lines
}
