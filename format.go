package main

import (
	"fmt"
	"regexp"
)

var (
	idPlaceholder    = regexp.MustCompile(`\{(\d+)\}`)
	glyphPlaceholder = regexp.MustCompile(`:([^:]+):`)
)

// emojiMarkup renders one custom emoji reference in the requested output
// format: "markdown" produces a tg://emoji link, anything else the HTML
// tg-emoji tag Telegram accepts with parse_mode=HTML.
func emojiMarkup(format, id, glyph string) string {
	if format == "markdown" {
		return fmt.Sprintf("![%s](tg://emoji?id=%s)", glyph, id)
	}
	return fmt.Sprintf(`<tg-emoji emoji-id="%s">%s</tg-emoji>`, id, glyph)
}

// resolvePlaceholders rewrites {id} and :glyph: placeholders into emoji
// markup, two independent passes over the text in that order.
//
// The two placeholder kinds fail differently on purpose: an {id} reference is
// assumed deliberate and always becomes markup (with a placeholder glyph if
// the id is unknown), while an unmatched :glyph: is left exactly as typed.
func resolvePlaceholders(text, format string, emojis []Emoji) string {
	byID := make(map[string]Emoji, len(emojis))
	byGlyph := make(map[string]Emoji, len(emojis))
	for _, e := range emojis {
		if _, ok := byID[e.ID]; !ok {
			byID[e.ID] = e
		}
		key := foldGlyph(e.Glyph)
		if _, ok := byGlyph[key]; !ok {
			byGlyph[key] = e
		}
	}

	text = idPlaceholder.ReplaceAllStringFunc(text, func(m string) string {
		id := m[1 : len(m)-1]
		glyph := unknownGlyph
		if e, ok := byID[id]; ok {
			glyph = e.Glyph
		}
		return emojiMarkup(format, id, glyph)
	})

	return glyphPlaceholder.ReplaceAllStringFunc(text, func(m string) string {
		glyph := m[1 : len(m)-1]
		e, ok := byGlyph[foldGlyph(glyph)]
		if !ok {
			return m
		}
		return emojiMarkup(format, e.ID, glyph)
	})
}
