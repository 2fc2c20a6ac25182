package main

import "time"

// unknownGlyph stands in whenever the upstream API omits the fallback emoji
// for a sticker, and for id placeholders that don't resolve to anything.
const unknownGlyph = "❓"

const netTimeout = 30 * time.Second

// Emoji is one custom emoji inside a pack. ID is the platform's
// custom_emoji_id when the sticker carries one, otherwise its file_unique_id.
type Emoji struct {
	ID       string `json:"id"`
	Glyph    string `json:"glyph"`
	PackName string `json:"pack_name"`
	FileID   string `json:"file_id,omitempty"`
}

// Pack is a synced sticker set. Emojis keeps the platform order, which also
// defines grid positions on the preview sheet and 1-based #n addressing.
type Pack struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Emojis   []Emoji   `json:"emojis"`
	SyncedAt time.Time `json:"synced_at"`
	Preview  string    `json:"preview,omitempty"`
}
