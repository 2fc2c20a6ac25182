package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	s, err := loadStore(filepath.Join(t.TempDir(), "packs.json"))
	require.NoError(t, err)
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	s, err := loadStore(path)
	require.NoError(t, err)

	pack := &Pack{
		Name:  "cats",
		Title: "Cat Pack",
		Emojis: []Emoji{
			{ID: "100", Glyph: "🐱", PackName: "cats", FileID: "f1"},
			{ID: "101", Glyph: "😺", PackName: "cats", FileID: "f2"},
			{ID: "102", Glyph: "🙀", PackName: "cats"},
		},
		SyncedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Put(pack))

	reloaded, err := loadStore(path)
	require.NoError(t, err)
	got, ok := reloaded.Get("cats")
	require.True(t, ok)
	require.Equal(t, pack.Emojis, got.Emojis)
	require.Equal(t, "Cat Pack", got.Title)
	require.True(t, pack.SyncedAt.Equal(got.SyncedAt))
}

func TestStorePutReplacesWholesale(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Put(&Pack{Name: "p", Emojis: []Emoji{
		{ID: "1", Glyph: "🐱", PackName: "p"},
		{ID: "2", Glyph: "🐶", PackName: "p"},
	}}))
	require.NoError(t, s.Put(&Pack{Name: "p", Emojis: []Emoji{
		{ID: "3", Glyph: "🦊", PackName: "p"},
	}}))

	got, ok := s.Get("p")
	require.True(t, ok)
	require.Len(t, got.Emojis, 1)
	require.Equal(t, "3", got.Emojis[0].ID)
	require.Len(t, s.List(), 1)
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	s, err := loadStore(filepath.Join(t.TempDir(), "nope", "packs.json"))
	require.NoError(t, err)
	require.Empty(t, s.List())
	require.Empty(t, s.AllEmojis())
}

func TestStoreCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := loadStore(path)
	require.Error(t, err)
}

func TestSearchEmojiBlankQuery(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Put(&Pack{Name: "p", Emojis: []Emoji{{ID: "1", Glyph: "🐱"}}}))

	require.Empty(t, s.SearchEmoji(""))
	require.Empty(t, s.SearchEmoji("   \t "))
}

func TestSearchEmojiVariationSelectors(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Put(&Pack{Name: "p", Emojis: []Emoji{
		{ID: "1", Glyph: "🔥", PackName: "p"},
		{ID: "2", Glyph: "❤️", PackName: "p"},
	}}))

	bare := s.SearchEmoji("🔥")
	marked := s.SearchEmoji("🔥️")
	require.Equal(t, bare, marked)
	require.Len(t, bare, 1)
	require.Equal(t, "1", bare[0].ID)

	// Stored with the marker, queried without.
	require.Len(t, s.SearchEmoji("❤"), 1)
}

func TestSearchEmojiMatchesIDSubstring(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Put(&Pack{Name: "p", Emojis: []Emoji{
		{ID: "5368324170180601032", Glyph: "🐱"},
		{ID: "777", Glyph: "🐶"},
	}}))

	got := s.SearchEmoji("601032")
	require.Len(t, got, 1)
	require.Equal(t, "🐱", got[0].Glyph)
}

func TestAllEmojisKeepsOrder(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Put(&Pack{Name: "a", Emojis: []Emoji{{ID: "1"}, {ID: "2"}}}))
	require.NoError(t, s.Put(&Pack{Name: "b", Emojis: []Emoji{{ID: "3"}}}))

	var ids []string
	for _, e := range s.AllEmojis() {
		ids = append(ids, e.ID)
	}
	require.Equal(t, []string{"1", "2", "3"}, ids)
}
