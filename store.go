package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// Store holds every synced pack and mirrors itself into a single JSON
// document on disk. Every mutation rewrites the whole document before
// returning, so the file is always a complete snapshot.
type Store struct {
	mu    sync.Mutex
	path  string
	packs []*Pack
}

type storeDoc struct {
	Packs []*Pack `json:"packs"`
}

// loadStore reads the backing document. A missing file is an empty store, an
// unreadable one is an error the caller treats as fatal.
func loadStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	} else if err != nil {
		return nil, fmt.Errorf("read store %s: %w", path, err)
	}

	var doc storeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	s.packs = doc.Packs
	return s, nil
}

// Put replaces the pack stored under p.Name, keeping the original slot so
// listing order stays stable across re-syncs.
func (s *Store) Put(p *Pack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, old := range s.packs {
		if old.Name == p.Name {
			s.packs[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.packs = append(s.packs, p)
	}
	return s.persist()
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(storeDoc{Packs: s.packs}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write store %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Get(name string) (*Pack, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.packs {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

type packSummary struct {
	Name   string
	Title  string
	Count  int
	Synced string
}

func (s *Store) List() []packSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]packSummary, 0, len(s.packs))
	for _, p := range s.packs {
		out = append(out, packSummary{
			Name:   p.Name,
			Title:  p.Title,
			Count:  len(p.Emojis),
			Synced: p.SyncedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return out
}

// SearchEmoji scans every pack in store order. The query and every candidate
// glyph are case-folded and stripped of variation selectors first, so "🔥"
// and "🔥️" match the same records. A blank query matches nothing.
func (s *Store) SearchEmoji(query string) []Emoji {
	q := foldGlyph(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Emoji
	for _, p := range s.packs {
		for _, e := range p.Emojis {
			if strings.Contains(foldGlyph(e.Glyph), q) || strings.Contains(strings.ToLower(e.ID), q) {
				out = append(out, e)
			}
		}
	}
	return out
}

// AllEmojis concatenates every pack's emojis, pack order then in-pack order.
func (s *Store) AllEmojis() []Emoji {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Emoji
	for _, p := range s.packs {
		out = append(out, p.Emojis...)
	}
	return out
}

// foldGlyph lowercases s and drops the U+FE00..U+FE0F variation selectors, so
// emoji with and without the presentation marker compare equal.
func foldGlyph(s string) string {
	return strings.Map(func(r rune) rune {
		if 0xFE00 <= r && r <= 0xFE0F {
			return -1
		}
		return r
	}, strings.ToLower(s))
}
