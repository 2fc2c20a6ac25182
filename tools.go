package main

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
)

// enlargedDim is the edge length get_emoji resizes a single thumbnail to.
const enlargedDim = 320

func (a *app) previewDir() string {
	return filepath.Join(a.cfg.DataDir, "previews")
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

// failResult reports an operation failure as a readable message. Tool calls
// never bubble errors up to the transport; a bad pack name or a dead network
// must not look like a broken server.
func failResult(format string, args ...any) *mcp.CallToolResult {
	r := textResult(format, args...)
	r.IsError = true
	return r
}

func (a *app) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_packs",
		Description: "Search the public sticker catalog for custom emoji packs by keyword.",
	}, a.handleSearchPacks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "sync_emoji_pack",
		Description: "Download an emoji pack (or the configured default packs) and cache it locally with a preview sheet.",
	}, a.handleSyncEmojiPack)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_packs",
		Description: "List every cached emoji pack.",
	}, a.handleListPacks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_pack",
		Description: "Show one cached pack's emojis together with its labeled preview sheet.",
	}, a.handleGetPack)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_emoji",
		Description: "Show a single emoji from a cached pack at full size, addressed by #index or id.",
	}, a.handleGetEmoji)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_emoji",
		Description: "Search cached emojis by fallback glyph or id substring.",
	}, a.handleSearchEmoji)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "format_message",
		Description: "Rewrite {id} and :glyph: placeholders in text into Telegram custom emoji markup.",
	}, a.handleFormatMessage)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "send_message",
		Description: "Send an HTML-formatted message to a Telegram chat.",
	}, a.handleSendMessage)
}

type searchPacksInput struct {
	Query string `json:"query" jsonschema:"keywords to search the catalog for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

func (a *app) handleSearchPacks(ctx context.Context, req *mcp.CallToolRequest, in searchPacksInput) (*mcp.CallToolResult, any, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	results, err := a.searchCatalog(ctx, in.Query, limit)
	if err != nil {
		return failResult("pack search failed: %v", err), nil, nil
	}
	if len(results) == 0 {
		return textResult("no packs found for %q", in.Query), nil, nil
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s — %s (%d emojis)\n", r.Name, r.Title, r.Count)
	}
	return textResult("%s", b.String()), nil, nil
}

type syncPackInput struct {
	PackName string `json:"pack_name,omitempty" jsonschema:"sticker set name to sync; defaults to the EMOJI_PACKS list"`
}

func (a *app) handleSyncEmojiPack(ctx context.Context, req *mcp.CallToolRequest, in syncPackInput) (*mcp.CallToolResult, any, error) {
	names := []string{in.PackName}
	if in.PackName == "" {
		names = a.cfg.Packs
	}
	if len(names) == 0 {
		return failResult("no pack name given and EMOJI_PACKS is empty"), nil, nil
	}

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, a.syncOne(ctx, name))
	}
	return textResult("%s", b.String()), nil, nil
}

// syncOne fetches, composes and stores a single pack, returning one result
// line. A sync fully replaces whatever was cached under the same name.
func (a *app) syncOne(ctx context.Context, name string) string {
	title, emojis, thumbs, err := a.fetchPack(ctx, name)
	if err != nil {
		return fmt.Sprintf("sync failed: %v", err)
	}

	preview, err := composeSprite(a.previewDir(), name, emojis, thumbs)
	if err != nil {
		// The metadata is still worth caching even if the sheet couldn't be
		// written.
		logrus.Errorf("pack %s: preview not generated: %v", name, err)
		preview = ""
	}

	if err := a.store.Put(&Pack{
		Name:     name,
		Title:    title,
		Emojis:   emojis,
		SyncedAt: time.Now().UTC(),
		Preview:  preview,
	}); err != nil {
		return fmt.Sprintf("store failed: %v", err)
	}
	return fmt.Sprintf("synced %d emojis", len(emojis))
}

type listPacksInput struct{}

func (a *app) handleListPacks(ctx context.Context, req *mcp.CallToolRequest, in listPacksInput) (*mcp.CallToolResult, any, error) {
	packs := a.store.List()
	if len(packs) == 0 {
		return textResult("no packs cached yet, run sync_emoji_pack first"), nil, nil
	}

	var b strings.Builder
	for _, p := range packs {
		fmt.Fprintf(&b, "%s — %s (%d emojis, synced %s)\n", p.Name, p.Title, p.Count, p.Synced)
	}
	return textResult("%s", b.String()), nil, nil
}

type getPackInput struct {
	PackName string `json:"pack_name" jsonschema:"name of a cached pack"`
}

func (a *app) handleGetPack(ctx context.Context, req *mcp.CallToolRequest, in getPackInput) (*mcp.CallToolResult, any, error) {
	pack, ok := a.store.Get(in.PackName)
	if !ok {
		return failResult("pack %q is not cached, sync it first", in.PackName), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s (%d emojis)\n", pack.Name, pack.Title, len(pack.Emojis))
	for i, e := range pack.Emojis {
		fmt.Fprintf(&b, "#%d %s %s\n", i+1, e.Glyph, e.ID)
	}
	content := []mcp.Content{&mcp.TextContent{Text: b.String()}}

	if blob, err := os.ReadFile(pack.Preview); pack.Preview != "" && err == nil {
		content = append(content, &mcp.ImageContent{Data: blob, MIMEType: "image/png"})
	} else {
		content = append(content, &mcp.TextContent{
			Text: "preview sheet is missing, re-sync the pack to regenerate it",
		})
	}
	return &mcp.CallToolResult{Content: content}, nil, nil
}

type getEmojiInput struct {
	PackName string `json:"pack_name" jsonschema:"name of a cached pack"`
	Index    int    `json:"index,omitempty" jsonschema:"1-based position inside the pack, takes precedence over emoji_id"`
	EmojiID  string `json:"emoji_id,omitempty" jsonschema:"custom emoji id to look up"`
}

func (a *app) handleGetEmoji(ctx context.Context, req *mcp.CallToolRequest, in getEmojiInput) (*mcp.CallToolResult, any, error) {
	pack, ok := a.store.Get(in.PackName)
	if !ok {
		return failResult("pack %q is not cached, sync it first", in.PackName), nil, nil
	}

	var e *Emoji
	switch {
	case in.Index > 0:
		if in.Index > len(pack.Emojis) {
			return failResult("pack %q has only %d emojis", in.PackName, len(pack.Emojis)), nil, nil
		}
		e = &pack.Emojis[in.Index-1]
	case in.EmojiID != "":
		for i := range pack.Emojis {
			if pack.Emojis[i].ID == in.EmojiID {
				e = &pack.Emojis[i]
				break
			}
		}
		if e == nil {
			return failResult("no emoji with id %q in pack %q", in.EmojiID, in.PackName), nil, nil
		}
	default:
		return failResult("either index or emoji_id is required"), nil, nil
	}

	text := fmt.Sprintf("%s %s (pack %s)\nplaceholder: {%s}", e.Glyph, e.ID, pack.Name, e.ID)

	blob, err := a.enlargedThumb(ctx, e)
	if err != nil {
		logrus.Infof("emoji %s: full-size image unavailable: %v", e.ID, err)
		return textResult("%s\n(image unavailable: %v)", text, err), nil, nil
	}
	return &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.TextContent{Text: text},
		&mcp.ImageContent{Data: blob, MIMEType: "image/png"},
	}}, nil, nil
}

// enlargedThumb re-downloads an emoji's thumbnail via its cached file
// reference and re-encodes it at enlargedDim.
func (a *app) enlargedThumb(ctx context.Context, e *Emoji) ([]byte, error) {
	blob, err := a.downloadFile(ctx, e.FileID)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(blob)
	if err != nil {
		return nil, err
	}
	big := resize.Resize(enlargedDim, 0, img, resize.Bicubic)
	out := &bytes.Buffer{}
	if err := png.Encode(out, big); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type searchEmojiInput struct {
	Query string `json:"query" jsonschema:"substring matched against fallback glyphs and ids"`
}

func (a *app) handleSearchEmoji(ctx context.Context, req *mcp.CallToolRequest, in searchEmojiInput) (*mcp.CallToolResult, any, error) {
	matches := a.store.SearchEmoji(in.Query)
	if len(matches) == 0 {
		return textResult("no cached emoji matched %q", in.Query), nil, nil
	}

	var b strings.Builder
	for _, e := range matches {
		fmt.Fprintf(&b, "%s %s (pack %s)\n", e.Glyph, e.ID, e.PackName)
	}
	return textResult("%s", b.String()), nil, nil
}

type formatMessageInput struct {
	Text   string `json:"text" jsonschema:"message text containing {id} or :glyph: placeholders"`
	Format string `json:"format,omitempty" jsonschema:"output markup, html (default) or markdown"`
}

func (a *app) handleFormatMessage(ctx context.Context, req *mcp.CallToolRequest, in formatMessageInput) (*mcp.CallToolResult, any, error) {
	format := in.Format
	if format == "" {
		format = "html"
	}
	return textResult("%s", resolvePlaceholders(in.Text, format, a.store.AllEmojis())), nil, nil
}

type sendMessageInput struct {
	ChatID string `json:"chat_id" jsonschema:"numeric chat id or @channel name"`
	Text   string `json:"text" jsonschema:"message text, HTML markup allowed"`
}

func (a *app) handleSendMessage(ctx context.Context, req *mcp.CallToolRequest, in sendMessageInput) (*mcp.CallToolResult, any, error) {
	if err := a.sendMessage(in.ChatID, in.Text); err != nil {
		return failResult("message not sent: %v", err), nil, nil
	}
	return textResult("message sent to %s", in.ChatID), nil, nil
}
