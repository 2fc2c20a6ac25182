package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/coyove/sdss/contrib/plru"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

var (
	errNotConfigured = errors.New("TELEGRAM_BOT_TOKEN is not configured")
	errTooLong       = errors.New("message exceeds the 4096 character limit")
)

// maxMessageLen is Telegram's hard cap on outbound message text.
const maxMessageLen = 4096

// getStickerSet is decoded by hand instead of through tgbotapi types: the v5
// Sticker struct predates Bot API 6.2 and has no custom_emoji_id field.
type stickerSet struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Stickers []sticker `json:"stickers"`
}

type sticker struct {
	FileID        string     `json:"file_id"`
	FileUniqueID  string     `json:"file_unique_id"`
	Emoji         string     `json:"emoji"`
	CustomEmojiID string     `json:"custom_emoji_id"`
	Thumbnail     *photoSize `json:"thumbnail"` // Bot API >= 6.6
	Thumb         *photoSize `json:"thumb"`     // older servers
}

type photoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
}

func (s sticker) thumbFileID() string {
	if s.Thumbnail != nil {
		return s.Thumbnail.FileID
	}
	if s.Thumb != nil {
		return s.Thumb.FileID
	}
	return s.FileID
}

// app wires the store and the remote Telegram/catalog endpoints together for
// the tool handlers. Endpoints are format strings so tests can point them at
// a local server.
type app struct {
	cfg   Config
	store *Store

	bot          *tgbotapi.BotAPI
	fileEndpoint string
	client       *http.Client
	timeout      time.Duration

	thumbCache *plru.Cache[uint64, []byte]
}

func newApp(cfg Config, store *Store, bot *tgbotapi.BotAPI) *app {
	return &app{
		cfg:          cfg,
		store:        store,
		bot:          bot,
		fileEndpoint: tgbotapi.FileEndpoint,
		client:       &http.Client{Timeout: netTimeout},
		timeout:      netTimeout,
		thumbCache:   plru.New[uint64, []byte](1000, plru.Hash.Uint64, nil),
	}
}

func fileKey(fileID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(fileID))
	return h.Sum64()
}

// fetchPack pulls a sticker set's metadata plus one thumbnail per sticker.
// Thumbnails download in parallel; any one of them timing out or failing
// degrades to an empty blob at that position, never to a fetch error.
func (a *app) fetchPack(ctx context.Context, name string) (title string, emojis []Emoji, thumbs [][]byte, err error) {
	if a.bot == nil {
		return "", nil, nil, errNotConfigured
	}

	resp, err := a.bot.MakeRequest("getStickerSet", tgbotapi.Params{"name": name})
	if err != nil {
		return "", nil, nil, fmt.Errorf("getStickerSet %q: %w", name, err)
	}

	var set stickerSet
	if err := json.Unmarshal(resp.Result, &set); err != nil {
		return "", nil, nil, fmt.Errorf("decode sticker set %q: %w", name, err)
	}

	emojis = make([]Emoji, len(set.Stickers))
	thumbs = make([][]byte, len(set.Stickers))
	for i, st := range set.Stickers {
		id := st.CustomEmojiID
		if id == "" {
			id = st.FileUniqueID
		}
		glyph := st.Emoji
		if glyph == "" {
			glyph = unknownGlyph
		}
		emojis[i] = Emoji{ID: id, Glyph: glyph, PackName: name, FileID: st.thumbFileID()}
	}

	var wg sync.WaitGroup
	for i := range set.Stickers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			blob, err := a.downloadFile(ctx, emojis[i].FileID)
			if err != nil {
				logrus.Infof("pack %s: thumbnail %d/%d skipped: %v", name, i+1, len(emojis), err)
				return
			}
			thumbs[i] = blob
		}(i)
	}
	wg.Wait()

	return set.Title, emojis, thumbs, nil
}

// downloadFile resolves a file id to its download path and fetches the bytes,
// bounded by the per-call timeout. Results are kept in a small LRU so
// re-inspecting the same emoji doesn't hit the network again.
func (a *app) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if a.bot == nil {
		return nil, errNotConfigured
	}
	if fileID == "" {
		return nil, errors.New("no file reference")
	}

	key := fileKey(fileID)
	if blob, ok := a.thumbCache.Get(key); ok {
		return blob, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	f, err := a.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("getFile %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf(a.fileEndpoint, a.bot.Token, f.FilePath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %s", fileID, resp.Status)
	}

	blob, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}

	a.thumbCache.Add(key, blob)
	return blob, nil
}

type catalogResult struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// searchCatalog queries the third-party sticker catalog for emoji packs.
func (a *app) searchCatalog(ctx context.Context, query string, limit int) ([]catalogResult, error) {
	if a.cfg.CatalogURL == "" {
		return nil, errors.New("STICKER_CATALOG_URL is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	u := a.cfg.CatalogURL + "?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog search: status %s", resp.Status)
	}

	var results []catalogResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	return results, nil
}

// sendMessage posts text to a chat with HTML parsing enabled. Oversized text
// is rejected before anything goes on the wire.
func (a *app) sendMessage(chatID, text string) error {
	if utf8.RuneCountInString(text) > maxMessageLen {
		return errTooLong
	}
	if a.bot == nil {
		return errNotConfigured
	}

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}
