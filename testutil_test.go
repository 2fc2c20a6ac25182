package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

const testToken = "12345:TESTTOKEN"

// fakeTelegram emulates the handful of Bot API methods the fetcher touches.
type fakeTelegram struct {
	ts *httptest.Server

	stickerSet map[string]any // getStickerSet result payload per set name
	files      map[string][]byte
	slowFiles  map[string]time.Duration

	calls atomic.Int64 // every request except getMe
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	f := &fakeTelegram{
		stickerSet: map[string]any{},
		files:      map[string][]byte{},
		slowFiles:  map[string]time.Duration{},
	}

	mux := http.NewServeMux()
	prefix := "/bot" + testToken + "/"
	mux.HandleFunc(prefix+"getMe", func(w http.ResponseWriter, r *http.Request) {
		writeAPIResult(w, map[string]any{"id": 1, "is_bot": true, "first_name": "test", "username": "testbot"})
	})
	mux.HandleFunc(prefix+"getStickerSet", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		set, ok := f.stickerSet[r.FormValue("name")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: STICKERSET_INVALID"}`)
			return
		}
		writeAPIResult(w, set)
	})
	mux.HandleFunc(prefix+"getFile", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		id := r.FormValue("file_id")
		writeAPIResult(w, map[string]any{"file_id": id, "file_unique_id": id, "file_path": "thumbs/" + id})
	})
	mux.HandleFunc(prefix+"sendMessage", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		writeAPIResult(w, map[string]any{"message_id": 7, "date": 0, "text": r.FormValue("text"),
			"chat": map[string]any{"id": 1, "type": "private"}})
	})
	mux.HandleFunc("/file/bot"+testToken+"/thumbs/", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		id := filepath.Base(r.URL.Path)
		if d, ok := f.slowFiles[id]; ok {
			time.Sleep(d)
		}
		blob, ok := f.files[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(blob)
	})

	f.ts = httptest.NewServer(mux)
	t.Cleanup(f.ts.Close)
	return f
}

func writeAPIResult(w http.ResponseWriter, result any) {
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

func (f *fakeTelegram) bot(t *testing.T) *tgbotapi.BotAPI {
	bot, err := tgbotapi.NewBotAPIWithClient(testToken, f.ts.URL+"/bot%s/%s", f.ts.Client())
	require.NoError(t, err)
	return bot
}

// newTestApp builds an app against the fake server with a store rooted in a
// temp dir.
func newTestApp(t *testing.T, f *fakeTelegram) *app {
	dir := t.TempDir()
	store, err := loadStore(filepath.Join(dir, "packs.json"))
	require.NoError(t, err)

	cfg := Config{DataDir: dir}
	var bot *tgbotapi.BotAPI
	if f != nil {
		bot = f.bot(t)
	}
	a := newApp(cfg, store, bot)
	if f != nil {
		a.fileEndpoint = f.ts.URL + "/file/bot%s/%s"
	}
	return a
}

func testPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Pt(0, 0), draw.Src)
	out := &bytes.Buffer{}
	require.NoError(t, png.Encode(out, img))
	return out.Bytes()
}

func stickerJSON(fileID, emoji, customEmojiID string) map[string]any {
	return map[string]any{
		"file_id":         fileID,
		"file_unique_id":  "u-" + fileID,
		"type":            "custom_emoji",
		"emoji":           emoji,
		"custom_emoji_id": customEmojiID,
		"thumbnail":       map[string]any{"file_id": fileID + "-thumb", "file_unique_id": "ut-" + fileID},
	}
}
