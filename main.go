package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/caarlos0/env/v11"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Token      string   `env:"TELEGRAM_BOT_TOKEN"`
	Packs      []string `env:"EMOJI_PACKS" envSeparator:","`
	DataDir    string   `env:"EMOJI_DATA_DIR" envDefault:"data"`
	CatalogURL string   `env:"STICKER_CATALOG_URL" envDefault:"https://tlgrm.eu/api/stickers/search"`
	LogDir     string   `env:"EMOJI_LOG_DIR" envDefault:"logs"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logrus.Fatalf("parse environment: %v", err)
	}

	// stdout carries the MCP stdio framing, so logs go to stderr plus a
	// rotating file.
	lf := &logFormatter{io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "emoji-helper.log"),
		MaxSize:    20,
		MaxBackups: 10,
		MaxAge:     7,
		Compress:   true,
	})}
	logrus.SetFormatter(lf)
	logrus.SetOutput(lf.out)
	logrus.SetReportCaller(true)

	store, err := loadStore(filepath.Join(cfg.DataDir, "packs.json"))
	if err != nil {
		logrus.Fatalf("unusable pack store: %v", err)
	}

	var bot *tgbotapi.BotAPI
	if cfg.Token == "" {
		logrus.Info("TELEGRAM_BOT_TOKEN not set, remote operations disabled")
	} else {
		bot, err = tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint,
			&http.Client{Timeout: netTimeout})
		if err != nil {
			logrus.Errorf("telegram api unreachable, remote operations disabled: %v", err)
		} else {
			logrus.Infof("authorized as @%s", bot.Self.UserName)
		}
	}

	a := newApp(cfg, store, bot)
	srv := mcp.NewServer(&mcp.Implementation{Name: "emoji-helper", Version: "1.0.0"}, nil)
	a.registerTools(srv)

	logrus.Infof("serving %d cached packs over stdio", len(store.List()))
	if err := srv.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logrus.Fatalf("serve: %v", err)
	}
}

type logFormatter struct {
	out io.Writer
}

func (f *logFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	buf := bytes.Buffer{}
	if entry.Level <= logrus.ErrorLevel {
		buf.WriteString("ERR")
	} else {
		buf.WriteString("INFO")
	}
	buf.WriteString("\t")
	buf.WriteString(entry.Time.UTC().Format("2006-01-02T15:04:05.000\t"))
	if entry.Caller == nil {
		buf.WriteString("internal")
	} else {
		buf.WriteString(filepath.Base(entry.Caller.File))
		buf.WriteString(":")
		buf.WriteString(strconv.Itoa(entry.Caller.Line))
	}
	buf.WriteString("\t")
	buf.WriteString(entry.Message)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
