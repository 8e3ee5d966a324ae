package mylog

import (
	"context"
	"log/slog"
	"os"

	"examprep/app/config"

	"github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// AlertKey marks a record for delivery to the alert channel regardless of level.
const AlertKey = "telegram"

func Preinit() {
	slog.SetDefault(slog.New(consoleHandler(level())))
}

func Init(cfg *config.Config) error {
	lvl := level()
	router := slogmulti.Router().Add(consoleHandler(lvl))

	if cfg.Log.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     lvl,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),
			isAlert,
		)
	}

	slog.SetDefault(slog.New(router.Handler()))

	return nil
}

func isAlert(_ context.Context, r slog.Record) bool {
	if r.Level >= slog.LevelError {
		return true
	}

	tagged := false
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == AlertKey {
			tagged = true
			return false
		}
		return true
	})

	return tagged
}

func consoleHandler(lvl slog.Level) slog.Handler {
	return console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	})
}

// level reads LOG_LEVEL, defaulting to debug.
func level() slog.Level {
	lvl := slog.LevelDebug
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := lvl.UnmarshalText([]byte(raw)); err != nil {
			return slog.LevelDebug
		}
	}
	return lvl
}
