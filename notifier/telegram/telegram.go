// Package telegram sends the summary of a run to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/martinohansen/ledgerbulk"
	tb "gopkg.in/tucnak/telebot.v2"
)

type Config struct {
	Token  string `envconfig:"TELEGRAM_TOKEN"`
	ChatID int64  `envconfig:"TELEGRAM_CHAT_ID"`

	// URL overrides the Bot API endpoint
	URL string `envconfig:"TELEGRAM_URL"`
}

type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

type Notifier struct {
	Config Config
	bot    sender
	logger *slog.Logger
}

// NewNotifier returns a notifier for the chat in TELEGRAM_CHAT_ID. No call
// is made to Telegram until the first message is sent.
func NewNotifier(logger *slog.Logger) (Notifier, error) {
	cfg := Config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return Notifier{}, fmt.Errorf("processing config: %w", err)
	}
	if cfg.Token == "" {
		return Notifier{}, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.ChatID == 0 {
		return Notifier{}, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	bot, err := tb.NewBot(tb.Settings{
		URL:     cfg.URL,
		Token:   cfg.Token,
		Offline: true,
	})
	if err != nil {
		return Notifier{}, fmt.Errorf("failed to create bot: %w", err)
	}

	return Notifier{
		Config: cfg,
		bot:    bot,
		logger: logger.With("notifier", "telegram"),
	}, nil
}

func (n Notifier) String() string {
	return "telegram"
}

// Notify sends the run summary. runErr is the error that ended the run
// early, if any.
func (n Notifier) Notify(ctx context.Context, session string, s ledgerbulk.Summary, runErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Send(tb.ChatID(n.Config.ChatID), Message(session, s, runErr)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	n.logger.Debug("sent summary", "chat", n.Config.ChatID)
	return nil
}

// Message renders the summary as plain text.
func Message(session string, s ledgerbulk.Summary, runErr error) string {
	var b strings.Builder
	if runErr != nil {
		fmt.Fprintf(&b, "Ingestion stopped: %s\n", runErr)
	} else if s.Failed > 0 {
		b.WriteString("Ingestion finished with failures\n")
	} else {
		b.WriteString("Ingestion finished\n")
	}
	fmt.Fprintf(&b, "Session: %s\n", session)
	fmt.Fprintf(&b, "Rows: %d\n", s.Seen)
	fmt.Fprintf(&b, "Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&b, "Attempted: %d\n", s.Attempted)
	fmt.Fprintf(&b, "Succeeded: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Failed: %d", s.Failed)
	return b.String()
}
