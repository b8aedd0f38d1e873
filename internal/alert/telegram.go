// Package alert formats and delivers Telegram notifications: the
// startup banner, launch alerts for WATCH verdicts, trade lifecycle
// events and the scheduled digest. It also answers the /balance,
// /active and /help commands from the configured chat.
package alert

import (
	"context"
	"fmt"
	"io"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"token-scout/internal/domain"
	"token-scout/internal/trading"
)

// Portfolio is the read-only manager surface the command bot replies
// from. Snapshots only; the bot never mutates trading state.
type Portfolio interface {
	Summarize() trading.Summary
	OpenPositions() []domain.Position
}

// Options configures the notifier and command bot.
type Options struct {
	Token     string
	ChatID    int64
	Portfolio Portfolio
	Logger    *logrus.Entry
}

// Telegram posts alerts to one chat and answers commands from it.
// A nil *Telegram is a valid no-op notifier, so callers wire alerting
// unconditionally and run fine without credentials.
type Telegram struct {
	bot       *tgbot.BotAPI
	chatID    int64
	portfolio Portfolio
	log       *logrus.Entry
}

// New connects to the Bot API, which validates the token.
func New(opts Options) (*Telegram, error) {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}

	bot, err := tgbot.NewBotAPI(opts.Token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram connect")
	}

	opts.Logger.WithField("bot", bot.Self.UserName).Info("telegram notifier ready")
	return &Telegram{
		bot:       bot,
		chatID:    opts.ChatID,
		portfolio: opts.Portfolio,
		log:       opts.Logger,
	}, nil
}

// Send posts one plain-text message to the configured chat. Delivery
// failures are logged and swallowed; alerting never fails the caller.
func (t *Telegram) Send(text string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, text)); err != nil {
		t.log.WithError(err).Warn("telegram send failed")
	}
}

// Sendf formats and sends.
func (t *Telegram) Sendf(format string, args ...any) {
	t.Send(fmt.Sprintf(format, args...))
}

// Startup posts the activation banner.
func (t *Telegram) Startup(chainID string, capitalUSD float64, maxOpen int) {
	t.Send(FormatStartup(chainID, capitalUSD, maxOpen))
}

// Launch posts the alert for a WATCH verdict.
func (t *Telegram) Launch(c domain.Candidate, v domain.Verdict) {
	t.Send(FormatLaunch(c, v))
}

// TradeEvent posts one manager action.
func (t *Telegram) TradeEvent(ev *trading.Event) {
	if ev == nil {
		return
	}
	t.Send(FormatTradeEvent(*ev))
}

// Run polls for commands until ctx is cancelled. Only commands from
// the configured chat get a reply; everything else is dropped.
func (t *Telegram) Run(ctx context.Context) error {
	if t == nil || t.bot == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	t.log.Info("command bot listening")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd := <-updates:
			t.handleUpdate(upd)
		}
	}
}

func (t *Telegram) handleUpdate(upd tgbot.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "balance":
		if t.portfolio != nil {
			t.Send(FormatBalance(t.portfolio.Summarize()))
		}
	case "active":
		if t.portfolio != nil {
			t.Send(FormatActive(t.portfolio.OpenPositions()))
		}
	case "help":
		t.Send(helpText)
	}
}
