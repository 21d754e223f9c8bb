package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"jewelflow/internal/event"
)

const sendTimeout = 10 * time.Second

type Notifier struct {
	mailer Mailer
	log    *slog.Logger
}

func NewNotifier(mailer Mailer, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{mailer: mailer, log: log}
}

// Run mails on registration and lockout until ctx is done or events closes.
func (n *Notifier) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			msg, ok := compose(e)
			if !ok {
				continue
			}

			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			err := n.mailer.Send(sendCtx, msg)
			cancel()
			if err != nil {
				n.log.Error("notification failed", "event_id", e.ID, "type", e.Type, "error", err)
			}
		}
	}
}

func compose(e event.Event) (Message, bool) {
	payload, ok := e.Payload.(map[string]any)
	if !ok {
		return Message{}, false
	}
	email, _ := payload["email"].(string)
	if email == "" {
		return Message{}, false
	}

	switch e.Type {
	case event.TypeUserRegistered:
		return Message{
			ToEmail: email,
			Subject: "Welcome to JewelFlow",
			Text:    "Your JewelFlow account is ready. Sign in with " + email + ".",
			HTML:    "<p>Your JewelFlow account is ready. Sign in with <strong>" + html.EscapeString(email) + "</strong>.</p>",
		}, true
	case event.TypeUserLocked:
		until := "a while"
		if t, ok := payload["until"].(time.Time); ok {
			until = t.UTC().Format("15:04 MST")
		}
		text := fmt.Sprintf("Too many failed sign-ins. Your JewelFlow account is locked until %s.", until)
		return Message{
			ToEmail: email,
			Subject: "JewelFlow account locked",
			Text:    text,
			HTML:    "<p>" + html.EscapeString(text) + "</p>",
		}, true
	default:
		return Message{}, false
	}
}
