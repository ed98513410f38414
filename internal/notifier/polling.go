package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const pollTimeout = 30 // seconds, server side

// CommandHandler is called when a user command is received.
type CommandHandler func(command string) string

type update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type getUpdatesRequest struct {
	Offset         int      `json:"offset"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// StartPolling long-polls for chat commands until ctx is cancelled. Each
// command's reply is sent back to the chat.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: (pollTimeout + 5) * time.Second, Transport: t.Client.Transport}
	offset := 0

	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.log.Warnw("polling request failed", "err", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if reply := t.dispatch(u, handler); reply != "" {
				if err := t.Send(reply); err != nil {
					t.log.Errorw("send reply", "err", err)
				}
			}
		}
	}
	t.log.Info("telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]update, error) {
	var updates []update
	req := getUpdatesRequest{Offset: offset, Timeout: pollTimeout, AllowedUpdates: []string{"message"}}
	if err := t.call(ctx, client, "getUpdates", req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// dispatch runs handler for a text message from the configured chat. A
// panicking handler is logged and answered with an error reply.
func (t *TelegramNotifier) dispatch(u update, handler CommandHandler) (reply string) {
	if u.Message == nil || strings.TrimSpace(u.Message.Text) == "" {
		return ""
	}
	if t.ChatID != "" && fmt.Sprint(u.Message.Chat.ID) != t.ChatID {
		t.log.Warnw("ignoring message from unknown chat", "chat_id", u.Message.Chat.ID)
		return ""
	}
	text := strings.TrimSpace(u.Message.Text)
	t.log.Infow("received command", "text", text)

	defer func() {
		if r := recover(); r != nil {
			t.log.Errorw("command handler panicked", "text", text, "panic", r)
			reply = fmt.Sprintf("❌ internal error: %v", r)
		}
	}()
	return handler(text)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
