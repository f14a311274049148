package audio

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultTTSModel   = "ElevenLabs-v3"
	defaultTTSTimeout = 30 * time.Second
)

var urlPattern = regexp.MustCompile(`https?://[^\s)\]"'<>]+`)

// ChatCompleter is the chat endpoint the speech bot is reached through.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// TTSClient asks a speech bot for narration through the chat completions
// endpoint and pulls the first link out of the reply.
type TTSClient struct {
	chat    ChatCompleter
	model   string
	timeout time.Duration
}

var _ Synthesizer = (*TTSClient)(nil)

func NewTTSClient(chat ChatCompleter, model string, timeout time.Duration) *TTSClient {
	if model == "" {
		model = DefaultTTSModel
	}
	if timeout <= 0 {
		timeout = defaultTTSTimeout
	}
	return &TTSClient{chat: chat, model: model, timeout: timeout}
}

func (t *TTSClient) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	reply, err := t.chat.Complete(ctx, text, t.model)
	if err != nil {
		return "", fmt.Errorf("tts (%s): %w", t.model, err)
	}
	return FirstURL(reply), nil
}

// FirstURL returns the first http(s) link in s, or "".
func FirstURL(s string) string {
	return strings.TrimRight(urlPattern.FindString(s), ".,;")
}
