package alarm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Bell writes the terminal bell character.
type Bell struct {
	Out io.Writer
}

// Notify rings the bell on Out, or stdout when Out is nil.
func (b Bell) Notify(context.Context) error {
	out := b.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := io.WriteString(out, "\a")
	return err
}

// toneCommand resolves the platform sound command. Overridden in tests.
var toneCommand = defaultToneCommand

func defaultToneCommand(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "afplay", []string{"/System/Library/Sounds/Glass.aiff"}
	case "windows":
		return "powershell", []string{"-NoProfile", "-Command", "[console]::beep(1000,500)"}
	default:
		return "paplay", []string{"/usr/share/sounds/freedesktop/stereo/complete.oga"}
	}
}

// runCommand executes a command. Overridden in tests.
var runCommand = func(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Tone plays an audible alert through the platform sound player and falls
// back to Fallback when the player is missing or fails.
type Tone struct {
	Timeout  time.Duration
	Fallback Notifier
	Logger   zerolog.Logger
}

// Notify plays the tone. It only fails if the fallback fails too.
func (t Tone) Notify(ctx context.Context) error {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args := toneCommand(runtime.GOOS)
	err := runCommand(runCtx, name, args...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	t.Logger.Debug().Err(err).Str("command", name).Msg("tone unavailable; falling back")

	fallback := t.Fallback
	if fallback == nil {
		fallback = Bell{}
	}
	if ferr := fallback.Notify(ctx); ferr != nil {
		return fmt.Errorf("play tone: %w", errors.Join(err, ferr))
	}
	return nil
}

// WebhookPayload is posted by Webhook.
type WebhookPayload struct {
	Event   string    `json:"event"`
	FiredAt time.Time `json:"fired_at"`
	Host    string    `json:"host,omitempty"`
}

// Webhook posts a JSON payload to a URL on every alarm.
type Webhook struct {
	client *resty.Client
	url    string
	now    func() time.Time
}

// NewWebhook builds a webhook notifier for url.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "pattern-replay")
	return &Webhook{client: client, url: url, now: time.Now}
}

// Notify posts the alarm payload. Non-2xx responses are errors.
func (w *Webhook) Notify(ctx context.Context) error {
	host, _ := os.Hostname()
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(WebhookPayload{Event: "alarm", FiredAt: w.now().UTC(), Host: host}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post alarm webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alarm webhook returned %s", resp.Status())
	}
	return nil
}

// Multi invokes every notifier and joins their errors.
type Multi []Notifier

// Notify calls each notifier in order, even after a failure.
func (m Multi) Notify(ctx context.Context) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
