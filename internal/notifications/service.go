package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"trueedits/internal/config"
)

const userAgent = "trueedits/0.1.0"

// Service defines the notification surface used by the workflow.
type Service interface {
	NotifyBatchStarted(ctx context.Context, count int) error
	NotifyVideoCompleted(ctx context.Context, source, output string) error
	NotifyBatchCompleted(ctx context.Context, processed, failed, cancelled int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, count int) error {
	noun := "videos"
	if count == 1 {
		noun = "video"
	}
	return n.send(ctx, payload{
		title:   "trueedits - Batch Started",
		message: fmt.Sprintf("Editing %d %s", count, noun),
		tags:    []string{"trueedits", "batch", "started"},
	})
}

func (n *ntfyService) NotifyVideoCompleted(ctx context.Context, source, output string) error {
	message := fmt.Sprintf("✅ Edited: %s", filepath.Base(strings.TrimSpace(source)))
	if output = strings.TrimSpace(output); output != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, output)
	}
	return n.send(ctx, payload{
		title:   "trueedits - Video Ready",
		message: message,
		tags:    []string{"trueedits", "video", "completed"},
	})
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, processed, failed, cancelled int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{tags: []string{"trueedits", "batch", "completed"}}
	switch {
	case cancelled > 0:
		data.title = "trueedits - Batch Stopped"
		data.message = fmt.Sprintf("Stopped after %s: %d edited, %d failed", duration, processed, failed)
	case failed > 0:
		data.title = "trueedits - Batch Complete (with errors)"
		data.message = fmt.Sprintf("%d edited, %d failed in %s", processed, failed, duration)
		data.priority = "high"
	default:
		data.title = "trueedits - Batch Complete"
		data.message = fmt.Sprintf("%d edited in %s", processed, duration)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(" with ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "trueedits - Error",
		message:  builder.String(),
		tags:     []string{"trueedits", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "trueedits - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"trueedits", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int) error              { return nil }
func (noopService) NotifyVideoCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
