package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trueedits/internal/config"
	"trueedits/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBatchStarted(context.Background(), 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title, message, tags, priority string
}

func newCapturingService(t *testing.T, status int) (notifications.Service, *[]captured) {
	t.Helper()
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	return notifications.NewService(&cfg), &got
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name   string
		send   func(notifications.Service) error
		expect captured
	}{
		{
			name: "batch started",
			send: func(s notifications.Service) error { return s.NotifyBatchStarted(context.Background(), 1) },
			expect: captured{
				title:   "trueedits - Batch Started",
				message: "Editing 1 video",
				tags:    "trueedits,batch,started",
			},
		},
		{
			name: "video completed",
			send: func(s notifications.Service) error {
				return s.NotifyVideoCompleted(context.Background(), "/in/clip.mp4", "/out/clip_Edited.mp4")
			},
			expect: captured{
				title:   "trueedits - Video Ready",
				message: "✅ Edited: clip.mp4\nFile: /out/clip_Edited.mp4",
				tags:    "trueedits,video,completed",
			},
		},
		{
			name: "batch completed",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), 2, 0, 0, 90*time.Second)
			},
			expect: captured{
				title:   "trueedits - Batch Complete",
				message: "2 edited in 1m30s",
				tags:    "trueedits,batch,completed",
			},
		},
		{
			name: "batch completed with errors",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), 1, 1, 0, 5*time.Second)
			},
			expect: captured{
				title:    "trueedits - Batch Complete (with errors)",
				message:  "1 edited, 1 failed in 5s",
				tags:     "trueedits,batch,completed",
				priority: "high",
			},
		},
		{
			name: "batch stopped",
			send: func(s notifications.Service) error {
				return s.NotifyBatchCompleted(context.Background(), 1, 0, 1, 2*time.Second)
			},
			expect: captured{
				title:   "trueedits - Batch Stopped",
				message: "Stopped after 2s: 1 edited, 0 failed",
				tags:    "trueedits,batch,completed",
			},
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("ffmpeg exited 1"), "clip.mp4")
			},
			expect: captured{
				title:    "trueedits - Error",
				message:  "❌ Error with clip.mp4: ffmpeg exited 1",
				tags:     "trueedits,error,alert",
				priority: "high",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, got := newCapturingService(t, http.StatusOK)
			if err := tt.send(svc); err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			if (*got)[0] != tt.expect {
				t.Fatalf("unexpected payload %+v, want %+v", (*got)[0], tt.expect)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	svc, _ := newCapturingService(t, http.StatusForbidden)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for rejected request")
	}
}
