package videogen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateQueueFlow(t *testing.T) {
	polls := 0
	var gotBody map[string]any

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/fal-ai/sora-2/text-to-video", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Key test-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"request_id":   "req-1",
			"status_url":   server.URL + "/status/req-1",
			"response_url": server.URL + "/response/req-1",
		})
	})
	mux.HandleFunc("/status/req-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := "IN_PROGRESS"
		if polls >= 3 {
			status = "COMPLETED"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	mux.HandleFunc("/response/req-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"video":    map[string]string{"url": "https://fal.media/files/out.mp4"},
			"video_id": "vid-1",
		})
	})

	client := NewClient(server.URL, "test-key")
	client.pollInterval = time.Millisecond

	video, err := client.Generate(context.Background(), "a cat playing with yarn", Options{
		Resolution:  "720p",
		AspectRatio: "16:9",
		Duration:    4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if video.URL != "https://fal.media/files/out.mp4" {
		t.Errorf("unexpected video url %q", video.URL)
	}
	if video.VideoID != "vid-1" {
		t.Errorf("unexpected video id %q", video.VideoID)
	}
	if polls < 3 {
		t.Errorf("expected at least 3 status polls, got %d", polls)
	}

	if gotBody["prompt"] != "a cat playing with yarn" {
		t.Errorf("unexpected prompt %#v", gotBody["prompt"])
	}
	if gotBody["resolution"] != "720p" || gotBody["aspect_ratio"] != "16:9" {
		t.Errorf("format options not sent: %#v", gotBody)
	}
	if int(gotBody["duration"].(float64)) != 4 {
		t.Errorf("unexpected duration %#v", gotBody["duration"])
	}
}

func TestGenerateErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{http.StatusUnauthorized, IsAuthError, "auth"},
		{http.StatusUnprocessableEntity, IsValidationError, "validation"},
		{http.StatusTooManyRequests, IsRateLimited, "rate-limit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-key")
			_, err := client.Generate(context.Background(), "prompt", Options{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !tc.check(err) {
				t.Errorf("expected %s classification for %v", tc.name, err)
			}
			for _, other := range cases {
				if other.status != tc.status && other.check(err) {
					t.Errorf("error %v misclassified as %s", err, other.name)
				}
			}
		})
	}
}

func TestGenerateEmptyResult(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/fal-ai/sora-2/text-to-video", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"request_id":   "req-2",
			"status_url":   server.URL + "/status/req-2",
			"response_url": server.URL + "/response/req-2",
		})
	})
	mux.HandleFunc("/status/req-2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "COMPLETED"})
	})
	mux.HandleFunc("/response/req-2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"video_id": "vid-2"})
	})

	client := NewClient(server.URL, "test-key")
	client.pollInterval = time.Millisecond

	_, err := client.Generate(context.Background(), "prompt", Options{})
	if err == nil {
		t.Fatal("expected error for missing video")
	}
}
