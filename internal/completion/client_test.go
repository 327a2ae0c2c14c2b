package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCompleteSendsSystemPromptAndHistory(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Masih tersedia kak.  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", srv.URL+"/", "gpt-test", 5*time.Second, 0)
	reply, err := c.Complete(context.Background(), Request{
		System:   "Anda asisten showroom.",
		Messages: []Message{{Role: RoleUser, Content: "avanza ada?"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Masih tersedia kak." {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "gpt-test" || len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("request = %+v", got)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"http error", http.StatusServiceUnavailable, `overloaded`, func(err error) bool {
			var he *HTTPError
			return errors.As(err, &he) && he.Status == http.StatusServiceUnavailable
		}},
		{"empty choices", http.StatusOK, `{"choices":[]}`, func(err error) bool {
			return errors.Is(err, ErrEmptyCompletion)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIClient("", srv.URL, "m", time.Second, 0).Complete(context.Background(), Request{})
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}
