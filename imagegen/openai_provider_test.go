package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// newOpenAIServer fakes the two OpenAI endpoints the studio uses. Handlers
// receive the decoded request body.
func newOpenAIServer(t *testing.T, chat, images func(w http.ResponseWriter, body map[string]any)) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/chat/completions":
			chat(w, body)
		case "/v1/images/generations":
			images(w, body)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testOpenAIOptions(url string) OpenAIOptions {
	return OpenAIOptions{APIKey: "sk-test", BaseURL: url + "/v1"}
}

func chatReply(content string) func(http.ResponseWriter, map[string]any) {
	return func(w http.ResponseWriter, _ map[string]any) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}
}

func apiError(status int, code, message string) func(http.ResponseWriter, map[string]any) {
	return func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": message, "type": "invalid_request_error", "code": code},
		})
	}
}

func unused(t *testing.T) func(http.ResponseWriter, map[string]any) {
	return func(w http.ResponseWriter, _ map[string]any) {
		t.Error("endpoint should not be called")
	}
}

func TestOpenAIDescriber_Describe(t *testing.T) {
	var sent map[string]any
	srv, _ := newOpenAIServer(t, func(w http.ResponseWriter, body map[string]any) {
		sent = body
		chatReply("Oval face, warm brown skin, short curly black hair")(w, body)
	}, unused(t))

	d, err := NewOpenAIDescriber(testOpenAIOptions(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIDescriber() error = %v", err)
	}

	got, err := d.Describe(context.Background(), testSource)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if got != "Oval face, warm brown skin, short curly black hair" {
		t.Errorf("Describe() = %q", got)
	}
	if sent["model"] != "gpt-4o" || sent["max_tokens"] != float64(300) {
		t.Errorf("request model/max_tokens = %v/%v", sent["model"], sent["max_tokens"])
	}
	raw, _ := json.Marshal(sent["messages"])
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Error("request should carry the photo as a data URI")
	}
}

func TestOpenAIDescriber_Refusal(t *testing.T) {
	srv, _ := newOpenAIServer(t, chatReply("I'm sorry, I can't help identify people."), unused(t))
	d, _ := NewOpenAIDescriber(testOpenAIOptions(srv.URL))

	got, err := d.Describe(context.Background(), testSource)
	if !IsKind(err, KindPrivacyRefusal) {
		t.Fatalf("err = %v, want PRIVACY_REFUSAL", err)
	}
	if got != "" {
		t.Errorf("refused text returned: %q", got)
	}
}

func TestOpenAIDescriber_Failures(t *testing.T) {
	tests := []struct {
		name string
		chat func(http.ResponseWriter, map[string]any)
		want ErrorKind
	}{
		{"empty content", chatReply("   "), KindUnknown},
		{"bad key", apiError(http.StatusUnauthorized, "invalid_api_key", "Incorrect API key provided"), KindInvalidCredential},
		{"rate limited", apiError(http.StatusTooManyRequests, "rate_limit_exceeded", "slow down"), KindQuotaExceeded},
		{"server error", apiError(http.StatusInternalServerError, "server_error", "oops"), KindUnknown},
		{"no choices", func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
		}, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newOpenAIServer(t, tt.chat, unused(t))
			d, _ := NewOpenAIDescriber(testOpenAIOptions(srv.URL))

			_, err := d.Describe(context.Background(), testSource)
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestOpenAIProvider_SynthesizeFromDescription(t *testing.T) {
	png := []byte("\x89PNG fake")
	var sent map[string]any
	srv, _ := newOpenAIServer(t, unused(t), func(w http.ResponseWriter, body map[string]any) {
		sent = body
		json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	})

	p, err := NewOpenAIProvider(testOpenAIOptions(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}

	img, err := p.SynthesizeFromDescription(context.Background(), "round face", "the prompt", SizeTall)
	if err != nil {
		t.Fatalf("SynthesizeFromDescription() error = %v", err)
	}
	if string(img.Data) != string(png) || img.MIMEType != "image/png" {
		t.Errorf("image = %q (%s)", img.Data, img.MIMEType)
	}
	want := map[string]any{
		"model":           "dall-e-3",
		"size":            "1024x1792",
		"quality":         "hd",
		"response_format": "b64_json",
		"n":               float64(1),
		"prompt":          "the prompt",
	}
	for k, v := range want {
		if sent[k] != v {
			t.Errorf("request %s = %v, want %v", k, sent[k], v)
		}
	}
}

func TestOpenAIProvider_EmptyDescriptionMakesNoCall(t *testing.T) {
	srv, calls := newOpenAIServer(t, unused(t), unused(t))
	p, _ := NewOpenAIProvider(testOpenAIOptions(srv.URL))

	_, err := p.SynthesizeFromDescription(context.Background(), " ", "prompt", SizeSquare)
	if KindOf(err) != KindUnknown {
		t.Errorf("err = %v, want UNKNOWN", err)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Errorf("made %d HTTP calls, want 0", *calls)
	}
}

func TestOpenAIProvider_Failures(t *testing.T) {
	tests := []struct {
		name   string
		images func(http.ResponseWriter, map[string]any)
		want   ErrorKind
	}{
		{"content policy", apiError(http.StatusBadRequest, "content_policy_violation", "rejected"), KindSafetyRefusal},
		{"quota", apiError(http.StatusTooManyRequests, "insufficient_quota", "no money"), KindQuotaExceeded},
		{"empty data", func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(map[string]any{"created": 1, "data": []any{}})
		}, KindNoImageReturned},
		{"empty b64", func(w http.ResponseWriter, _ map[string]any) {
			json.NewEncoder(w).Encode(map[string]any{"created": 1, "data": []map[string]any{{"b64_json": ""}}})
		}, KindNoImageReturned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newOpenAIServer(t, unused(t), tt.images)
			p, _ := NewOpenAIProvider(testOpenAIOptions(srv.URL))

			_, err := p.SynthesizeFromDescription(context.Background(), "round face", "prompt", SizeSquare)
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIOptions{}); err == nil {
		t.Error("NewOpenAIProvider() without key should fail")
	}
	if _, err := NewOpenAIDescriber(OpenAIOptions{}); err == nil {
		t.Error("NewOpenAIDescriber() without key should fail")
	}
}
