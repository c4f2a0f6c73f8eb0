package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shineum/send-email-message/internal/email"
)

func TestBuildSendMailRequest_BasicEmail(t *testing.T) {
	t.Parallel()

	msg := &email.Message{
		From:    "sender@example.com",
		To:      []string{"alice@example.com", "bob@example.com"},
		Subject: "Test Subject",
		Body:    "Hello, World!",
	}

	req := buildSendMailRequest("sender@example.com", msg)

	if req.Message.Subject != "Test Subject" {
		t.Errorf("Subject: got %q, want %q", req.Message.Subject, "Test Subject")
	}
	if req.Message.Body.ContentType != "text" {
		t.Errorf("Body.ContentType: got %q, want %q", req.Message.Body.ContentType, "text")
	}
	if req.Message.Body.Content != "Hello, World!" {
		t.Errorf("Body.Content: got %q, want %q", req.Message.Body.Content, "Hello, World!")
	}
	if len(req.Message.ToRecipients) != 2 {
		t.Fatalf("ToRecipients count: got %d, want 2", len(req.Message.ToRecipients))
	}
	if req.Message.ToRecipients[0].EmailAddress.Address != "alice@example.com" {
		t.Errorf("ToRecipients[0]: got %q, want %q", req.Message.ToRecipients[0].EmailAddress.Address, "alice@example.com")
	}
	if req.Message.ToRecipients[1].EmailAddress.Address != "bob@example.com" {
		t.Errorf("ToRecipients[1]: got %q, want %q", req.Message.ToRecipients[1].EmailAddress.Address, "bob@example.com")
	}
	if len(req.Message.CcRecipients) != 0 {
		t.Errorf("CcRecipients: got %d, want 0", len(req.Message.CcRecipients))
	}
	if req.Message.From != nil {
		t.Errorf("From: got %+v, want nil when message From matches the mailbox", req.Message.From)
	}
	if !req.SaveToSentItems {
		t.Error("SaveToSentItems should be true")
	}
}

func TestBuildSendMailRequest_FromDiffersFromMailbox(t *testing.T) {
	t.Parallel()

	msg := &email.Message{
		From:    "alerts@example.com",
		To:      []string{"user@example.com"},
		Subject: "Send as",
		Body:    "Body",
	}

	req := buildSendMailRequest("mailbox@example.com", msg)

	if req.Message.From == nil {
		t.Fatal("From: got nil, want alerts@example.com")
	}
	if req.Message.From.EmailAddress.Address != "alerts@example.com" {
		t.Errorf("From: got %q, want %q", req.Message.From.EmailAddress.Address, "alerts@example.com")
	}
}

func TestBuildSendMailRequest_WithCcAndBcc(t *testing.T) {
	t.Parallel()

	msg := &email.Message{
		To:      []string{"alice@example.com"},
		Cc:      []string{"carol@example.com", "dave@example.com"},
		Bcc:     []string{"erin@example.com"},
		Subject: "With copies",
		Body:    "Hello",
	}

	req := buildSendMailRequest("", msg)

	if len(req.Message.CcRecipients) != 2 {
		t.Fatalf("CcRecipients count: got %d, want 2", len(req.Message.CcRecipients))
	}
	if req.Message.CcRecipients[0].EmailAddress.Address != "carol@example.com" {
		t.Errorf("CcRecipients[0]: got %q, want %q", req.Message.CcRecipients[0].EmailAddress.Address, "carol@example.com")
	}
	if len(req.Message.BccRecipients) != 1 {
		t.Fatalf("BccRecipients count: got %d, want 1", len(req.Message.BccRecipients))
	}
	if req.Message.BccRecipients[0].EmailAddress.Address != "erin@example.com" {
		t.Errorf("BccRecipients[0]: got %q, want %q", req.Message.BccRecipients[0].EmailAddress.Address, "erin@example.com")
	}
}

func TestBuildSendMailRequest_OmitsEmptyCopyLists(t *testing.T) {
	t.Parallel()

	req := buildSendMailRequest("", &email.Message{To: []string{"user@example.com"}})
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("JSON marshal error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("JSON unmarshal error: %v", err)
	}
	for _, key := range []string{"ccRecipients", "bccRecipients", "from"} {
		if _, ok := raw["message"][key]; ok {
			t.Errorf("message should omit %q when empty", key)
		}
	}
}

func TestGraphProvider_Name(t *testing.T) {
	t.Parallel()

	p := &GraphProvider{}
	if p.Name() != "msgraph" {
		t.Errorf("Name: got %q, want %q", p.Name(), "msgraph")
	}
}

// newTokenServer returns a token endpoint that always issues the given token.
func newTokenServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: token, ExpiresIn: 3600})
	}))
	t.Cleanup(server.Close)
	return server
}

// newTestProvider wires a provider to the test servers with millisecond backoff.
func newTestProvider(graphServer, tokenServer *httptest.Server) *GraphProvider {
	p := newWithOverrides(
		GraphProviderConfig{Sender: "s@example.com", TenantID: "t", ClientID: "c", ClientSecret: "s"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)
	p.retryDelay = time.Millisecond
	return p
}

func testMessage() *email.Message {
	return &email.Message{
		From:    "s@example.com",
		To:      []string{"user@example.com"},
		Subject: "Test",
		Body:    "Body",
	}
}

func TestGraphProvider_SendSuccess(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, "test-token")

	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Authorization header: got %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type header: got %q, want %q", r.Header.Get("Content-Type"), "application/json")
		}

		var body sendMailRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if body.Message.Subject != "Test" {
			t.Errorf("Subject in body: got %q, want %q", body.Message.Subject, "Test")
		}
		if body.Message.Body.Content != "Body" {
			t.Errorf("Content in body: got %q, want %q", body.Message.Body.Content, "Body")
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGraphProvider_PermanentError(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, "token")

	var graphCallCount atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		graphCallCount.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(graphErrorResponse{
			Error: graphError{Code: "BadRequest", Message: "Invalid recipient"},
		})
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	err := p.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error for 400 response, got nil")
	}
	if graphCallCount.Load() != 1 {
		t.Errorf("graph call count: got %d, want 1 (400 is not retried)", graphCallCount.Load())
	}
}

func TestGraphProvider_ForbiddenError(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, "token")

	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(graphErrorResponse{
			Error: graphError{Code: "Forbidden", Message: "Insufficient permissions"},
		})
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	err := p.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error for 403 response, got nil")
	}

	sendErr, ok := err.(*sendError)
	if !ok {
		t.Fatalf("expected *sendError, got %T", err)
	}
	if !sendErr.permanent {
		t.Error("403 error should be classified as permanent")
	}
	if sendErr.message != "Insufficient permissions" {
		t.Errorf("message: got %q, want %q", sendErr.message, "Insufficient permissions")
	}
}

func TestGraphProvider_RetryOn5xx(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, "token")

	var graphCallCount atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := graphCallCount.Add(1)
		if count <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(graphErrorResponse{
				Error: graphError{Code: "ServiceUnavailable", Message: "Try again"},
			})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.Send(ctx, testMessage()); err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}

	if graphCallCount.Load() != 3 {
		t.Errorf("graph call count: got %d, want 3 (2 failures + 1 success)", graphCallCount.Load())
	}
}

func TestGraphProvider_AllRetriesExhausted(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, "token")

	var graphCallCount atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		graphCallCount.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	err := p.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error after all retries exhausted")
	}
	if graphCallCount.Load() != maxRetries+1 {
		t.Errorf("graph call count: got %d, want %d", graphCallCount.Load(), maxRetries+1)
	}
}

func TestGraphProvider_RetryOn401WithTokenRefresh(t *testing.T) {
	t.Parallel()

	var tokenCallCount atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := tokenCallCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "token-" + string(rune('0'+count)),
			ExpiresIn:   3600,
		})
	}))
	defer tokenServer.Close()

	var graphCallCount atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := graphCallCount.Add(1)
		if count == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(graphErrorResponse{
				Error: graphError{Code: "Unauthorized", Message: "Token expired"},
			})
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-2" {
			t.Errorf("Authorization after refresh: got %q, want %q", got, "Bearer token-2")
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	if err := p.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("expected success after token refresh, got: %v", err)
	}

	if graphCallCount.Load() != 2 {
		t.Errorf("graph call count: got %d, want 2", graphCallCount.Load())
	}
	if tokenCallCount.Load() != 2 {
		t.Errorf("token call count: got %d, want 2", tokenCallCount.Load())
	}
}

func TestGraphProvider_RateLimitWithRetryAfter(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, "token")

	var graphCallCount atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := graphCallCount.Add(1)
		if count == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(graphErrorResponse{
				Error: graphError{Code: "TooManyRequests", Message: "Rate limited"},
			})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.Send(ctx, testMessage()); err != nil {
		t.Fatalf("expected success after rate limit retry, got: %v", err)
	}

	if graphCallCount.Load() != 2 {
		t.Errorf("graph call count: got %d, want 2", graphCallCount.Load())
	}
}

func TestGraphProvider_ContextCancellation(t *testing.T) {
	t.Parallel()

	tokenServer := newTokenServer(t, "token")

	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer graphServer.Close()

	p := newTestProvider(graphServer, tokenServer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Send(ctx, testMessage()); err == nil {
		t.Error("expected error for cancelled context, got nil")
	}
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		permanent  bool
		transient  bool
	}{
		{name: "400 Bad Request", statusCode: 400, permanent: true, transient: false},
		{name: "401 Unauthorized", statusCode: 401, permanent: false, transient: true},
		{name: "403 Forbidden", statusCode: 403, permanent: true, transient: false},
		{name: "404 Not Found", statusCode: 404, permanent: true, transient: false},
		{name: "429 Too Many Requests", statusCode: 429, permanent: false, transient: true},
		{name: "500 Internal Server Error", statusCode: 500, permanent: false, transient: true},
		{name: "502 Bad Gateway", statusCode: 502, permanent: false, transient: true},
		{name: "503 Service Unavailable", statusCode: 503, permanent: false, transient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := classifyError(tt.statusCode, "test message", "")
			if err.permanent != tt.permanent {
				t.Errorf("permanent: got %v, want %v", err.permanent, tt.permanent)
			}
			if err.transient != tt.transient {
				t.Errorf("transient: got %v, want %v", err.transient, tt.transient)
			}
		})
	}
}

func TestRetryAfterDelay(t *testing.T) {
	t.Parallel()

	p := &GraphProvider{retryDelay: time.Second}

	tests := []struct {
		header  string
		attempt int
		want    time.Duration
	}{
		{header: "5", attempt: 1, want: 5 * time.Second},
		{header: "", attempt: 2, want: 2 * time.Second},
		{header: "soon", attempt: 1, want: 1 * time.Second},
		{header: "0", attempt: 3, want: 4 * time.Second},
	}

	for _, tt := range tests {
		if got := p.retryAfterDelay(tt.header, tt.attempt); got != tt.want {
			t.Errorf("retryAfterDelay(%q, %d): got %v, want %v", tt.header, tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 1 * time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
	}

	for _, tt := range tests {
		got := backoffDelay(baseRetryDelay, tt.attempt)
		if got != tt.want {
			t.Errorf("backoffDelay(%d): got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSendError_Error(t *testing.T) {
	t.Parallel()

	err := &sendError{
		message:    "test error",
		statusCode: 500,
	}

	expected := "Graph API error (HTTP 500): test error"
	if err.Error() != expected {
		t.Errorf("Error(): got %q, want %q", err.Error(), expected)
	}
}
