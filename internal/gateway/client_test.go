package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// managerStub is a minimal manager API. Each test configures the handlers it
// needs; the auth endpoint hands out t1, t2, ... and counts attempts.
type managerStub struct {
	mu        sync.Mutex
	authCalls int
	rejectAll bool
	handle    func(w http.ResponseWriter, r *http.Request, token string)
}

func (s *managerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/security/user/authenticate" {
		s.mu.Lock()
		s.authCalls++
		n := s.authCalls
		reject := s.rejectAll
		s.mu.Unlock()
		if reject {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if user, _, ok := r.BasicAuth(); !ok || user == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"token": fmt.Sprintf("t%d", n)}})
		return
	}
	token := r.Header.Get("Authorization")
	s.handle(w, r, token)
}

func (s *managerStub) auths() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authCalls
}

func newTestClient(t *testing.T, stub *managerStub) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{
		ManagerURL:  server.URL,
		Credentials: Credentials{Username: "warden", Password: "secret"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func writeAgents(w http.ResponseWriter, agents ...Agent) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
		"affected_items":       agents,
		"total_affected_items": len(agents),
	}})
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("wazuh.example.com:55000")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}
	if u.Host != "wazuh.example.com:55000" {
		t.Fatalf("host = %q", u.Host)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("   "); err == nil {
		t.Fatalf("empty url should fail")
	}
}

func TestClient_AuthenticatesThenLists(t *testing.T) {
	stub := &managerStub{}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
		if token != "Bearer t1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/agents" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("limit"); got != "500" {
			t.Errorf("limit = %q, want 500", got)
		}
		writeAgents(w, Agent{ID: "001", Name: "web-01", Status: StatusActive})
	}
	client, _ := newTestClient(t, stub)

	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	page, err := client.ListAgents(context.Background(), AgentQuery{})
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if page.Total != 1 || page.Agents[0].Name != "web-01" {
		t.Fatalf("page = %+v", page)
	}
	if stub.auths() != 1 {
		t.Fatalf("auth calls = %d, want 1", stub.auths())
	}
}

func TestClient_LazyAuthWithoutExplicitAuthenticate(t *testing.T) {
	stub := &managerStub{}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
		if token == "Bearer t1" {
			writeAgents(w)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}
	client, _ := newTestClient(t, stub)

	if _, err := client.ListAgents(context.Background(), AgentQuery{}); err != nil {
		t.Fatalf("ListAgents without prior Authenticate: %v", err)
	}
	if stub.auths() != 1 {
		t.Fatalf("auth calls = %d, want 1", stub.auths())
	}
}

func TestClient_ReauthenticatesOnceAndReplays(t *testing.T) {
	stub := &managerStub{}
	var requests int
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
		requests++
		// t1 is expired from the start; only the refreshed t2 works.
		if token != "Bearer t2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeAgents(w, Agent{ID: "001"})
	}
	client, _ := newTestClient(t, stub)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	page, err := client.ListAgents(context.Background(), AgentQuery{})
	if err != nil {
		t.Fatalf("ListAgents after expiry: %v", err)
	}
	if len(page.Agents) != 1 {
		t.Fatalf("replayed request returned %+v", page)
	}
	if requests != 2 {
		t.Fatalf("manager saw %d list requests, want 2 (original + one replay)", requests)
	}
	if stub.auths() != 2 {
		t.Fatalf("auth calls = %d, want 2 (initial + refresh)", stub.auths())
	}
}

func TestClient_SecondRejectionIsAuthInvalid(t *testing.T) {
	stub := &managerStub{}
	var requests int
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}
	client, _ := newTestClient(t, stub)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	_, err := client.ListAgents(context.Background(), AgentQuery{})
	if KindOf(err) != KindAuthInvalid {
		t.Fatalf("error kind = %v (%v), want AuthInvalid", KindOf(err), err)
	}
	// One original attempt, one replay after re-auth, then give up.
	if requests != 2 {
		t.Fatalf("manager saw %d requests, want 2", requests)
	}
}

func TestClient_RejectedCredentialsAreAuthInvalid(t *testing.T) {
	stub := &managerStub{rejectAll: true}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {}
	client, _ := newTestClient(t, stub)

	err := client.Authenticate(context.Background())
	if KindOf(err) != KindAuthInvalid {
		t.Fatalf("error kind = %v (%v), want AuthInvalid", KindOf(err), err)
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusNotFound, KindNotFound},
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
		{http.StatusForbidden, KindAuthInvalid},
	}
	for _, tt := range tests {
		stub := &managerStub{}
		status := tt.status
		stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
			w.WriteHeader(status)
		}
		client, _ := newTestClient(t, stub)
		if err := client.Authenticate(context.Background()); err != nil {
			t.Fatalf("Authenticate: %v", err)
		}

		_, err := client.ListAgents(context.Background(), AgentQuery{})
		if KindOf(err) != tt.want {
			t.Fatalf("status %d classified as %v (%v), want %v", tt.status, KindOf(err), err, tt.want)
		}
	}
}

func TestClient_MalformedBodyIsParseError(t *testing.T) {
	stub := &managerStub{}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}
	client, _ := newTestClient(t, stub)
	if err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	_, err := client.ListAgents(context.Background(), AgentQuery{})
	if KindOf(err) != KindParse {
		t.Fatalf("error kind = %v (%v), want Parse", KindOf(err), err)
	}
}

func TestClient_UnreachableManagerIsConnect(t *testing.T) {
	stub := &managerStub{}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {}
	client, server := newTestClient(t, stub)
	server.Close()

	err := client.Authenticate(context.Background())
	if KindOf(err) != KindConnect {
		t.Fatalf("error kind = %v (%v), want Connect", KindOf(err), err)
	}
}

func TestClient_MissingIndexerIsValidation(t *testing.T) {
	stub := &managerStub{}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {}
	client, _ := newTestClient(t, stub)

	_, err := client.QueryEvents(context.Background(), EventQuery{Minutes: 15})
	if KindOf(err) != KindValidation {
		t.Fatalf("error kind = %v (%v), want Validation", KindOf(err), err)
	}
}

func TestClient_TimeoutRetriesThenRecovers(t *testing.T) {
	var mu sync.Mutex
	listCalls := 0
	stub := &managerStub{}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
		mu.Lock()
		listCalls++
		n := listCalls
		mu.Unlock()
		if n == 1 {
			// Outlast the client timeout so the first attempt times out.
			time.Sleep(300 * time.Millisecond)
			return
		}
		writeAgents(w, Agent{ID: "001", Name: "web-01"})
	}
	client, _ := newTestClient(t, stub)
	client.http.Timeout = 50 * time.Millisecond

	page, err := client.ListAgents(context.Background(), AgentQuery{})
	if err != nil {
		t.Fatalf("ListAgents after one timeout: %v", err)
	}
	if len(page.Agents) != 1 || page.Agents[0].ID != "001" {
		t.Fatalf("agents = %+v", page.Agents)
	}
	mu.Lock()
	n := listCalls
	mu.Unlock()
	if n != 2 {
		t.Fatalf("list attempts = %d, want 2", n)
	}
}

func TestClient_PersistentTimeoutStopsAfterMaxAttempts(t *testing.T) {
	var mu sync.Mutex
	listCalls := 0
	stub := &managerStub{}
	stub.handle = func(w http.ResponseWriter, r *http.Request, token string) {
		mu.Lock()
		listCalls++
		mu.Unlock()
		time.Sleep(300 * time.Millisecond)
	}
	client, _ := newTestClient(t, stub)
	client.http.Timeout = 50 * time.Millisecond

	_, err := client.ListAgents(context.Background(), AgentQuery{})
	if KindOf(err) != KindTimeout {
		t.Fatalf("KindOf(err) = %v, want KindTimeout (err %v)", KindOf(err), err)
	}
	mu.Lock()
	n := listCalls
	mu.Unlock()
	if n != maxAttempts {
		t.Fatalf("list attempts = %d, want %d", n, maxAttempts)
	}
}

func TestSleepBackoff_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepBackoff(ctx, 4); err == nil {
		t.Fatalf("sleepBackoff ignored a cancelled context")
	}
}
