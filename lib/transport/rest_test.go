package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/courtna/HuddleCore/lib/hd"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/ok", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(hd.Response{Data: json.RawMessage(`{"value":42}`), Status: 200})
	})
	r.HandleFunc("/denied", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(403)
		json.NewEncoder(w).Encode(hd.Response{Error: true, Message: "You can't do that", Status: 403})
	})
	r.HandleFunc("/broken", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte("<html>Internal Server Error</html>"))
	})
	r.HandleFunc("/softfail", func(w http.ResponseWriter, req *http.Request) {
		//HTTP 200 but the envelope says otherwise
		json.NewEncoder(w).Encode(hd.Response{Error: true, Message: "Quota exceeded", Status: 200})
	})
	r.HandleFunc("/echo-auth", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(hd.Response{Message: req.Header.Get("Authorization"), Status: 200})
	})
	return httptest.NewServer(r)
}

func TestEnvelopeDecoding(t *testing.T) {
	server := fakeBackend(t)
	defer server.Close()
	c := New(server.URL, time.Second, nil)
	resp, err := c.Get("ok")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Failed() {
		t.Fatalf("A clean 200 envelope must not be a failure: %+v", resp)
	}
	var payload struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil || payload.Value != 42 {
		t.Fatalf("Data payload mangled: %v %+v", err, payload)
	}
}

func TestFailures(t *testing.T) {
	server := fakeBackend(t)
	defer server.Close()
	c := New(server.URL, time.Second, nil)
	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"denied", 403, "You can't do that"},
		{"broken", 500, "Something went wrong"},
		{"softfail", 200, "Quota exceeded"},
	}
	for _, tt := range tests {
		resp, err := c.Get(tt.path)
		if err != nil {
			t.Fatalf("%s: transport error %v", tt.path, err)
		}
		if !resp.Failed() {
			t.Fatalf("%s: expected a failure envelope, got %+v", tt.path, resp)
		}
		if resp.Status != tt.status {
			t.Fatalf("%s: expected status %d, got %d", tt.path, tt.status, resp.Status)
		}
		if resp.ErrorMessage() != tt.message {
			t.Fatalf("%s: expected message %q, got %q", tt.path, tt.message, resp.ErrorMessage())
		}
	}
}

func TestBearerTokenReadAtRequestTime(t *testing.T) {
	server := fakeBackend(t)
	defer server.Close()
	token := staticToken("first")
	tokens := &rotatingToken{current: string(token)}
	c := New(server.URL, time.Second, tokens)
	resp, _ := c.Get("echo-auth")
	if resp.Message != "Bearer first" {
		t.Fatalf("Expected bearer header from current token, got %q", resp.Message)
	}
	tokens.current = "second"
	resp, _ = c.Get("echo-auth")
	if resp.Message != "Bearer second" {
		t.Fatalf("A refreshed token must be picked up on the next request, got %q", resp.Message)
	}
}

type rotatingToken struct {
	current string
}

func (r *rotatingToken) Token() string { return r.current }

func TestNoTokenNoHeader(t *testing.T) {
	server := fakeBackend(t)
	defer server.Close()
	c := New(server.URL, time.Second, staticToken(""))
	resp, _ := c.Get("echo-auth")
	if resp.Message != "" {
		t.Fatalf("An empty token must not produce an Authorization header, got %q", resp.Message)
	}
}

func TestTransportErrorSurfaced(t *testing.T) {
	c := New("http://127.0.0.1:1", 50*time.Millisecond, nil)
	if _, err := c.Get("anything"); err == nil {
		t.Fatalf("Expected a connection error")
	}
}
