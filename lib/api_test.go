package lib

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/courtna/HuddleCore/lib/auth"
	"github.com/courtna/HuddleCore/lib/cache"
	"github.com/courtna/HuddleCore/lib/conf"
	"github.com/courtna/HuddleCore/lib/hd"
)

//recordingNotifier captures everything the core surfaces to the application.
type recordingNotifier struct {
	mu    sync.Mutex
	notes []hd.Notification
}

func (r *recordingNotifier) Notify(n hd.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) all() []hd.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]hd.Notification, len(r.notes))
	copy(out, r.notes)
	return out
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

//fakeBackend accepts any request, records it, and answers with the envelope;
//flip failing to make every mutation a server-side refusal.
type fakeBackend struct {
	server *httptest.Server

	mu       sync.Mutex
	failing  bool
	requests []recordedRequest
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{r.Method, r.URL.Path, strings.TrimSpace(string(body))})
		failing := f.failing
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if failing {
			w.WriteHeader(400)
			json.NewEncoder(w).Encode(hd.Response{Error: true, Message: "Computer says no", Status: 400})
			return
		}
		json.NewEncoder(w).Encode(hd.Response{Status: 200})
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBackend) setFailing(failing bool) {
	f.mu.Lock()
	f.failing = failing
	f.mu.Unlock()
}

func (f *fakeBackend) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

//newTestAPI builds a core against the fake backend, with an in-memory
//history store and no live realtime connection.
func newTestAPI(t *testing.T) (*API, *fakeBackend, *recordingNotifier) {
	t.Helper()
	backend := newFakeBackend(t)
	notifier := &recordingNotifier{}
	config := conf.Default()
	config.API.BaseURL = backend.server.URL + "/"
	config.API.TimeoutSecs = 5
	config.Realtime.Endpoint = "ws://127.0.0.1:1/ws" //never dialled in these tests
	config.History.Path = ":memory:"
	api := New(config, auth.NewStore(), notifier)
	t.Cleanup(api.Close)
	api.SetSelf(hd.User{ID: "self", Name: "Me"})
	return api, backend, notifier
}

func seedPost(api *API, key string, post hd.Post) {
	api.posts.AppendPage(key, cache.CursorPage([]hd.Post{post}, 0, false))
}

func seedChannel(api *API, ch hd.Channel) {
	api.channels.AppendPage(keyChannels, cache.CursorPage([]hd.Channel{ch}, 0, false))
}

func seedMessage(api *API, ch hd.ChannelID, m hd.Message) {
	api.messages.AppendItem(keyMessages(ch), m)
}

func findPost(t *testing.T, api *API, id hd.PostID) hd.Post {
	t.Helper()
	post, ok := api.posts.FindAny(func(p hd.Post) bool { return p.ID == id })
	if !ok {
		t.Fatalf("Post %s vanished from the cache", id)
	}
	return post
}

func findChannel(t *testing.T, api *API, id hd.ChannelID) hd.Channel {
	t.Helper()
	ch, ok := api.channels.Find(keyChannels, func(c hd.Channel) bool { return c.ID == id })
	if !ok {
		t.Fatalf("Channel %s vanished from the cache", id)
	}
	return ch
}

var testTime = time.Date(2018, 4, 1, 12, 0, 0, 0, time.UTC)
