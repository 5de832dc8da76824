//Package lib is the Huddle client core: the optimistic mutation engine and
//the realtime message router, working over the paginated query cache.
package lib

import (
	"log"

	"github.com/courtna/HuddleCore/lib/auth"
	"github.com/courtna/HuddleCore/lib/cache"
	"github.com/courtna/HuddleCore/lib/conf"
	"github.com/courtna/HuddleCore/lib/db"
	"github.com/courtna/HuddleCore/lib/hd"
	"github.com/courtna/HuddleCore/lib/realtime"
	"github.com/courtna/HuddleCore/lib/transport"
)

//Notifier is the surrounding application's toast/indicator surface. The core
//calls it and moves on; no reply is expected.
type Notifier interface {
	Notify(n hd.Notification)
}

//API is the client core. The UI talks to it; it talks to the backend.
type API struct {
	Config   conf.Config
	client   *transport.Client
	rt       *realtime.Conn
	sessions *auth.Store
	store    *db.DB //nil when history persistence is disabled
	notifier Notifier

	posts    *cache.List[hd.Post]
	comments *cache.List[hd.Comment]
	channels *cache.List[hd.Channel]
	messages *cache.List[hd.Message]

	//mu serializes the synchronous cache-application pass of each mutation,
	//so no observer sees one denormalized copy updated and another stale.
	mu            chan struct{}
	self          hd.User
	activeChannel hd.ChannelID
	online        bool
}

//New assembles the client core. The realtime connection follows the session:
//login connects it, logout tears it down.
func New(config conf.Config, sessions *auth.Store, notifier Notifier) (api *API) {
	api = new(API)
	api.Config = config
	api.sessions = sessions
	api.notifier = notifier
	api.mu = make(chan struct{}, 1)
	api.posts = cache.NewList[hd.Post]()
	api.comments = cache.NewList[hd.Comment]()
	api.channels = cache.NewList[hd.Channel]()
	api.messages = cache.NewList[hd.Message]()
	api.client = transport.New(config.API.BaseURL, config.API.Timeout(), sessions)
	api.rt = realtime.New(realtime.Options{
		Endpoint:    config.Realtime.Endpoint,
		Heartbeat:   config.Realtime.Heartbeat(),
		Backoff:     config.Realtime.Backoff(),
		Grace:       config.Realtime.Grace(),
		MaxAttempts: config.Realtime.MaxAttempts,
	}, sessions, api.HandleFrame)
	if config.History.Path != "" {
		store, err := db.New(config.History.Path)
		if err != nil {
			log.Println("history store unavailable: ", err)
		} else {
			api.store = store
		}
	}
	go api.followSession(sessions.Subscribe())
	return
}

func (api *API) followSession(events <-chan auth.Event) {
	for event := range events {
		switch event {
		case auth.LoggedIn:
			api.rt.Connect()
		case auth.LoggedOut:
			api.rt.Disconnect()
		}
	}
}

//Start connects the realtime channel if a valid session already exists (eg.
//app relaunch with a stored token).
func (api *API) Start() {
	if api.sessions.Valid() {
		api.rt.Connect()
	}
}

//Close tears down the realtime connection and the history store.
func (api *API) Close() {
	api.rt.Disconnect()
	if api.store != nil {
		api.store.Close()
	}
}

//Realtime exposes the connection's lifecycle state, mostly for diagnostics.
func (api *API) Realtime() realtime.State {
	return api.rt.State()
}

//SetSelf identifies the local user; self-sent messages and the online toggle
//are keyed off it.
func (api *API) SetSelf(user hd.User) {
	api.lock()
	api.self = user
	api.unlock()
}

//SetActiveChannel records which chat screen (if any) the UI is showing, so
//the router knows when to raise the new-message indicator. Pass "" when the
//user leaves chat.
func (api *API) SetActiveChannel(id hd.ChannelID) {
	api.lock()
	api.activeChannel = id
	api.unlock()
}

func (api *API) lock() { api.mu <- struct{}{} }

func (api *API) unlock() { <-api.mu }

//notifyFailure surfaces a failed mutation: the server's message verbatim when
//there is one, a generic apology otherwise.
func (api *API) notifyFailure(resp hd.Response, err error) {
	message := "Something went wrong"
	if err == nil {
		message = resp.ErrorMessage()
	}
	if api.notifier != nil {
		api.notifier.Notify(hd.Notification{Message: message, Severity: hd.SeverityError})
	}
}

//failure converts a transport result into the error the initiating call
//returns, so the UI can clear its in-flight state. nil when the call worked.
func failure(resp hd.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.Failed() {
		return hd.APIerror{Reason: resp.ErrorMessage()}
	}
	return nil
}

//Cache keys. A post can appear in any number of feed keys plus its own
//detail key; mutations go through MutateAll so every copy moves together.
const keyChannels = "channels"

func keyFeed(feed string) string { return "feed:" + feed }

func keyPost(id hd.PostID) string { return "post:" + string(id) }

func keyComments(post hd.PostID) string { return "comments:" + string(post) }

func keyMessages(ch hd.ChannelID) string { return "messages:" + string(ch) }
