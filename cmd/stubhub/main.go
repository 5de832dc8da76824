//Command stubhub is a local stand-in for the Huddle backend: it serves the
//REST envelope for the mutation endpoints and a realtime endpoint that echoes
//content frames back, so the client core can be exercised without the real
//service.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/courtna/HuddleCore/lib/hd"
)

var (
	addr = flag.String("addr", ":8079", "listen address")
	fail = flag.Bool("fail", false, "reject every mutation, for exercising rollback")
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func main() {
	flag.Parse()
	r := mux.NewRouter()
	base := r.PathPrefix("/api/v1").Subrouter()
	base.HandleFunc("/posts/{id}/reaction", mutation).Methods("POST")
	base.HandleFunc("/posts/{id}/comments/{comment}/reaction", mutation).Methods("POST")
	base.HandleFunc("/channels/{id}/messages/{message}", mutation).Methods("DELETE")
	base.HandleFunc("/channels/{id}/mute", mutation).Methods("PUT")
	base.HandleFunc("/profile/online", mutation).Methods("PUT")
	base.HandleFunc("/feeds/{feed}/posts", feed).Methods("GET")
	base.HandleFunc("/channels", channels).Methods("GET")
	r.HandleFunc("/ws", realtime)
	log.Println("stubhub listening on", *addr)
	log.Fatal(http.ListenAndServe(*addr, r))
}

func envelope(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := hd.Response{Error: status != 200, Message: message, Status: status}
	if data != nil {
		resp.Data, _ = json.Marshal(data)
	}
	json.NewEncoder(w).Encode(resp)
}

func mutation(w http.ResponseWriter, r *http.Request) {
	if *fail {
		envelope(w, 400, "Computer says no", nil)
		return
	}
	envelope(w, 200, "", nil)
}

func feed(w http.ResponseWriter, r *http.Request) {
	var posts []hd.Post
	for i := 0; i < 25; i++ {
		posts = append(posts, hd.Post{
			ID:   hd.PostID(uuid.NewString()),
			By:   hd.User{ID: "stub", Name: "Stub User"},
			Time: time.Now().UTC(),
			Text: fmt.Sprintf("Stub post %d", i),
		})
	}
	envelope(w, 200, "", map[string]interface{}{"posts": posts, "has_next": true})
}

func channels(w http.ResponseWriter, r *http.Request) {
	chans := []hd.Channel{{
		ID:           "stub-channel",
		Members:      []hd.User{{ID: "stub", Name: "Stub User", Online: true}},
		LastActivity: time.Now().UTC(),
	}}
	envelope(w, 200, "", map[string]interface{}{"channels": chans, "has_next": false})
}

//realtime upgrades the connection and echoes every content frame back with a
//server-assigned identity, the way the production gateway confirms a send.
func realtime(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") == "" {
		http.Error(w, "missing token", 401)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade failed:", err)
		return
	}
	defer ws.Close()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if len(data) == 0 {
			continue //heartbeat
		}
		var out hd.OutboundFrame
		if err := json.Unmarshal(data, &out); err != nil || out.Type != hd.FrameContent {
			continue
		}
		echo := hd.Frame{
			ID:       hd.MessageID(uuid.NewString()),
			Channel:  out.Channel,
			Type:     hd.FrameContent,
			Content:  out.Content,
			SenderID: "self",
			CreateAt: time.Now().UTC().Format(time.RFC3339),
			Self:     true,
		}
		reply, _ := json.Marshal(echo)
		if err := ws.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}
