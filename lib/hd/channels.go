package hd

import (
	"encoding/json"
	"time"
)

//ChannelID identifies a conversation.
type ChannelID string

//MessageID identifies a chat message within a channel. Messages are deduplicated by (MessageID, sender).
type MessageID string

//Message is one message in a channel.
//Pending marks a locally-sent message the server hasn't confirmed yet; Failed marks one the server rejected.
type Message struct {
	ID      MessageID `json:"id"`
	By      User      `json:"by"`
	Text    string    `json:"text"`
	Time    time.Time `json:"timestamp"`
	Self    bool      `json:"self"`
	Deleted bool      `json:"deleted,omitempty"`
	Pending bool      `json:"pending,omitempty"`
	Failed  bool      `json:"failed,omitempty"`
}

//Channel is the inbox-view summary of a conversation: who's in it, what happened last, and how much of it you haven't seen.
type Channel struct {
	ID            ChannelID `json:"id"`
	Members       []User    `json:"members"`
	LastMessage   string    `json:"last_message,omitempty"`
	LastMessageBy UserID    `json:"last_message_by,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
	Unread        int       `json:"unread"`
	Muted         bool      `json:"muted,omitempty"`
}

//Frame types understood by the router.
const (
	FrameContent     = "content"
	FrameProfilePic  = "profile_pic"
	FrameDisplayName = "display_name"
	FrameOnline      = "online"
	FrameOffline     = "offline"
)

//UserStatus piggybacks presence flags on an inbound frame.
type UserStatus struct {
	HaveNewMessages bool `json:"haveNewMessages"`
	OnlineIndicator bool `json:"onLineIndicator"`
}

//Frame is one realtime message unit as it appears on the wire.
type Frame struct {
	ID         MessageID  `json:"id"`
	Channel    ChannelID  `json:"channel"`
	Type       string     `json:"type"`
	Content    string     `json:"content"`
	SenderID   UserID     `json:"senderID"`
	SenderName string     `json:"senderName"`
	SenderPic  string     `json:"senderProfilePic"`
	CreateAt   string     `json:"createAt"`
	UpdateAt   string     `json:"updateAt,omitempty"`
	Self       bool       `json:"self"`
	UserStatus UserStatus `json:"userStatus"`
}

//Sent gives the frame's creation time, falling back to now when the timestamp is missing or unparseable.
func (f Frame) Sent() time.Time {
	if t, err := time.Parse(time.RFC3339, f.CreateAt); err == nil {
		return t
	}
	return time.Now().UTC()
}

//OutboundFrame is what the core writes to the socket when sending a message.
type OutboundFrame struct {
	Channel ChannelID `json:"channel"`
	Type    string    `json:"type"`
	Content string    `json:"content"`
}

//Response is the envelope every data-access call resolves to.
//Any response with Error set, or a Status other than 200, is a failure regardless of transport-level success.
type Response struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   bool            `json:"error"`
	Message string          `json:"message,omitempty"`
	Status  int             `json:"status"`
}

//Failed reports whether this response should be treated as a failure by the mutation engine.
func (r Response) Failed() bool {
	return r.Error || r.Status != 200
}

//ErrorMessage gives the user-facing failure text: the server's own words if it sent any, a generic apology otherwise.
func (r Response) ErrorMessage() string {
	if r.Message != "" {
		return r.Message
	}
	return "Something went wrong"
}
