package lib

import (
	"encoding/json"
	"log"

	"github.com/courtna/HuddleCore/lib/db"
	"github.com/courtna/HuddleCore/lib/hd"
)

//HandleFrame classifies one inbound realtime frame and applies the matching
//cache update. Frames are handed to it from a single goroutine, strictly in
//arrival order. A frame that can't be decoded is logged and dropped; the
//connection is never the router's problem.
func (api *API) HandleFrame(raw []byte) {
	var frame hd.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Println("router: dropping malformed frame: ", err)
		return
	}
	switch frame.Type {
	case hd.FrameContent:
		api.handleContent(frame)
	case hd.FrameProfilePic:
		api.handleMemberUpdate(frame.SenderID, func(u hd.User) hd.User {
			u.Avatar = frame.Content
			return u
		})
		if api.store != nil {
			if err := api.store.UpdateMemberAvatar(frame.SenderID, frame.Content); err != nil {
				log.Println("history: member avatar: ", err)
			}
		}
	case hd.FrameDisplayName:
		api.handleMemberUpdate(frame.SenderID, func(u hd.User) hd.User {
			u.Name = frame.Content
			return u
		})
		if api.store != nil {
			if err := api.store.UpdateMemberName(frame.SenderID, frame.Content); err != nil {
				log.Println("history: member name: ", err)
			}
		}
	case hd.FrameOnline, hd.FrameOffline:
		online := frame.Type == hd.FrameOnline
		api.handleMemberUpdate(frame.SenderID, func(u hd.User) hd.User {
			u.Online = online
			return u
		})
		if api.store != nil {
			if err := api.store.SetMemberOnline(frame.SenderID, online); err != nil {
				log.Println("history: member online: ", err)
			}
		}
	default:
		log.Println("router: dropping frame of unknown type: ", frame.Type)
	}
}

func (api *API) handleContent(frame hd.Frame) {
	key := keyMessages(frame.Channel)
	message := hd.Message{
		ID: frame.ID,
		By: hd.User{
			ID:     frame.SenderID,
			Name:   frame.SenderName,
			Avatar: frame.SenderPic,
			Online: frame.UserStatus.OnlineIndicator,
		},
		Text: frame.Content,
		Time: frame.Sent(),
		Self: frame.Self,
	}

	api.lock()
	//Dedup by (id, sender): a replayed frame is a complete no-op - no
	//second append, and no second unread bump either.
	if _, seen := api.messages.Find(key, func(m hd.Message) bool {
		return m.ID == frame.ID && m.By.ID == frame.SenderID
	}); seen {
		api.unlock()
		return
	}
	confirmed := false
	if frame.Self {
		//The echo of an optimistic send: the provisional message adopts
		//the server's identity instead of appearing twice.
		if pending, ok := api.messages.Find(key, func(m hd.Message) bool {
			return m.Pending && m.Self && m.Text == frame.Content
		}); ok {
			api.messages.MutateItem(key, func(m hd.Message) bool { return m.ID == pending.ID }, func(m hd.Message) hd.Message {
				m.ID = frame.ID
				m.Time = message.Time
				m.Pending = false
				return m
			})
			confirmed = true
		}
	}
	if !confirmed {
		api.messages.AppendItem(key, message)
	}
	api.bumpChannelLocked(frame.Channel, frame.Content, frame.SenderID, message.Time, !frame.Self)
	active := api.activeChannel
	api.unlock()

	if api.store != nil {
		if _, err := api.store.StoreMessage(frame.Channel, message); err != nil {
			log.Println("history: store message: ", err)
		}
		err := api.store.BumpChannel(frame.Channel, frame.Content, frame.SenderID, message.Time, unreadDelta(frame.Self))
		if err == db.NoSuchChannel {
			err = api.store.UpsertChannel(hd.Channel{
				ID:            frame.Channel,
				Members:       []hd.User{message.By},
				LastMessage:   frame.Content,
				LastMessageBy: frame.SenderID,
				LastActivity:  message.Time,
				Unread:        unreadDelta(frame.Self),
			})
		}
		if err != nil {
			log.Println("history: bump channel: ", err)
		}
	}

	//The surrounding application shows its new-message indicator when the
	//user isn't already looking at this conversation.
	if !frame.Self && active != frame.Channel && api.notifier != nil {
		api.notifier.Notify(hd.Notification{Message: "New message", Severity: hd.SeverityInfo})
	}
}

func unreadDelta(self bool) int {
	if self {
		return 0
	}
	return 1
}

//handleMemberUpdate rewrites a member's display field in the channel-list
//entries AND in the attribution of every stored message from that sender, so
//already-rendered history reflects the new identity.
func (api *API) handleMemberUpdate(user hd.UserID, update func(hd.User) hd.User) {
	api.lock()
	api.channels.MutateItem(keyChannels, hasMember(user), withMember(user, update))
	api.messages.MutateAll(func(m hd.Message) bool { return m.By.ID == user }, func(m hd.Message) hd.Message {
		m.By = update(m.By)
		return m
	})
	api.unlock()
}
