package lib

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/courtna/HuddleCore/lib/cache"
	"github.com/courtna/HuddleCore/lib/hd"
)

//SendMessage appends the message optimistically - provisional ID, pending
//flag - and then puts it on the wire. The router clears the pending flag when
//the server echoes the message back with its real identity.
func (api *API) SendMessage(channel hd.ChannelID, text string) (provisional hd.MessageID, err error) {
	provisional = hd.MessageID(uuid.NewString())
	api.lock()
	message := hd.Message{
		ID:      provisional,
		By:      api.self,
		Text:    text,
		Time:    time.Now().UTC(),
		Self:    true,
		Pending: true,
	}
	api.messages.AppendItem(keyMessages(channel), message)
	//A self-send bumps the summary but never the unread count.
	api.bumpChannelLocked(channel, text, api.self.ID, message.Time, false)
	api.unlock()

	if err = api.rt.Send(channel, text); err != nil {
		api.lock()
		api.messages.MutateItem(keyMessages(channel), func(m hd.Message) bool { return m.ID == provisional }, func(m hd.Message) hd.Message {
			m.Pending = false
			m.Failed = true
			return m
		})
		api.unlock()
		api.notifyFailure(hd.Response{}, err)
		return provisional, err
	}
	return provisional, nil
}

//DeleteMessage hides a message. Delete is idempotent and display-only, so a
//failed request is surfaced but nothing is rolled back.
func (api *API) DeleteMessage(channel hd.ChannelID, id hd.MessageID) (err error) {
	api.lock()
	api.messages.MutateItem(keyMessages(channel), func(m hd.Message) bool { return m.ID == id }, func(m hd.Message) hd.Message {
		m.Deleted = true
		return m
	})
	api.unlock()
	if api.store != nil {
		if err := api.store.MarkDeleted(channel, id); err != nil {
			log.Println("history: mark deleted: ", err)
		}
	}

	resp, reqErr := api.client.Delete(fmt.Sprintf("channels/%s/messages/%s", channel, id), nil)
	if err = failure(resp, reqErr); err != nil {
		api.notifyFailure(resp, reqErr)
		return
	}
	return nil
}

//SetChannelMuted flips a conversation's mute flag optimistically, rolling
//back if the server refuses.
func (api *API) SetChannelMuted(channel hd.ChannelID, muted bool) (err error) {
	api.lock()
	prior := muted
	if ch, ok := api.channels.Find(keyChannels, func(c hd.Channel) bool { return c.ID == channel }); ok {
		prior = ch.Muted
	}
	api.applyMuted(channel, muted)
	api.unlock()

	resp, reqErr := api.client.Put(fmt.Sprintf("channels/%s/mute", channel), map[string]bool{"muted": muted})
	if err = failure(resp, reqErr); err != nil {
		api.lock()
		api.applyMuted(channel, prior)
		api.unlock()
		api.notifyFailure(resp, reqErr)
		return
	}
	if api.store != nil {
		if err := api.store.SetMuted(channel, muted); err != nil {
			log.Println("history: set muted: ", err)
		}
	}
	return nil
}

func (api *API) applyMuted(channel hd.ChannelID, muted bool) {
	api.channels.MutateItem(keyChannels, func(c hd.Channel) bool { return c.ID == channel }, func(c hd.Channel) hd.Channel {
		c.Muted = muted
		return c
	})
}

//MarkChannelRead zeroes the channel's unread count - the user opened it.
func (api *API) MarkChannelRead(channel hd.ChannelID) {
	api.lock()
	api.channels.MutateItem(keyChannels, func(c hd.Channel) bool { return c.ID == channel }, func(c hd.Channel) hd.Channel {
		c.Unread = 0
		return c
	})
	api.unlock()
	if api.store != nil {
		if err := api.store.ResetUnread(channel); err != nil {
			log.Println("history: reset unread: ", err)
		}
	}
}

//Channels returns the cached inbox view.
func (api *API) Channels() []hd.Channel {
	return api.channels.Items(keyChannels)
}

//ChannelMessages returns the cached history for a channel, warming the cache
//from the local store on a cold read.
func (api *API) ChannelMessages(channel hd.ChannelID) []hd.Message {
	key := keyMessages(channel)
	if _, ok := api.messages.Pages(key); !ok && api.store != nil {
		stored, err := api.store.RecentMessages(channel, api.Config.History.Window)
		if err != nil {
			log.Println("history: load: ", err)
		} else if len(stored) > 0 {
			api.messages.Replace(key, []cache.Page[hd.Message]{{Items: stored}})
		}
	}
	return api.messages.Items(key)
}

//WarmFromHistory fills the channel cache from the local store, for an inbox
//that renders before the network does.
func (api *API) WarmFromHistory() {
	if api.store != nil {
		channels, err := api.store.Channels()
		if err != nil {
			log.Println("history: load channels: ", err)
			return
		}
		if len(channels) > 0 {
			api.channels.Replace(keyChannels, []cache.Page[hd.Channel]{{Items: channels, HasNext: true}})
		}
	}
}

//bumpChannelLocked updates a channel's inbox summary for a new message.
//Callers hold the engine lock.
func (api *API) bumpChannelLocked(channel hd.ChannelID, text string, by hd.UserID, at time.Time, countUnread bool) {
	bump := 0
	if countUnread {
		bump = 1
	}
	changed := api.channels.MutateItem(keyChannels, func(c hd.Channel) bool { return c.ID == channel }, func(c hd.Channel) hd.Channel {
		c.LastMessage = text
		c.LastMessageBy = by
		c.LastActivity = at
		c.Unread += bump
		return c
	})
	//A message for a conversation the inbox hasn't seen yet starts a new
	//entry - but only if the inbox has been fetched at all; an entirely
	//cold cache stays cold until the next fetch.
	if changed == 0 {
		if _, ok := api.channels.Pages(keyChannels); ok {
			api.channels.AppendItem(keyChannels, hd.Channel{
				ID:            channel,
				LastMessage:   text,
				LastMessageBy: by,
				LastActivity:  at,
				Unread:        bump,
			})
		}
	}
}

func hasMember(user hd.UserID) func(hd.Channel) bool {
	return func(c hd.Channel) bool {
		for _, member := range c.Members {
			if member.ID == user {
				return true
			}
		}
		return false
	}
}

func withMember(user hd.UserID, update func(hd.User) hd.User) func(hd.Channel) hd.Channel {
	return func(c hd.Channel) hd.Channel {
		members := make([]hd.User, len(c.Members))
		for i, member := range c.Members {
			if member.ID == user {
				member = update(member)
			}
			members[i] = member
		}
		c.Members = members
		return c
	}
}
