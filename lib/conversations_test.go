package lib

import (
	"testing"

	"github.com/courtna/HuddleCore/lib/hd"
)

func TestSendMessageWithoutConnectionFails(t *testing.T) {
	api, _, notifier := newTestAPI(t)
	seedChannel(api, hd.Channel{ID: "ch1"})
	provisional, err := api.SendMessage("ch1", "hello?")
	if err == nil {
		t.Fatalf("Send with no open socket should fail")
	}
	msgs := api.ChannelMessages("ch1")
	if len(msgs) != 1 {
		t.Fatalf("The optimistic message should remain, marked failed: %+v", msgs)
	}
	m := msgs[0]
	if m.ID != provisional || m.Pending || !m.Failed {
		t.Fatalf("Expected the provisional message marked failed: %+v", m)
	}
	if notes := notifier.all(); len(notes) != 1 || notes[0].Severity != hd.SeverityError {
		t.Fatalf("Expected one error notification, got %+v", notes)
	}
	//the inbox summary still reflects the attempt, without an unread bump
	ch := findChannel(t, api, "ch1")
	if ch.LastMessage != "hello?" || ch.Unread != 0 {
		t.Fatalf("Self sends bump the summary but never unread: %+v", ch)
	}
}

func TestDeleteMessage(t *testing.T) {
	api, backend, _ := newTestAPI(t)
	seedMessage(api, "ch1", hd.Message{ID: "m1", By: hd.User{ID: "u2"}, Text: "regret"})
	if err := api.DeleteMessage("ch1", "m1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if msgs := api.ChannelMessages("ch1"); !msgs[0].Deleted {
		t.Fatalf("Message should be flagged deleted: %+v", msgs[0])
	}
	requests := backend.recorded()
	if len(requests) != 1 || requests[0].Method != "DELETE" || requests[0].Path != "/channels/ch1/messages/m1" {
		t.Fatalf("Unexpected requests: %+v", requests)
	}
}

func TestDeleteMessageFailureDoesNotRollBack(t *testing.T) {
	api, backend, notifier := newTestAPI(t)
	seedMessage(api, "ch1", hd.Message{ID: "m1", By: hd.User{ID: "u2"}, Text: "regret"})
	backend.setFailing(true)
	if err := api.DeleteMessage("ch1", "m1"); err == nil {
		t.Fatalf("Expected failure surfaced")
	}
	//delete is display-only; the hidden message stays hidden
	if msgs := api.ChannelMessages("ch1"); !msgs[0].Deleted {
		t.Fatalf("A refused delete should not resurrect the message: %+v", msgs[0])
	}
	if notes := notifier.all(); len(notes) != 1 {
		t.Fatalf("Expected the failure surfaced, got %+v", notes)
	}
}

func TestSetChannelMutedRollsBack(t *testing.T) {
	api, backend, _ := newTestAPI(t)
	seedChannel(api, hd.Channel{ID: "ch1"})
	if err := api.SetChannelMuted("ch1", true); err != nil {
		t.Fatalf("SetChannelMuted: %v", err)
	}
	if !findChannel(t, api, "ch1").Muted {
		t.Fatalf("Mute not applied")
	}
	backend.setFailing(true)
	if err := api.SetChannelMuted("ch1", false); err == nil {
		t.Fatalf("Expected failure surfaced")
	}
	if !findChannel(t, api, "ch1").Muted {
		t.Fatalf("A refused unmute must roll back to muted")
	}
}

func TestMarkChannelRead(t *testing.T) {
	api, _, _ := newTestAPI(t)
	api.store.UpsertChannel(hd.Channel{ID: "ch1", Unread: 3})
	seedChannel(api, hd.Channel{ID: "ch1", Unread: 3})
	api.MarkChannelRead("ch1")
	if ch := findChannel(t, api, "ch1"); ch.Unread != 0 {
		t.Fatalf("Unread not zeroed: %d", ch.Unread)
	}
	stored, _ := api.store.Channels()
	if stored[0].Unread != 0 {
		t.Fatalf("Unread not zeroed in history: %d", stored[0].Unread)
	}
}

func TestChannelMessagesWarmsFromHistory(t *testing.T) {
	api, _, _ := newTestAPI(t)
	api.store.StoreMessage("ch1", hd.Message{ID: "m1", By: hd.User{ID: "u2"}, Text: "from last session", Time: testTime})
	msgs := api.ChannelMessages("ch1")
	if len(msgs) != 1 || msgs[0].Text != "from last session" {
		t.Fatalf("Cold read should warm from the history store: %+v", msgs)
	}
}

func TestWarmFromHistory(t *testing.T) {
	api, _, _ := newTestAPI(t)
	api.store.UpsertChannel(hd.Channel{ID: "ch1", LastMessage: "yesterday", LastActivity: testTime, Unread: 2})
	api.WarmFromHistory()
	ch := findChannel(t, api, "ch1")
	if ch.LastMessage != "yesterday" || ch.Unread != 2 {
		t.Fatalf("Inbox not warmed: %+v", ch)
	}
}
