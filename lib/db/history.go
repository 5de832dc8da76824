package db

import (
	"time"

	"github.com/courtna/HuddleCore/lib/hd"
)

//UpsertChannel records this channel's summary and membership.
func (db *DB) UpsertChannel(ch hd.Channel) (err error) {
	s, err := db.prepare(`INSERT INTO channels (id, last_message, last_message_by, last_activity, unread, muted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_message = excluded.last_message,
			last_message_by = excluded.last_message_by, last_activity = excluded.last_activity,
			unread = excluded.unread, muted = excluded.muted`)
	if err != nil {
		return
	}
	_, err = s.Exec(string(ch.ID), ch.LastMessage, string(ch.LastMessageBy), ch.LastActivity.UnixMilli(), ch.Unread, ch.Muted)
	if err != nil {
		return
	}
	for _, member := range ch.Members {
		s, err = db.prepare(`INSERT INTO members (channel_id, user_id, name, avatar, online) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(channel_id, user_id) DO UPDATE SET name = excluded.name, avatar = excluded.avatar, online = excluded.online`)
		if err != nil {
			return
		}
		if _, err = s.Exec(string(ch.ID), string(member.ID), member.Name, member.Avatar, member.Online); err != nil {
			return
		}
	}
	return
}

//Channels returns every stored channel, most recently active first.
func (db *DB) Channels() (channels []hd.Channel, err error) {
	s, err := db.prepare("SELECT id, last_message, last_message_by, last_activity, unread, muted FROM channels ORDER BY last_activity DESC")
	if err != nil {
		return
	}
	rows, err := s.Query()
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		var ch hd.Channel
		var id, by string
		var activity int64
		if err = rows.Scan(&id, &ch.LastMessage, &by, &activity, &ch.Unread, &ch.Muted); err != nil {
			return
		}
		ch.ID = hd.ChannelID(id)
		ch.LastMessageBy = hd.UserID(by)
		ch.LastActivity = time.UnixMilli(activity).UTC()
		if ch.Members, err = db.members(ch.ID); err != nil {
			return
		}
		channels = append(channels, ch)
	}
	err = rows.Err()
	return
}

func (db *DB) members(id hd.ChannelID) (members []hd.User, err error) {
	s, err := db.prepare("SELECT user_id, name, avatar, online FROM members WHERE channel_id = ? ORDER BY user_id")
	if err != nil {
		return
	}
	rows, err := s.Query(string(id))
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		var member hd.User
		var uid string
		if err = rows.Scan(&uid, &member.Name, &member.Avatar, &member.Online); err != nil {
			return
		}
		member.ID = hd.UserID(uid)
		members = append(members, member)
	}
	err = rows.Err()
	return
}

//BumpChannel updates a channel's last-message summary and adjusts its unread count.
func (db *DB) BumpChannel(id hd.ChannelID, lastMessage string, by hd.UserID, at time.Time, unreadDelta int) (err error) {
	s, err := db.prepare("UPDATE channels SET last_message = ?, last_message_by = ?, last_activity = ?, unread = unread + ? WHERE id = ?")
	if err != nil {
		return
	}
	res, err := s.Exec(lastMessage, string(by), at.UnixMilli(), unreadDelta, string(id))
	if err != nil {
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NoSuchChannel
	}
	return
}

//SetMuted flips the channel's mute flag.
func (db *DB) SetMuted(id hd.ChannelID, muted bool) (err error) {
	s, err := db.prepare("UPDATE channels SET muted = ? WHERE id = ?")
	if err != nil {
		return
	}
	_, err = s.Exec(muted, string(id))
	return
}

//ResetUnread zeroes the channel's unread count (the user opened it).
func (db *DB) ResetUnread(id hd.ChannelID) (err error) {
	s, err := db.prepare("UPDATE channels SET unread = 0 WHERE id = ?")
	if err != nil {
		return
	}
	_, err = s.Exec(string(id))
	return
}

//StoreMessage appends a message to the channel's history, or does nothing if
//a message with the same (id, sender) is already stored. stored reports
//whether the row was new - the caller's dedup signal.
func (db *DB) StoreMessage(channel hd.ChannelID, m hd.Message) (stored bool, err error) {
	s, err := db.prepare(`INSERT OR IGNORE INTO messages
		(id, channel_id, sender_id, sender_name, sender_avatar, sender_online, text, ts, self, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return
	}
	res, err := s.Exec(string(m.ID), string(channel), string(m.By.ID), m.By.Name, m.By.Avatar, m.By.Online, m.Text, m.Time.UnixMilli(), m.Self, m.Deleted)
	if err != nil {
		return
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

//RecentMessages returns the latest limit messages in the channel, oldest first.
func (db *DB) RecentMessages(channel hd.ChannelID, limit int) (messages []hd.Message, err error) {
	s, err := db.prepare(`SELECT id, sender_id, sender_name, sender_avatar, sender_online, text, ts, self, deleted
		FROM (SELECT * FROM messages WHERE channel_id = ? ORDER BY ts DESC LIMIT ?) ORDER BY ts ASC`)
	if err != nil {
		return
	}
	rows, err := s.Query(string(channel), limit)
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		var m hd.Message
		var id, sender string
		var ts int64
		if err = rows.Scan(&id, &sender, &m.By.Name, &m.By.Avatar, &m.By.Online, &m.Text, &ts, &m.Self, &m.Deleted); err != nil {
			return
		}
		m.ID = hd.MessageID(id)
		m.By.ID = hd.UserID(sender)
		m.Time = time.UnixMilli(ts).UTC()
		messages = append(messages, m)
	}
	err = rows.Err()
	return
}

//MarkDeleted flags a message as deleted without removing the row.
func (db *DB) MarkDeleted(channel hd.ChannelID, id hd.MessageID) (err error) {
	s, err := db.prepare("UPDATE messages SET deleted = 1 WHERE channel_id = ? AND id = ?")
	if err != nil {
		return
	}
	_, err = s.Exec(string(channel), string(id))
	return
}

//UpdateMemberName rewrites a user's display name everywhere it is stored:
//channel memberships and the attribution of every message they sent.
func (db *DB) UpdateMemberName(user hd.UserID, name string) (err error) {
	return db.updateMemberField("name", "sender_name", user, name)
}

//UpdateMemberAvatar rewrites a user's profile image in both stored locations.
func (db *DB) UpdateMemberAvatar(user hd.UserID, avatar string) (err error) {
	return db.updateMemberField("avatar", "sender_avatar", user, avatar)
}

//SetMemberOnline rewrites a user's online flag in both stored locations.
func (db *DB) SetMemberOnline(user hd.UserID, online bool) (err error) {
	return db.updateMemberField("online", "sender_online", user, online)
}

func (db *DB) updateMemberField(memberCol, messageCol string, user hd.UserID, value interface{}) (err error) {
	s, err := db.prepare("UPDATE members SET " + memberCol + " = ? WHERE user_id = ?")
	if err != nil {
		return
	}
	if _, err = s.Exec(value, string(user)); err != nil {
		return
	}
	s, err = db.prepare("UPDATE messages SET " + messageCol + " = ? WHERE sender_id = ?")
	if err != nil {
		return
	}
	_, err = s.Exec(value, string(user))
	return
}
