//Package db is the local chat-history store: channels and messages persisted
//on the device in SQLite, so the inbox and recent history survive a cold
//start and the query cache can be warmed without a network round trip.
package db

import (
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/courtna/HuddleCore/lib/hd"
)

//DB wraps the history database plus a cache of prepared statements.
type DB struct {
	database *sql.DB

	stmtLock sync.Mutex
	stmts    map[string]*sql.Stmt
}

//NoSuchChannel happens when you ask for a channel the store has never seen.
var NoSuchChannel = hd.APIerror{Reason: "No such channel"}

//New opens (creating if necessary) the history database at path.
//Use ":memory:" for an ephemeral store.
func New(path string) (db *DB, err error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return
	}
	//The history store is touched from the router goroutine and from UI
	//reads; a single connection sidesteps SQLite write contention.
	database.SetMaxOpenConns(1)
	db = &DB{database: database, stmts: make(map[string]*sql.Stmt)}
	err = db.migrate()
	if err != nil {
		database.Close()
		return nil, err
	}
	return db, nil
}

//Close releases the underlying database.
func (db *DB) Close() error {
	return db.database.Close()
}

func (db *DB) migrate() (err error) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			last_message TEXT NOT NULL DEFAULT '',
			last_message_by TEXT NOT NULL DEFAULT '',
			last_activity INTEGER NOT NULL DEFAULT 0,
			unread INTEGER NOT NULL DEFAULT 0,
			muted INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			channel_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			online INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (channel_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			sender_name TEXT NOT NULL DEFAULT '',
			sender_avatar TEXT NOT NULL DEFAULT '',
			sender_online INTEGER NOT NULL DEFAULT 0,
			text TEXT NOT NULL,
			ts INTEGER NOT NULL,
			self INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (id, sender_id)
		)`,
		`CREATE INDEX IF NOT EXISTS messages_by_channel ON messages (channel_id, ts)`,
	}
	for _, q := range schema {
		if _, err = db.database.Exec(q); err != nil {
			return
		}
	}
	return
}

//prepare gives you an already prepared statement if available, otherwise
//prepares one against the underlying database and remembers it.
func (db *DB) prepare(query string) (stmt *sql.Stmt, err error) {
	db.stmtLock.Lock()
	defer db.stmtLock.Unlock()
	stmt, ok := db.stmts[query]
	if ok {
		return stmt, nil
	}
	stmt, err = db.database.Prepare(query)
	if err != nil {
		return
	}
	db.stmts[query] = stmt
	return stmt, nil
}
