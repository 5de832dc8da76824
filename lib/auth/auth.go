//Package auth is the client-side session store: it holds the current token,
//answers whether it is still usable, and tells subscribers about login and
//logout so the connection manager can follow the session's lifecycle.
package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

//Event is a session lifecycle transition.
type Event int

const (
	//LoggedIn - a token became available.
	LoggedIn Event = iota
	//LoggedOut - the session ended; the token is gone.
	LoggedOut
)

//Store holds the session token for one user.
type Store struct {
	mu        sync.RWMutex
	token     string
	listeners []chan Event
}

//NewStore constructs an empty session store.
func NewStore() *Store {
	return &Store{}
}

//Token returns the current session token, or "" when logged out.
//Callers must re-read this at use time rather than capture it; a token
//refresh may happen at any moment.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

//SetToken installs a new session token and announces the login.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if token != "" {
		s.publish(LoggedIn)
	}
}

//Logout clears the token and announces the logout.
func (s *Store) Logout() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.publish(LoggedOut)
}

//Valid reports whether the current token is present and, when it is a JWT,
//not yet expired. Opaque tokens are taken at face value.
func (s *Store) Valid() bool {
	token := s.Token()
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true //not a JWT; only the server can judge it
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Now().Before(exp.Time)
}

//Subscribe returns a channel that receives session lifecycle events.
func (s *Store) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := make(chan Event, 4)
	s.listeners = append(s.listeners, c)
	return c
}

func (s *Store) publish(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.listeners {
		select {
		case c <- e:
		default: //a subscriber that stopped listening doesn't block the rest
		}
	}
}
