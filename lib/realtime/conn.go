//Package realtime owns the one live socket connection for the authenticated
//user: connect, reconnect with a fixed backoff, heartbeat, teardown. It hands
//every inbound frame to a single handler in arrival order and exposes a send
//capability; nothing else about the socket leaks out.
package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/courtna/HuddleCore/lib/hd"
)

//State is where the connection is in its lifecycle.
type State int

const (
	//Idle - no connection, and none wanted until an external trigger (login, foreground).
	Idle State = iota
	//Connecting - a dial attempt is underway (possibly waiting out a backoff or grace delay).
	Connecting
	//Open - the socket is live; heartbeats are flowing.
	Open
	//Closed - the connection dropped; a reconnect is scheduled.
	Closed
)

const writeWait = 10 * time.Second

//ErrNotConnected is returned by Send when there's no open socket to send on.
var ErrNotConnected = errors.New("realtime: not connected")

//TokenSource supplies the session token. It is consulted at every dial, not
//captured once, so a token refreshed during the retry window is used.
type TokenSource interface {
	Token() string
}

//Handler consumes one inbound frame. It is called from a single goroutine,
//strictly in arrival order.
type Handler func(frame []byte)

//Options parameterizes a Conn.
type Options struct {
	Endpoint    string
	Heartbeat   time.Duration
	Backoff     time.Duration
	Grace       time.Duration
	MaxAttempts int
}

//Conn is the process-wide realtime connection. There is at most one live
//socket behind it; Connect while Open is a no-op.
type Conn struct {
	opts    Options
	tokens  TokenSource
	handler Handler

	mu         sync.Mutex
	state      State
	ws         *websocket.Conn
	done       chan struct{}
	attempts   int
	gen        int //bumped whenever the current socket becomes invalid; stale events carry the old value
	graceUntil time.Time

	writeMu sync.Mutex
}

//New constructs a Conn. Nothing is dialled until Connect.
func New(opts Options, tokens TokenSource, handler Handler) *Conn {
	return &Conn{opts: opts, tokens: tokens, handler: handler}
}

//State reports the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

//Connect is the external trigger: login observed, app foregrounded, or a
//manual retry. Idempotent while a connection is open or being opened.
//It resets the attempt counter; automatic retries do not.
func (c *Conn) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Open || c.state == Connecting {
		return
	}
	c.attempts = 0
	c.beginConnectLocked(0)
}

//Disconnect forcibly tears the connection down: logout observed. The socket
//is closed, all listeners detached, the handle nilled, and a grace period
//started so a stale close event can't race a future connect.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.teardownLocked()
	c.state = Idle
	c.attempts = 0
	c.graceUntil = time.Now().Add(c.opts.Grace)
}

//Send writes one content frame to the socket.
func (c *Conn) Send(channel hd.ChannelID, content string) error {
	c.mu.Lock()
	ws, state := c.ws, c.state
	c.mu.Unlock()
	if state != Open || ws == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(hd.OutboundFrame{Channel: channel, Type: hd.FrameContent, Content: content})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}

//beginConnectLocked moves to Connecting and kicks off a dial after delay,
//stretched to wait out any teardown grace period. Callers hold c.mu.
func (c *Conn) beginConnectLocked(delay time.Duration) {
	if wait := time.Until(c.graceUntil); wait > delay {
		delay = wait
	}
	c.state = Connecting
	c.gen++
	go c.dial(c.gen, delay)
}

func (c *Conn) dial(gen int, delay time.Duration) {
	if delay > 0 {
		time.Sleep(delay)
	}
	c.mu.Lock()
	if c.gen != gen || c.state != Connecting {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	//Token is re-read here, at attempt time.
	token := c.tokens.Token()
	if token == "" {
		c.mu.Lock()
		if c.gen == gen {
			c.state = Idle
		}
		c.mu.Unlock()
		return
	}
	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	ws, resp, err := dialer.Dial(c.opts.Endpoint+"?token="+url.QueryEscape(token), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != Connecting {
		if ws != nil {
			ws.Close()
		}
		return
	}
	if err != nil {
		c.attempts++
		if c.attempts >= c.opts.MaxAttempts {
			log.Println("realtime: giving up after", c.attempts, "attempts")
			c.state = Idle
			return
		}
		c.state = Closed
		c.beginConnectLocked(c.opts.Backoff)
		return
	}
	c.ws = ws
	c.state = Open
	c.attempts = 0
	c.done = make(chan struct{})
	go c.readLoop(ws, gen)
	go c.heartbeat(ws, gen, c.done)
}

//lost handles a close or error event from the socket identified by gen.
//Events from a superseded socket are ignored.
func (c *Conn) lost(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != Open {
		return
	}
	c.teardownLocked()
	c.state = Closed
	c.beginConnectLocked(c.opts.Backoff)
}

func (c *Conn) teardownLocked() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
}

func (c *Conn) readLoop(ws *websocket.Conn, gen int) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("realtime: connection lost:", err)
			}
			c.lost(gen)
			return
		}
		if len(data) == 0 {
			continue //peer keepalive
		}
		if c.handler != nil {
			c.handler(data)
		}
	}
}

//heartbeat sends an empty frame every period while the connection is open.
//An empty text frame rather than a ping control frame: intermediaries that
//swallow control frames still see traffic.
func (c *Conn) heartbeat(ws *websocket.Conn, gen int, done chan struct{}) {
	if c.opts.Heartbeat <= 0 {
		return
	}
	tick := time.NewTicker(c.opts.Heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			c.writeMu.Lock()
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := ws.WriteMessage(websocket.TextMessage, []byte{})
			c.writeMu.Unlock()
			if err != nil {
				c.lost(gen)
				return
			}
		}
	}
}
