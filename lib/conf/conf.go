//Package conf loads and hot-reloads the client core's configuration.
package conf

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

var (
	config     *Config
	configLock = new(sync.RWMutex)
	once       sync.Once
)

//GetConfig returns a pointer to the current configuration, loading it on first use.
//Set HUDDLE_CONF to point at a config file; with no file present you get the defaults.
func GetConfig() *Config {
	once.Do(configInit)
	configLock.RLock()
	defer configLock.RUnlock()
	return config
}

func configInit() {
	loadConfig()
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGUSR2)
	go func() {
		for {
			<-s
			loadConfig()
			log.Println("Reloaded")
		}
	}()
}

func loadConfig() {
	c := Default()
	path := os.Getenv("HUDDLE_CONF")
	if path == "" {
		path = "conf.json"
	}
	file, err := os.ReadFile(path)
	if err != nil {
		log.Println("Opening config failed, using defaults: ", err)
	} else if err = json.Unmarshal(file, &c); err != nil {
		log.Println("Parsing config failed, using defaults: ", err)
	}
	configLock.Lock()
	config = &c
	configLock.Unlock()
}

//Config is the whole client core configuration.
type Config struct {
	API      APIConfig      `json:"api"`
	Realtime RealtimeConfig `json:"realtime"`
	History  HistoryConfig  `json:"history"`
	Pages    PageConfig     `json:"pages"`
}

//APIConfig locates the REST backend.
type APIConfig struct {
	BaseURL     string `json:"base_url"`
	TimeoutSecs int    `json:"timeout_secs"`
}

//Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

//RealtimeConfig parameterizes the socket connection's lifecycle.
type RealtimeConfig struct {
	Endpoint      string `json:"endpoint"`
	HeartbeatSecs int    `json:"heartbeat_secs"`
	BackoffSecs   int    `json:"backoff_secs"`
	MaxAttempts   int    `json:"max_attempts"`
	GraceSecs     int    `json:"grace_secs"`
}

//Heartbeat is the interval between keepalive frames while the connection is open.
func (r RealtimeConfig) Heartbeat() time.Duration {
	return time.Duration(r.HeartbeatSecs) * time.Second
}

//Backoff is the fixed delay before a reconnect attempt.
func (r RealtimeConfig) Backoff() time.Duration {
	return time.Duration(r.BackoffSecs) * time.Second
}

//Grace is how long a fresh connect is held off after a forced teardown, so a stale close event can't clobber a new socket.
func (r RealtimeConfig) Grace() time.Duration {
	return time.Duration(r.GraceSecs) * time.Second
}

//HistoryConfig locates the local chat-history database. An empty path disables persistence.
type HistoryConfig struct {
	Path   string `json:"path"`
	Window int    `json:"window"`
}

//PageConfig holds the page sizes for the list queries.
type PageConfig struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Channels int `json:"channels"`
}

//Default gives the stock configuration: 15s heartbeat, 1s backoff, 3 attempts, 1s logout grace.
func Default() Config {
	return Config{
		API:      APIConfig{BaseURL: "http://localhost:8079/api/v1/", TimeoutSecs: 30},
		Realtime: RealtimeConfig{Endpoint: "ws://localhost:8079/ws", HeartbeatSecs: 15, BackoffSecs: 1, MaxAttempts: 3, GraceSecs: 1},
		History:  HistoryConfig{Window: 100},
		Pages:    PageConfig{Posts: 25, Comments: 25, Channels: 20},
	}
}
