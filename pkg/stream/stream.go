// Package stream provides the live cognitive load streaming client.
//
// A Client owns a single push connection to the backend's /ws/load
// endpoint, keeps the latest Reading plus a bounded rolling history
// for charting, and reconnects automatically after unexpected loss.
// Explicit teardown via Disconnect always wins: no reconnect attempt
// fires after it.
package stream

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"cognisense-backend/internal/models"
)

// ConnectionState describes the lifecycle of the underlying connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Conn is one open transport connection. ReadMessage blocks until a
// frame arrives or the connection dies; a dead connection is reported
// through its error return. Transport write errors surface on the
// read side as well, so the client recovers through a single path.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens transport connections. Tests inject a fake; production
// code uses the gorilla/websocket dialer from NewClient.
type Dialer interface {
	Dial(url string) (Conn, error)
}

const (
	// DefaultHistoryCap is the rolling history length used by the dashboard
	// timeline (60 readings at 1 Hz = one minute of context).
	DefaultHistoryCap = 60

	// DefaultReconnectDelay is the fixed wait before a reconnection attempt.
	DefaultReconnectDelay = 3 * time.Second
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	URL            string
	Dialer         Dialer // nil means gorilla/websocket
	HistoryCap     int
	ReconnectDelay time.Duration

	// OnReading, if set, is invoked after each accepted Reading has been
	// recorded. OnStateChange, if set, is invoked after each state
	// transition. Both run outside the client's lock.
	OnReading     func(models.Reading)
	OnStateChange func(ConnectionState)
}

// Client is a live score stream consumer. All methods are safe for
// concurrent use; readers never observe a torn state (latest and
// history are updated under one lock in a single step).
type Client struct {
	url    string
	dialer Dialer
	cap    int
	delay  time.Duration

	onReading     func(models.Reading)
	onStateChange func(ConnectionState)

	mu       sync.Mutex
	state    ConnectionState
	conn     Conn
	latest   *models.Reading
	history  []models.Reading
	tornDown bool
	retry    *time.Timer
	gen      uint64 // bumped on every lifecycle change to invalidate stale goroutines
}

// NewClient creates a client for the given options. The client does
// not connect until Connect is called.
func NewClient(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = &wsDialer{}
	}
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = DefaultHistoryCap
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &Client{
		url:           opts.URL,
		dialer:        opts.Dialer,
		cap:           opts.HistoryCap,
		delay:         opts.ReconnectDelay,
		onReading:     opts.OnReading,
		onStateChange: opts.OnStateChange,
		state:         Disconnected,
		tornDown:      true, // a fresh client starts a new lifecycle on first Connect
	}
}

// Connect opens the stream. It is idempotent: while Connecting or
// Connected it does nothing. Completion is asynchronous; observe
// State for the outcome. Connect after an explicit Disconnect starts
// a new lifecycle, which resets latest and history.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return
	}
	// A pending retry would race the dial below; this attempt replaces it.
	c.cancelRetryLocked()
	if c.tornDown {
		c.latest = nil
		c.history = nil
		c.tornDown = false
	}
	c.state = Connecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.notifyState(Connecting)
	go c.dial(gen)
}

// Disconnect tears the stream down: any pending reconnect timer is
// cancelled first, the connection (open or in flight) is closed, and
// no automatic reconnection fires until Connect is called again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.cancelRetryLocked()
	c.tornDown = true
	c.gen++ // orphan any in-flight dial or read loop
	conn := c.conn
	c.conn = nil
	changed := c.state != Disconnected
	c.state = Disconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if changed {
		c.notifyState(Disconnected)
	}
}

// SendCommand transmits a best-effort control frame {"action": ...}
// upstream. While not Connected the command is silently dropped; the
// client never queues outbound intent.
func (c *Client) SendCommand(action string) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == Connected
	c.mu.Unlock()
	if !connected || conn == nil {
		return
	}

	payload, err := json.Marshal(map[string]string{"action": action})
	if err != nil {
		return
	}
	if err := conn.WriteMessage(payload); err != nil {
		log.Printf("stream: failed to send command %q: %v", action, err)
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LatestReading returns the most recent reading and whether one has
// arrived in the current lifecycle.
func (c *Client) LatestReading() (models.Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return models.Reading{}, false
	}
	return *c.latest, true
}

// History returns a copy of the rolling history, oldest first. Its
// length never exceeds the configured cap.
func (c *Client) History() []models.Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Reading, len(c.history))
	copy(out, c.history)
	return out
}

// dial performs one connection attempt for the given lifecycle generation.
func (c *Client) dial(gen uint64) {
	conn, err := c.dialer.Dial(c.url)

	c.mu.Lock()
	if gen != c.gen || c.tornDown {
		// Teardown (or a newer lifecycle) won while we were dialing.
		c.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.state = Disconnected
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		log.Printf("stream: connection attempt failed: %v", err)
		c.notifyState(Disconnected)
		return
	}
	c.conn = conn
	c.state = Connected
	c.mu.Unlock()

	c.notifyState(Connected)
	go c.readLoop(conn, gen)
}

// readLoop pumps frames off one connection until it dies.
func (c *Client) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, gen)
			return
		}
		c.handleMessage(data, gen)
	}
}

// handleMessage applies the message protocol: non-JSON frames and JSON
// frames without a load_level field are silently discarded (heartbeats
// and status responses). Everything else is recorded as a Reading.
func (c *Client) handleMessage(data []byte, gen uint64) {
	var probe struct {
		LoadLevel *string `json:"load_level"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.LoadLevel == nil {
		return
	}

	var reading models.Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.latest = &reading
	c.history = append(c.history, reading)
	if len(c.history) > c.cap {
		c.history = c.history[len(c.history)-c.cap:]
	}
	c.mu.Unlock()

	if c.onReading != nil {
		c.onReading(reading)
	}
}

// handleClose runs when a connection's read loop ends. Unless the
// loss was an explicit teardown, exactly one reconnect is scheduled.
func (c *Client) handleClose(conn Conn, gen uint64) {
	conn.Close()

	c.mu.Lock()
	if gen != c.gen || c.tornDown {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = Disconnected
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	log.Printf("stream: connection lost, reconnecting in %v", c.delay)
	c.notifyState(Disconnected)
}

// scheduleReconnectLocked arms the single reconnect timer. Callers
// hold c.mu. An already-pending timer is never stacked.
func (c *Client) scheduleReconnectLocked() {
	if c.retry != nil || c.tornDown {
		return
	}
	c.retry = time.AfterFunc(c.delay, c.reconnect)
}

// reconnect fires from the retry timer.
func (c *Client) reconnect() {
	c.mu.Lock()
	c.retry = nil
	if c.tornDown || c.state != Disconnected {
		c.mu.Unlock()
		return
	}
	c.state = Connecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.notifyState(Connecting)
	go c.dial(gen)
}

func (c *Client) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Client) notifyState(s ConnectionState) {
	if c.onStateChange != nil {
		c.onStateChange(s)
	}
}
