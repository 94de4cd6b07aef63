// ABOUTME: WebSocket client for the actuator control server
// ABOUTME: Handles handshake, device tracking, and intensity commands
package device

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds client configuration.
type Config struct {
	ServerAddr string // host:port of the control server
	ClientName string
}

// Client talks to an actuator control server over a websocket. It
// implements the dispatcher's Sink: Command and Stop surface errors to
// the caller and never block on anything but the socket write.
type Client struct {
	config Config

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	devices   map[uint32]DeviceInfo
	server    string

	writeMu sync.Mutex // gorilla conns allow one concurrent writer
	nextID  atomic.Uint32

	onStatus func(string)

	ctx    chan struct{}
	ctxOne sync.Once
}

// NewClient creates a client. onStatus receives connection and device
// status text for presentation; it may be nil.
func NewClient(config Config, onStatus func(string)) *Client {
	return &Client{
		config:   config,
		devices:  make(map[uint32]DeviceInfo),
		onStatus: onStatus,
		ctx:      make(chan struct{}),
	}
}

// Connect dials the server and performs the handshake, then starts the
// read loop, requests the device list, and begins scanning.
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	// Populate devices. Responses arrive through the read loop.
	if err := c.send("RequestDeviceList", IDOnly{ID: c.msgID()}); err != nil {
		return fmt.Errorf("device list request failed: %w", err)
	}
	if err := c.send("StartScanning", IDOnly{ID: c.msgID()}); err != nil {
		return fmt.Errorf("scan request failed: %w", err)
	}

	return nil
}

// handshake exchanges RequestServerInfo/ServerInfo.
func (c *Client) handshake() error {
	name := fmt.Sprintf("%s-%s", c.config.ClientName, uuid.New().String()[:8])

	req := RequestServerInfo{
		ID:             c.msgID(),
		ClientName:     name,
		MessageVersion: ProtocolVersion,
	}
	if err := c.send("RequestServerInfo", req); err != nil {
		return fmt.Errorf("failed to send RequestServerInfo: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read ServerInfo: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{}) // Clear deadline

	msgs, err := Decode(data)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		switch msg.Name {
		case "ServerInfo":
			var info ServerInfo
			if err := unmarshal(msg, &info); err != nil {
				return err
			}
			c.mu.Lock()
			c.server = info.ServerName
			c.mu.Unlock()
			log.Printf("Handshake complete with %s (message version %d)",
				info.ServerName, info.MessageVersion)
			c.report(fmt.Sprintf("Connected to %s", info.ServerName))
			return nil

		case "Error":
			var se ServerError
			unmarshal(msg, &se)
			return fmt.Errorf("server rejected handshake: %s", se.ErrorMessage)
		}
	}

	return fmt.Errorf("expected ServerInfo, got %s", firstName(msgs))
}

// readMessages reads and routes incoming frames.
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx:
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		msgs, err := Decode(data)
		if err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}

		for _, msg := range msgs {
			c.route(msg)
		}
	}
}

// route dispatches one server message.
func (c *Client) route(msg Envelope) {
	switch msg.Name {
	case "Ok":
		// Command acknowledged, nothing to do.

	case "Error":
		var se ServerError
		if err := unmarshal(msg, &se); err != nil {
			return
		}
		log.Printf("Server error (code %d): %s", se.ErrorCode, se.ErrorMessage)
		c.report(fmt.Sprintf("Device error: %s", se.ErrorMessage))

	case "DeviceList":
		var list DeviceList
		if err := unmarshal(msg, &list); err != nil {
			return
		}
		c.mu.Lock()
		for _, d := range list.Devices {
			c.devices[d.DeviceIndex] = d
		}
		c.mu.Unlock()
		c.reportDevices()

	case "DeviceAdded":
		var added DeviceAdded
		if err := unmarshal(msg, &added); err != nil {
			return
		}
		log.Printf("Device added: %s (index %d)", added.DeviceName, added.DeviceIndex)
		c.mu.Lock()
		c.devices[added.DeviceIndex] = added.DeviceInfo
		c.mu.Unlock()
		c.reportDevices()

	case "DeviceRemoved":
		var removed DeviceRemoved
		if err := unmarshal(msg, &removed); err != nil {
			return
		}
		log.Printf("Device removed: index %d", removed.DeviceIndex)
		c.mu.Lock()
		delete(c.devices, removed.DeviceIndex)
		c.mu.Unlock()
		c.reportDevices()

	case "ScanningFinished":
		log.Printf("Device scan finished")

	default:
		log.Printf("Unknown message type: %s", msg.Name)
	}
}

// Command sends an intensity to the active device's scalar actuators.
func (c *Client) Command(level float64) error {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}

	dev, ok := c.activeDevice()
	if !ok {
		return fmt.Errorf("no device with scalar actuators")
	}

	scalars := make([]Scalar, len(dev.DeviceMessages.ScalarCmd))
	for i, feat := range dev.DeviceMessages.ScalarCmd {
		scalars[i] = Scalar{
			Index:        uint32(i),
			Scalar:       level,
			ActuatorType: feat.ActuatorType,
		}
	}

	cmd := ScalarCmd{
		ID:          c.msgID(),
		DeviceIndex: dev.DeviceIndex,
		Scalars:     scalars,
	}
	return c.send("ScalarCmd", cmd)
}

// Stop halts every device on the server.
func (c *Client) Stop() error {
	return c.send("StopAllDevices", IDOnly{ID: c.msgID()})
}

// Devices returns a snapshot of known devices ordered by index.
func (c *Client) Devices() []DeviceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	devs := make([]DeviceInfo, 0, len(c.devices))
	for _, d := range c.devices {
		devs = append(devs, d)
	}
	sort.Slice(devs, func(i, j int) bool {
		return devs[i].DeviceIndex < devs[j].DeviceIndex
	})
	return devs
}

// HasDevice reports whether a controllable device is available.
func (c *Client) HasDevice() bool {
	_, ok := c.activeDevice()
	return ok
}

// IsConnected returns connection status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.ctxOne.Do(func() { close(c.ctx) })
		c.conn.Close()
		log.Printf("Connection closed")
		c.report("Disconnected")
	}
}

// activeDevice returns the lowest-index device that accepts ScalarCmd.
func (c *Client) activeDevice() (DeviceInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	best := DeviceInfo{}
	found := false
	for _, d := range c.devices {
		if len(d.DeviceMessages.ScalarCmd) == 0 {
			continue
		}
		if !found || d.DeviceIndex < best.DeviceIndex {
			best = d
			found = true
		}
	}
	return best, found
}

// send frames and writes one message.
func (c *Client) send(name string, payload interface{}) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := Encode(name, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// msgID returns the next message ID. IDs start at 1; 0 means "system".
func (c *Client) msgID() uint32 {
	return c.nextID.Add(1)
}

func (c *Client) report(status string) {
	if c.onStatus != nil {
		c.onStatus(status)
	}
}

func (c *Client) reportDevices() {
	if dev, ok := c.activeDevice(); ok {
		c.report(fmt.Sprintf("Using device: %s", dev.DeviceName))
	} else {
		c.report("Connected - no devices found")
	}
}

func unmarshal(msg Envelope, v interface{}) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		log.Printf("Failed to decode %s: %v", msg.Name, err)
		return err
	}
	return nil
}

func firstName(msgs []Envelope) string {
	if len(msgs) == 0 {
		return "empty frame"
	}
	return msgs[0].Name
}
