// Package client provides a WebSocket client SDK for the arena battle server
package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/arena/internal/core/battle"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/server"
)

// Client is one battle session on the server.
type Client struct {
	conn *websocket.Conn

	frames  chan server.Frame
	readErr error // set before frames is closed

	writeMu sync.Mutex

	// Lifecycle
	closed int32 // atomic bool
	done   chan struct{}

	// Configuration and logging
	config Config
	logger log.Log

	workerGroup sync.WaitGroup
}

// Config holds configuration for the client
type Config struct {
	// ServerURL is the battle endpoint, e.g. ws://127.0.0.1:8080/ws.
	ServerURL string
	// TeamSize asks the server for that many player units; zero keeps the server default.
	TeamSize          int
	ConnectTimeout    time.Duration
	WriteTimeout      time.Duration
	MessageBufferSize int

	Logger log.Log
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() Config {
	return Config{
		ServerURL:         "ws://127.0.0.1:8080/ws",
		ConnectTimeout:    10 * time.Second,
		WriteTimeout:      5 * time.Second,
		MessageBufferSize: 64,
	}
}

// Dial connects and starts a battle.
func Dial(ctx context.Context, config Config) (*Client, error) {
	if config.ServerURL == "" {
		return nil, fmt.Errorf("%w: empty server url", ErrInvalidConfig)
	}
	u, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if config.TeamSize > 0 {
		q := u.Query()
		q.Set("team", strconv.Itoa(config.TeamSize))
		u.RawQuery = q.Encode()
	}
	if config.MessageBufferSize <= 0 {
		config.MessageBufferSize = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With(log.String("component", "client"))

	if config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	logger.Info("Connecting to server", log.String("url", u.String()))

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		logger.Error("Failed to connect to server", log.Error(err))
		return nil, err
	}

	c := &Client{
		conn:   conn,
		frames: make(chan server.Frame, config.MessageBufferSize),
		done:   make(chan struct{}),
		config: config,
		logger: logger,
	}

	c.workerGroup.Add(1)
	go func() {
		defer c.workerGroup.Done()
		c.messageReceiver()
	}()

	c.logger.Info("Connected to server", log.String("remote_addr", conn.RemoteAddr().String()))
	return c, nil
}

// messageReceiver decodes frames until the connection fails.
func (c *Client) messageReceiver() {
	defer close(c.frames)
	for {
		var frame server.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if atomic.LoadInt32(&c.closed) == 1 {
				c.readErr = ErrClientClosed
			} else {
				c.readErr = err
			}
			return
		}
		select {
		case c.frames <- frame:
		case <-c.done:
			c.readErr = ErrClientClosed
			return
		}
	}
}

// Next returns the next frame from the server.
func (c *Client) Next(ctx context.Context) (server.Frame, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return server.Frame{}, c.readErr
		}
		return frame, nil
	case <-ctx.Done():
		return server.Frame{}, ctx.Err()
	}
}

// NextState returns the next state frame. An error frame is returned as a
// *ServerError.
func (c *Client) NextState(ctx context.Context) (battle.Snapshot, error) {
	frame, err := c.Next(ctx)
	if err != nil {
		return battle.Snapshot{}, err
	}
	switch frame.Type {
	case server.FrameState:
		if frame.State == nil {
			return battle.Snapshot{}, fmt.Errorf("%w: state frame without state", ErrInvalidMessage)
		}
		return *frame.State, nil
	case server.FrameError:
		return battle.Snapshot{}, &ServerError{Code: frame.Code, Message: frame.Error}
	default:
		return battle.Snapshot{}, fmt.Errorf("%w: frame type %q", ErrInvalidMessage, frame.Type)
	}
}

// WaitFor reads states until match accepts one. Error frames abort the wait.
func (c *Client) WaitFor(ctx context.Context, match func(battle.Snapshot) bool) (battle.Snapshot, error) {
	for {
		snap, err := c.NextState(ctx)
		if err != nil {
			return battle.Snapshot{}, err
		}
		if match(snap) {
			return snap, nil
		}
	}
}

// SubmitTarget orders the awaiting player unit to attack targetID.
func (c *Client) SubmitTarget(targetID string) error {
	return c.send(server.Command{Action: server.ActionTarget, Target: targetID})
}

func (c *Client) SetPaused(paused bool) error {
	return c.send(server.Command{Action: server.ActionPause, Paused: paused})
}

// Restart replays the battle with the same units.
func (c *Client) Restart() error {
	return c.send(server.Command{Action: server.ActionRestart})
}

func (c *Client) send(cmd server.Command) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	c.logger.Debug("Sending command", log.String("action", cmd.Action))
	return c.conn.WriteJSON(cmd)
}

// Close closes the client and releases all resources
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil // Already closed
	}

	c.logger.Info("Closing client")

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	close(c.done)
	err := c.conn.Close()
	c.workerGroup.Wait()

	c.logger.Info("Client closed")
	return err
}

// IsClosed reports whether Close was called.
func (c *Client) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}
