package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var errNotConnected = errors.New("onebot: not connected")

// Event is the subset of a OneBot v11 event the agent looks at.
type Event struct {
	PostType    string `json:"post_type"`
	MessageType string `json:"message_type"`
	GroupID     int64  `json:"group_id"`
	SelfID      int64  `json:"self_id"`
	UserID      int64  `json:"user_id"`
}

type actionRequest struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo"`
}

type actionResponse struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Wording string          `json:"wording"`
	Echo    json.RawMessage `json:"echo"`
}

// frame is decoded first to tell responses from events.
type frame struct {
	PostType string          `json:"post_type"`
	Echo     json.RawMessage `json:"echo"`
}

// ActionError is a OneBot action that the implementation answered with a
// non-ok status.
type ActionError struct {
	Action  string
	Status  string
	Retcode int
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("onebot %s: status %s, retcode %d: %s", e.Action, e.Status, e.Retcode, e.Message)
}

type onebotOptions struct {
	URL               string
	AccessToken       string
	ActionTimeout     time.Duration
	ActionRate        float64
	ReconnectInterval time.Duration
}

// OneBotClient speaks OneBot v11 over a forward websocket. Actions are
// matched to responses by echo; every other frame is handed to the event
// callback.
type OneBotClient struct {
	opts    onebotOptions
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	clock   clock.Clock
	log     *zap.Logger

	seq atomic.Uint64

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan actionResponse

	writeMu sync.Mutex
}

func newOneBotClient(opts onebotOptions, clk clock.Clock, log *zap.Logger) *OneBotClient {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 5 * time.Second
	}
	limit := rate.Inf
	if opts.ActionRate > 0 {
		limit = rate.Limit(opts.ActionRate)
	}
	return &OneBotClient{
		opts:    opts,
		dialer:  websocket.DefaultDialer,
		limiter: rate.NewLimiter(limit, 1),
		clock:   clk,
		log:     log,
		pending: make(map[string]chan actionResponse),
	}
}

// Run keeps a connection open until ctx is done, redialling after
// failures, and delivers events to onEvent from the read goroutine.
func (c *OneBotClient) Run(ctx context.Context, onEvent func(Event)) error {
	for {
		err := c.connectAndServe(ctx, onEvent)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("onebot connection lost, reconnecting",
			zap.Error(err), zap.Duration("after", c.opts.ReconnectInterval))

		timer := c.clock.Timer(c.opts.ReconnectInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (c *OneBotClient) connectAndServe(ctx context.Context, onEvent func(Event)) error {
	conn, _, err := c.dialer.DialContext(ctx, c.opts.URL, authHeader(c.opts.AccessToken))
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	c.log.Info("onebot connected", zap.String("url", c.opts.URL))

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	err = c.readLoop(conn, onEvent)
	c.disconnect(conn)
	return err
}

func (c *OneBotClient) readLoop(conn *websocket.Conn, onEvent func(Event)) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Debug("ignoring undecodable frame", zap.Error(err))
			continue
		}

		if f.PostType == "" && len(f.Echo) > 0 {
			var resp actionResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				c.log.Debug("ignoring malformed response", zap.Error(err))
				continue
			}
			c.deliver(resp)
			continue
		}

		if f.PostType == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.log.Debug("ignoring malformed event", zap.Error(err))
			continue
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

func (c *OneBotClient) deliver(resp actionResponse) {
	var echo string
	if err := json.Unmarshal(resp.Echo, &echo); err != nil {
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[echo]
	delete(c.pending, echo)
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// disconnect drops conn and fails every call still waiting on it.
func (c *OneBotClient) disconnect(conn *websocket.Conn) {
	conn.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	for echo, ch := range c.pending {
		close(ch)
		delete(c.pending, echo)
	}
}

// Call issues action and waits for its response.
func (c *OneBotClient) Call(ctx context.Context, action string, params any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("onebot %s: %w", action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ActionTimeout)
	defer cancel()

	echo := strconv.FormatUint(c.seq.Add(1), 10)
	ch := make(chan actionResponse, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, errNotConnected
	}
	c.pending[echo] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, echo)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(actionRequest{Action: action, Params: params, Echo: echo})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", action, err)
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onebot %s: write: %w", action, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("onebot %s: %w", action, errNotConnected)
		}
		if resp.Status != "ok" {
			msg := resp.Wording
			if msg == "" {
				msg = resp.Message
			}
			return nil, &ActionError{Action: action, Status: resp.Status, Retcode: resp.Retcode, Message: msg}
		}
		return resp.Data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("onebot %s: %w", action, ctx.Err())
	}
}

// SetGroupCard implements CardSetter.
func (c *OneBotClient) SetGroupCard(ctx context.Context, groupID, userID int64, card string) error {
	data, err := c.Call(ctx, "set_group_card", map[string]any{
		"group_id": groupID,
		"user_id":  userID,
		"card":     card,
	})
	if err != nil {
		return err
	}
	c.log.Debug("set_group_card response", zap.Int64("group_id", groupID), zap.ByteString("data", data))
	return nil
}
