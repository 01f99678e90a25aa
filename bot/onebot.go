package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"eatwhat-bot/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var errNotConnected = errors.New("onebot: not connected")

// ReplyMarker quotes messageID in a OneBot message.
func ReplyMarker(messageID string) string {
	if messageID == "" {
		return ""
	}
	return fmt.Sprintf("[CQ:reply,id=%s]", messageID)
}

type oneBotSender struct {
	Role string `json:"role"`
}

// oneBotFrame is the union of OneBot v11 events and action responses.
type oneBotFrame struct {
	PostType    string       `json:"post_type"`
	MessageType string       `json:"message_type"`
	NoticeType  string       `json:"notice_type"`
	UserID      json.Number  `json:"user_id"`
	GroupID     json.Number  `json:"group_id"`
	MessageID   json.Number  `json:"message_id"`
	RawMessage  string       `json:"raw_message"`
	Sender      oneBotSender `json:"sender"`
	Status      string       `json:"status"`
	Echo        string       `json:"echo"`
}

// DecodeOneBotEvent parses one websocket frame.
func DecodeOneBotEvent(data []byte) (models.Event, error) {
	var f oneBotFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return models.Event{}, fmt.Errorf("decode onebot frame: %w", err)
	}
	return models.Event{
		PostType:    f.PostType,
		MessageType: f.MessageType,
		NoticeType:  f.NoticeType,
		UserID:      f.UserID.String(),
		GroupID:     f.GroupID.String(),
		MessageID:   f.MessageID.String(),
		RawMessage:  f.RawMessage,
		Role:        f.Sender.Role,
		Status:      f.Status,
		Echo:        f.Echo,
	}, nil
}

type oneBotAction struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
	Echo   string         `json:"echo"`
}

type OneBotConfig struct {
	URL            string
	AccessToken    string
	ReconnectDelay time.Duration
}

// OneBotClient is a forward-websocket OneBot v11 connection. It reconnects
// until its context is cancelled and handles every event on its own goroutine.
type OneBotClient struct {
	cfg    OneBotConfig
	dialer *websocket.Dialer
	log    *zap.SugaredLogger

	writeMu sync.Mutex
	conn    *websocket.Conn

	inflight sync.WaitGroup
}

func NewOneBotClient(cfg OneBotConfig, log *zap.SugaredLogger) *OneBotClient {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &OneBotClient{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		log:    log.With("transport", "onebot"),
	}
}

// Run blocks until ctx is done. Connection failures are logged and retried.
func (c *OneBotClient) Run(ctx context.Context, handle EventHandler) error {
	defer c.inflight.Wait()
	for {
		err := c.session(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warnw("connection lost", "url", c.cfg.URL, "error", err, "retry_in", c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *OneBotClient) session(ctx context.Context, handle EventHandler) error {
	header := http.Header{}
	if c.cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}
	c.setConn(conn)
	c.log.Infow("connected", "url", c.cfg.URL)

	done := make(chan struct{})
	defer func() {
		close(done)
		c.setConn(nil)
		conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		ev, err := DecodeOneBotEvent(data)
		if err != nil {
			c.log.Warnw("dropping frame", "error", err)
			continue
		}
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			handle(ctx, ev)
		}()
	}
}

func (c *OneBotClient) setConn(conn *websocket.Conn) {
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()
}

func (c *OneBotClient) SendGroup(ctx context.Context, groupID, replyTo, text string) error {
	return c.call(ctx, "send_group_msg", map[string]any{
		"group_id": numericID(groupID),
		"message":  ReplyMarker(replyTo) + text,
	})
}

func (c *OneBotClient) SendPrivate(ctx context.Context, userID, replyTo, text string) error {
	return c.call(ctx, "send_private_msg", map[string]any{
		"user_id": numericID(userID),
		"message": ReplyMarker(replyTo) + text,
	})
}

func (c *OneBotClient) call(ctx context.Context, action string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	frame := oneBotAction{Action: action, Params: params, Echo: uuid.NewString()}
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	c.log.Debugw("action sent", "action", action, "echo", frame.Echo)
	return nil
}

// numericID sends ids as JSON numbers when they are numeric, as OneBot expects.
func numericID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
