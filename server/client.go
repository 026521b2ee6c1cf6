package main

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 4096
	sendBufSize        = 256
	maxMessagesPerSec  = 50
	maxNameLen         = 16
	maxSessionNameLen  = 30
	defaultSessionName = "Training Ground"
)

// Client represents a WebSocket connection. A client watches at most one
// session and may drive it once it has presented an operator token.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	clientID   string
	name       string
	sessionID  string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	// Auth state
	operatorID   int64  // 0 = unauthenticated
	operatorName string // "" = unauthenticated
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		clientID:   GenerateID(8),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgControl:
		c.handleControl(env.D)
	case MsgStats:
		c.handleStats()
	case MsgAuth:
		c.handleAuth(env.D)
	}
}

func (c *Client) handleList() {
	sessions := c.hub.sessions.ListSessions()
	c.SendJSON(Envelope{T: MsgSessions, Data: sessions})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sname := msg.SessionName
	if sname == "" {
		sname = defaultSessionName
	}
	if len(sname) > maxSessionNameLen {
		sname = sname[:maxSessionNameLen]
	}
	mode, ok := ParseMode(msg.Mode)
	if !ok {
		c.sendError(ErrUnknownMode.Error())
		return
	}

	sess, err := c.hub.sessions.CreateSession(sname, mode)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.hub.sessions.MarkActive(sess.ID)
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID, "mode": string(mode)}})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := msg.Name
	if name == "" {
		name = "Observer"
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.sendError(ErrUnknownSession.Error())
		return
	}
	if c.sessionID != "" && c.sessionID != sess.ID {
		c.handleLeave()
	}
	if !sess.Game.AddSpectator(c.clientID, c) {
		c.sendError("session full")
		return
	}
	c.hub.sessions.MarkActive(sess.ID)
	c.sessionID = sess.ID
	c.name = name

	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{
		"sid":  sess.ID,
		"id":   c.clientID,
		"mode": string(sess.Mode),
	}})
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:        msg.SID,
		Exists:     true,
		Name:       sess.Name,
		Mode:       string(sess.Mode),
		Spectators: sess.Game.SpectatorCount(),
	}})
}

func (c *Client) handleLeave() {
	if c.sessionID != "" {
		c.hub.sessions.RemoveSpectator(c.sessionID, c.clientID)
		c.sessionID = ""
	}
}

// handleControl applies an operator command to the joined session
func (c *Client) handleControl(data json.RawMessage) {
	if c.sessionID == "" {
		c.sendError("not in a session")
		return
	}
	if err := c.hub.CanControl(c); err != nil {
		c.sendError(err.Error())
		return
	}
	var cmd ControlCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.sendError("bad control message")
		return
	}
	sess := c.hub.sessions.GetSession(c.sessionID)
	if sess == nil {
		c.sessionID = ""
		c.sendError(ErrUnknownSession.Error())
		return
	}
	if err := sess.Game.Control(cmd); err != nil {
		if !errors.Is(err, ErrUnsupportedControl) {
			log.Printf("[client] %s: control %q: %v", c.clientID, cmd.Cmd, err)
		}
		c.sendError(err.Error())
		return
	}
	c.hub.sessions.MarkActive(sess.ID)
	c.SendJSON(Envelope{T: MsgControlOK, Data: map[string]string{"cmd": cmd.Cmd}})
}

func (c *Client) handleStats() {
	if c.sessionID == "" {
		c.sendError("not in a session")
		return
	}
	sess := c.hub.sessions.GetSession(c.sessionID)
	if sess == nil {
		c.sendError(ErrUnknownSession.Error())
		return
	}
	c.SendJSON(Envelope{T: MsgStats, Data: StatsMsg{
		SID:    sess.ID,
		Mode:   string(sess.Mode),
		Agents: sess.Game.Stats(),
	}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("auth disabled")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.hub.SignIn(c, id, username)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Username:   username,
		OperatorID: id,
	}})
}
