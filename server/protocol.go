package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoin    = "join"
	MsgLeave   = "leave"
	MsgCreate  = "create"  // create session
	MsgList    = "list"    // list sessions
	MsgCheck   = "check"   // check if session exists
	MsgControl = "control" // operator command for the joined session
	MsgStats   = "stats"   // learning stats for the joined session
	MsgAuth    = "auth"    // present an operator token
)

// Server -> Client message types
const (
	MsgState     = "state"
	MsgSessions  = "sessions"
	MsgJoined    = "joined"
	MsgCreated   = "created" // session created, client should navigate
	MsgError     = "error"
	MsgChecked   = "checked" // session check response
	MsgAuthOK    = "auth_ok"
	MsgControlOK = "control_ok"
	MsgOutcome   = "outcome"
	MsgMatchEnd  = "match_end"
	MsgEvent     = "event"
)

// Control commands
const (
	CmdActivate      = "activate"
	CmdDeactivate    = "deactivate"
	CmdResetLearning = "reset_learning"
	CmdSetParams     = "set_params"
	CmdSurface       = "surface"
	CmdDifficulty    = "difficulty"
	CmdTarget        = "target"
	CmdRestart       = "restart"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg is sent when a spectator wants to watch a session
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
}

// CreateMsg is sent to start a new session
type CreateMsg struct {
	Name        string `json:"name"`
	SessionName string `json:"sname"`
	Mode        string `json:"mode"`
}

// ControlCmd is an operator command. Parameters are only read by the
// commands that use them.
type ControlCmd struct {
	Cmd                string   `json:"cmd"`
	ExplorationRate    *float64 `json:"explorationRate,omitempty"`
	DecisionIntervalMs *float64 `json:"decisionInterval,omitempty"` // milliseconds
	Surface            string   `json:"type,omitempty"`
	Level              int      `json:"level,omitempty"`
}

// AuthMsg carries an operator token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms operator rights
type AuthOKMsg struct {
	Username   string `json:"username"`
	OperatorID int64  `json:"oid"`
}

// AgentState is broadcast per agent
type AgentState struct {
	ID        string    `json:"id" msgpack:"id"`
	Name      string    `json:"n" msgpack:"n"`
	Pos       Vec3      `json:"p" msgpack:"p"`
	Vel       Vec3      `json:"v" msgpack:"v"`
	Health    int       `json:"hp,omitempty" msgpack:"hp,omitempty"`
	Stamina   float64   `json:"st,omitempty" msgpack:"st,omitempty"`
	Score     int       `json:"sc" msgpack:"sc"`
	Alive     bool      `json:"a" msgpack:"a"`
	Active    bool      `json:"on" msgpack:"on"`
	Thinking  bool      `json:"th,omitempty" msgpack:"th,omitempty"`
	OnGround  bool      `json:"g" msgpack:"g"`
	Crouching bool      `json:"c,omitempty" msgpack:"c,omitempty"`
	Queue     int       `json:"q,omitempty" msgpack:"q,omitempty"`
	Rate      float64   `json:"er" msgpack:"er"`
	Action    string    `json:"act,omitempty" msgpack:"act,omitempty"`
	Progress  float64   `json:"pr,omitempty" msgpack:"pr,omitempty"`
	Cooldowns []float64 `json:"cd,omitempty" msgpack:"cd,omitempty"`
}

// ObstacleState is broadcast per obstacle
type ObstacleState struct {
	ID   string `json:"id" msgpack:"id"`
	Kind string `json:"k" msgpack:"k"`
	Pos  Vec3   `json:"p" msgpack:"p"`
	Size Vec3   `json:"s" msgpack:"s"`
}

// TargetState is broadcast per live target
type TargetState struct {
	ID  string `json:"id" msgpack:"id"`
	Pos Vec3   `json:"p" msgpack:"p"`
}

// BallState is the soccer ball
type BallState struct {
	Pos Vec3 `json:"p" msgpack:"p"`
	Vel Vec3 `json:"v" msgpack:"v"`
}

// ArenaState is the full state broadcast, msgpack-encoded in binary frames
type ArenaState struct {
	Mode      string          `json:"mode" msgpack:"mode"`
	Tick      uint64          `json:"tick" msgpack:"tick"`
	Time      float64         `json:"time" msgpack:"time"`
	Agents    []AgentState    `json:"agents" msgpack:"agents"`
	Obstacles []ObstacleState `json:"obstacles,omitempty" msgpack:"obstacles,omitempty"`
	Targets   []TargetState   `json:"targets,omitempty" msgpack:"targets,omitempty"`
	Ball      *BallState      `json:"ball,omitempty" msgpack:"ball,omitempty"`
	Surface   string          `json:"surface,omitempty" msgpack:"surface,omitempty"`
	Scores    []int           `json:"scores,omitempty" msgpack:"scores,omitempty"`
	Phase     string          `json:"phase,omitempty" msgpack:"phase,omitempty"`
	TimeLeft  float64         `json:"timeLeft,omitempty" msgpack:"timeLeft,omitempty"`
	Result    *MatchResult    `json:"result,omitempty" msgpack:"result,omitempty"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	Spectators int    `json:"spectators"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// CheckMsg is sent by client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID        string `json:"sid"`
	Exists     bool   `json:"exists"`
	Name       string `json:"name,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Spectators int    `json:"spectators,omitempty"`
}

// StatsMsg answers a stats request
type StatsMsg struct {
	SID    string       `json:"sid"`
	Mode   string       `json:"mode"`
	Agents []AgentStats `json:"agents"`
}
