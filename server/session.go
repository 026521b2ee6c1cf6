package main

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

const maxSessions = 100

var (
	ErrUnknownSession  = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrTooManySessions = errors.New("too many active sessions")
)

// SessionIdleTimeout is how long a session with no spectators is kept alive
var SessionIdleTimeout = 30 * time.Second

// Session represents one running simulation that clients can watch and drive
type Session struct {
	ID      string
	Name    string
	Mode    Mode
	Game    *Game
	Replay  *ReplayLog
	Created time.Time

	lastActive time.Time
}

// SessionManager handles creation and lookup of sessions
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	cfg       Config
	oracle    Oracle
	telemetry EventSink
	replayDir string
}

// NewSessionManager creates a new SessionManager. telemetry may be nil; an
// empty replayDir disables replay logs.
func NewSessionManager(cfg Config, oracle Oracle, telemetry EventSink, replayDir string) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		cfg:       cfg,
		oracle:    oracle,
		telemetry: telemetry,
		replayDir: replayDir,
	}
}

// CreateSession starts a new simulation session
func (sm *SessionManager) CreateSession(name string, mode Mode) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil, ErrTooManySessions
	}

	id := GenerateUUID()
	var replay *ReplayLog
	sinks := []EventSink{sm.telemetry}
	if sm.replayDir != "" {
		r, err := OpenReplayLog(sm.replayDir, id)
		if err != nil {
			log.Printf("[session] %s: replay disabled: %v", id, err)
		} else {
			replay = r
			sinks = append(sinks, r)
		}
	}

	game, err := NewGame(id, mode, sm.cfg, sm.oracle, sinks...)
	if err != nil {
		if replay != nil {
			replay.Close()
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	now := time.Now()
	sess := &Session{
		ID:         id,
		Name:       name,
		Mode:       mode,
		Game:       game,
		Replay:     replay,
		Created:    now,
		lastActive: now,
	}
	sm.sessions[id] = sess
	go game.Run()
	sm.scheduleReap(id)
	log.Printf("[session] created %s (%s) %q", id, mode, name)
	return sess, nil
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// MarkActive refreshes the idle timer of a session
func (sm *SessionManager) MarkActive(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sess, ok := sm.sessions[id]; ok {
		sess.lastActive = time.Now()
	}
}

// RemoveSpectator detaches a client; the session is reaped once it has been
// empty for SessionIdleTimeout
func (sm *SessionManager) RemoveSpectator(sessionID, clientID string) {
	sess := sm.GetSession(sessionID)
	if sess == nil {
		return
	}
	sess.Game.RemoveSpectator(clientID)
	sm.MarkActive(sessionID)
	if sess.Game.SpectatorCount() == 0 {
		sm.scheduleReap(sessionID)
	}
}

func (sm *SessionManager) scheduleReap(id string) {
	timeout := SessionIdleTimeout
	time.AfterFunc(timeout+10*time.Millisecond, func() { sm.reapIfIdle(id, timeout) })
}

func (sm *SessionManager) reapIfIdle(id string, timeout time.Duration) {
	sm.mu.Lock()
	sess, ok := sm.sessions[id]
	if !ok || sess.Game.SpectatorCount() > 0 || time.Since(sess.lastActive) < timeout {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, id)
	sm.mu.Unlock()
	sm.shutdown(sess)
	log.Printf("[session] %s idle, removed", id)
}

func (sm *SessionManager) shutdown(sess *Session) {
	sess.Game.Stop()
	if sess.Replay != nil {
		if err := sess.Replay.Close(); err != nil {
			log.Printf("[session] %s: close replay: %v", sess.ID, err)
		}
	}
}

// CloseAll stops every session, used on server shutdown
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	all := make([]*Session, 0, len(sm.sessions))
	for id, sess := range sm.sessions {
		all = append(all, sess)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	for _, sess := range all {
		sm.shutdown(sess)
	}
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:         sess.ID,
			Name:       sess.Name,
			Mode:       string(sess.Mode),
			Spectators: sess.Game.SpectatorCount(),
		})
	}
	return list
}
