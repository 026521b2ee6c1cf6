package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

const (
	maxAPIBody = 64 * 1024
	qrSize     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// API holds what the HTTP endpoints need besides the hub. Every field is
// optional.
type API struct {
	Oracle        Oracle
	OracleTimeout time.Duration
	Analytics     *Analytics
	ReplayDir     string
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxAPIBody)).Decode(v)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, clientDir string, api API) *http.ServeMux {
	mux := http.NewServeMux()

	// Serve static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(clientDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		// SPA: serve index.html for root and UUID paths
		if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
			http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}))

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":    "ok",
			"sessions":  hub.sessions.Count(),
			"clients":   hub.ClientCount(),
			"conns":     hub.TotalConns(),
			"operators": hub.Operators(),
		}
		if api.Analytics != nil {
			resp["events"] = api.Analytics.EventCounts()
			resp["dropped"] = api.Analytics.Dropped()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("POST /api/register", func(w http.ResponseWriter, r *http.Request) {
		if hub.auth == nil {
			writeError(w, http.StatusNotFound, "auth disabled")
			return
		}
		var req credentials
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		id, token, err := hub.auth.Register(req.Username, req.Password)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, tokenResponse{Token: token, Username: req.Username, OperatorID: id})
	})

	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		if hub.auth == nil {
			writeError(w, http.StatusNotFound, "auth disabled")
			return
		}
		var req credentials
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		id, token, err := hub.auth.Login(req.Username, req.Password, extractIP(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{Token: token, Username: req.Username, OperatorID: id})
	})

	mux.HandleFunc("POST /api/decision", func(w http.ResponseWriter, r *http.Request) {
		mode, ok := ParseMode(r.URL.Query().Get("mode"))
		if !ok {
			writeError(w, http.StatusBadRequest, ErrUnknownMode.Error())
			return
		}
		var sit Situation
		if err := decodeBody(r, &sit); err != nil {
			writeError(w, http.StatusBadRequest, "bad situation")
			return
		}
		writeJSON(w, http.StatusOK, api.decide(r.Context(), mode, sit))
	})

	mux.HandleFunc("GET /api/learning", func(w http.ResponseWriter, r *http.Request) {
		sess := hub.sessions.GetSession(r.URL.Query().Get("sid"))
		if sess == nil {
			writeError(w, http.StatusNotFound, ErrUnknownSession.Error())
			return
		}
		writeJSON(w, http.StatusOK, StatsMsg{SID: sess.ID, Mode: string(sess.Mode), Agents: sess.Game.Stats()})
	})

	mux.HandleFunc("GET /api/outcomes/summary", func(w http.ResponseWriter, r *http.Request) {
		if api.Analytics == nil {
			writeError(w, http.StatusNotFound, "analytics disabled")
			return
		}
		summary, err := api.Analytics.OutcomeSummary(r.URL.Query().Get("mode"))
		if err != nil {
			log.Printf("api: outcome summary: %v", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if summary == nil {
			summary = []ActionSummary{}
		}
		writeJSON(w, http.StatusOK, summary)
	})

	mux.HandleFunc("GET /api/matches", func(w http.ResponseWriter, r *http.Request) {
		if api.Analytics == nil {
			writeError(w, http.StatusNotFound, "analytics disabled")
			return
		}
		matches, err := api.Analytics.RecentMatches(20)
		if err != nil {
			log.Printf("api: recent matches: %v", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if matches == nil {
			matches = []MatchRow{}
		}
		writeJSON(w, http.StatusOK, matches)
	})

	// QR code linking to a session page, for watching from a phone
	mux.HandleFunc("GET /api/qr", func(w http.ResponseWriter, r *http.Request) {
		sid := r.URL.Query().Get("sid")
		if hub.sessions.GetSession(sid) == nil {
			writeError(w, http.StatusNotFound, ErrUnknownSession.Error())
			return
		}
		png, err := qrcode.Encode(sessionURL(r, sid), qrcode.Medium, qrSize)
		if err != nil {
			log.Printf("api: qr: %v", err)
			writeError(w, http.StatusInternalServerError, "qr failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("GET /api/replay", func(w http.ResponseWriter, r *http.Request) {
		if api.ReplayDir == "" {
			writeError(w, http.StatusNotFound, "replays disabled")
			return
		}
		sid := r.URL.Query().Get("sid")
		if _, err := uuid.Parse(sid); err != nil {
			writeError(w, http.StatusBadRequest, "bad session id")
			return
		}
		// The compressed stream is only complete once the session has closed
		if hub.sessions.GetSession(sid) != nil {
			writeError(w, http.StatusConflict, "session still running")
			return
		}
		events, err := ReadReplay(ReplayPath(api.ReplayDir, sid))
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "no replay")
			return
		}
		if err != nil {
			log.Printf("api: replay %s: %v", sid, err)
			writeError(w, http.StatusInternalServerError, "replay unreadable")
			return
		}
		writeJSON(w, http.StatusOK, events)
	})

	return mux
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token      string `json:"token"`
	Username   string `json:"username"`
	OperatorID int64  `json:"oid"`
}

// DecisionResponse answers a one-off decision request
type DecisionResponse struct {
	Action Action         `json:"action"`
	Source DecisionSource `json:"source"`
	Reply  string         `json:"reply,omitempty"`
}

// decide asks the oracle once for sit and falls back to a random action when
// it is missing, fails or answers with nothing usable
func (api API) decide(ctx context.Context, mode Mode, sit Situation) DecisionResponse {
	vocab, random := SandboxVocabulary, SandboxRandomSet
	if mode != ModeSandbox {
		vocab, random = CombatVocabulary, CombatVocabulary
	}
	if api.Oracle != nil {
		timeout := api.OracleTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		text, err := api.Oracle.Decide(ctx, sit.Describe(vocab))
		if err == nil {
			if act, ok := ParseOracleReply(text, vocab); ok {
				return DecisionResponse{Action: act, Source: SourceOracle, Reply: truncate(text, 200)}
			}
		} else {
			log.Printf("api: oracle: %v", err)
		}
	}
	return DecisionResponse{Action: random.Random(NewRNG(0)), Source: SourceFallback}
}

func sessionURL(r *http.Request, sid string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return (&url.URL{Scheme: scheme, Host: r.Host, Path: "/" + sid}).String()
}
