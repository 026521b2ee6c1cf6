package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// ---------- helpers ----------

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

type testServer struct {
	*httptest.Server
	wsURL    string
	sessions *SessionManager
	hub      *Hub
}

// startTestServer spins up an httptest.Server with a Hub. api.ReplayDir and
// api.Oracle are passed through to the routes.
func startTestServer(t *testing.T, api API) *testServer {
	t.Helper()

	prevIdleTimeout := SessionIdleTimeout
	SessionIdleTimeout = 150 * time.Millisecond

	// Create a temp client dir with a minimal index.html
	tmpDir := t.TempDir()
	jsDir := filepath.Join(tmpDir, "js")
	os.MkdirAll(jsDir, 0o755)
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)
	os.WriteFile(filepath.Join(jsDir, "main.js"), []byte("// test"), 0o644)

	sessions := NewSessionManager(testConfig(), api.Oracle, nil, api.ReplayDir)
	hub := NewHub(sessions, nil, nil, false)
	go hub.Run()

	srv := httptest.NewServer(SetupRoutes(hub, tmpDir, api))
	t.Cleanup(func() {
		srv.Close()
		sessions.CloseAll()
		SessionIdleTimeout = prevIdleTimeout
	})

	return &testServer{
		Server:   srv,
		wsURL:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		sessions: sessions,
		hub:      hub,
	}
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

// readEnvelope reads one message from the WebSocket. Binary frames are
// msgpack-encoded arena states.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	if msgType == websocket.BinaryMessage {
		var st ArenaState
		if err := msgpack.Unmarshal(raw, &st); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		return Envelope{T: MsgState, Data: st}
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

// readUntil skips messages until one of type want arrives. A joined client
// gets state frames interleaved with replies.
func readUntil(t *testing.T, conn *websocket.Conn, want string) Envelope {
	t.Helper()
	for i := 0; i < 200; i++ {
		env := readEnvelope(t, conn)
		if env.T == want {
			return env
		}
	}
	t.Fatalf("no %s message", want)
	return Envelope{}
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	env := Envelope{T: msgType, Data: data}
	raw, _ := json.Marshal(env)
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// dataMap extracts the Data field as map[string]interface{}.
func dataMap(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	raw, _ := json.Marshal(env.Data)
	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	return m
}

// createAndJoin creates a session then joins it. Returns the session ID.
func createAndJoin(t *testing.T, conn *websocket.Conn, name, sname string, mode Mode) string {
	t.Helper()
	sendMsg(t, conn, MsgCreate, map[string]string{"name": name, "sname": sname, "mode": string(mode)})
	created := readEnvelope(t, conn)
	if created.T != MsgCreated {
		t.Fatalf("expected created, got %s", created.T)
	}
	d := dataMap(t, created)
	if d["mode"] != string(mode) {
		t.Errorf("expected mode %s, got %v", mode, d["mode"])
	}
	sid := d["sid"].(string)

	sendMsg(t, conn, MsgJoin, map[string]string{"name": name, "sid": sid})
	joined := readUntil(t, conn, MsgJoined)
	if dataMap(t, joined)["sid"] != sid {
		t.Fatalf("joined the wrong session: %v", joined.Data)
	}
	return sid
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		json.NewDecoder(resp.Body).Decode(v)
	}
	return resp.StatusCode
}

// ---------- IDs ----------

func TestGenerateUUIDFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := GenerateUUID()
		if !uuidRegex.MatchString(id) {
			t.Fatalf("invalid UUID v4: %s", id)
		}
	}
}

func TestGenerateUUIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateUUID()
		if seen[id] {
			t.Fatalf("duplicate UUID: %s", id)
		}
		seen[id] = true
	}
}

func TestGenerateIDLength(t *testing.T) {
	if id := GenerateID(4); len(id) != 8 {
		t.Errorf("4 bytes should give 8 hex chars, got %q", id)
	}
}

// ---------- SPA routing ----------

func TestSPARoutingRoot(t *testing.T) {
	srv := startTestServer(t, API{})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "<html>test</html>") {
		t.Errorf("expected index.html, got %d %q", resp.StatusCode, body)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected Cache-Control: no-cache, got %q", cc)
	}
}

func TestSPARoutingUUIDPath(t *testing.T) {
	srv := startTestServer(t, API{})

	resp, err := http.Get(srv.URL + "/" + GenerateUUID())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "<html>test</html>") {
		t.Errorf("session URLs should serve the app, got %d %q", resp.StatusCode, body)
	}
}

func TestSPARoutingStaticFiles(t *testing.T) {
	srv := startTestServer(t, API{})

	resp, err := http.Get(srv.URL + "/js/main.js")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "// test" {
		t.Errorf("expected main.js content, got %q", body)
	}
}

func TestSPARoutingNonUUIDPath(t *testing.T) {
	srv := startTestServer(t, API{})

	resp, err := http.Get(srv.URL + "/not-a-session")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

// ---------- Sessions over WS ----------

func TestCheckSession(t *testing.T) {
	srv := startTestServer(t, API{})

	c1 := dialWS(t, srv.wsURL)
	defer c1.Close()
	sid := createAndJoin(t, c1, "Coach", "Ring", ModeBoxing)

	c2 := dialWS(t, srv.wsURL)
	defer c2.Close()
	sendMsg(t, c2, MsgCheck, map[string]string{"sid": sid})
	d := dataMap(t, readEnvelope(t, c2))
	if d["exists"] != true || d["name"] != "Ring" || d["mode"] != "boxing" {
		t.Errorf("unexpected check result %v", d)
	}
	if d["spectators"] != float64(1) {
		t.Errorf("expected 1 spectator, got %v", d["spectators"])
	}

	sendMsg(t, c2, MsgCheck, map[string]string{"sid": GenerateUUID()})
	d = dataMap(t, readEnvelope(t, c2))
	if d["exists"] != false {
		t.Errorf("unknown session should not exist, got %v", d)
	}
}

func TestCreateUnknownMode(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()

	sendMsg(t, c, MsgCreate, map[string]string{"sname": "x", "mode": "chess"})
	env := readEnvelope(t, c)
	if env.T != MsgError || dataMap(t, env)["msg"] != ErrUnknownMode.Error() {
		t.Errorf("expected an unknown mode error, got %s %v", env.T, env.Data)
	}
}

func TestJoinNonExistentSession(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()

	sendMsg(t, c, MsgJoin, map[string]string{"name": "Ghost", "sid": GenerateUUID()})
	env := readEnvelope(t, c)
	if env.T != MsgError || dataMap(t, env)["msg"] != ErrUnknownSession.Error() {
		t.Errorf("expected session not found, got %s %v", env.T, env.Data)
	}
}

func TestLeaveReapsIdleSession(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()

	sid := createAndJoin(t, c, "Coach", "Short", ModeSandbox)
	sendMsg(t, c, MsgLeave, nil)

	time.Sleep(2*SessionIdleTimeout + 50*time.Millisecond)
	if srv.sessions.GetSession(sid) != nil {
		t.Error("empty session should be reaped after the idle timeout")
	}
}

func TestDisconnectCleansUpSession(t *testing.T) {
	srv := startTestServer(t, API{})

	c1 := dialWS(t, srv.wsURL)
	sid := createAndJoin(t, c1, "Temp", "TempArena", ModeSoccer)
	c1.Close()

	time.Sleep(2*SessionIdleTimeout + 50*time.Millisecond)

	c2 := dialWS(t, srv.wsURL)
	defer c2.Close()
	sendMsg(t, c2, MsgCheck, map[string]string{"sid": sid})
	if dataMap(t, readEnvelope(t, c2))["exists"] != false {
		t.Error("session should be cleaned up after disconnect")
	}
}

func TestListSessions(t *testing.T) {
	srv := startTestServer(t, API{})

	c1 := dialWS(t, srv.wsURL)
	defer c1.Close()
	createAndJoin(t, c1, "Coach", "Listed", ModeSandbox)

	c2 := dialWS(t, srv.wsURL)
	defer c2.Close()
	sendMsg(t, c2, MsgList, nil)
	env := readEnvelope(t, c2)
	if env.T != MsgSessions {
		t.Fatalf("expected sessions, got %s", env.T)
	}
	raw, _ := json.Marshal(env.Data)
	var list []SessionInfo
	json.Unmarshal(raw, &list)
	if len(list) != 1 || list[0].Name != "Listed" || list[0].Mode != "sandbox" || list[0].Spectators != 1 {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestStateBroadcasts(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()
	createAndJoin(t, c, "Coach", "Pitch", ModeSoccer)

	env := readUntil(t, c, MsgState)
	st := env.Data.(ArenaState)
	if st.Mode != "soccer" || st.Tick == 0 {
		t.Errorf("unexpected state mode=%s tick=%d", st.Mode, st.Tick)
	}
	if st.Ball == nil || len(st.Agents) != 2 || len(st.Scores) != 2 {
		t.Errorf("soccer state needs a ball, two robots and a score, got %+v", st)
	}
}

func TestControlOverWS(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()

	sendMsg(t, c, MsgControl, ControlCmd{Cmd: CmdActivate})
	if env := readEnvelope(t, c); env.T != MsgError || dataMap(t, env)["msg"] != "not in a session" {
		t.Errorf("control before join should fail, got %s %v", env.T, env.Data)
	}

	createAndJoin(t, c, "Coach", "Ring", ModeBoxing)

	sendMsg(t, c, MsgControl, ControlCmd{Cmd: CmdActivate})
	ok := readUntil(t, c, MsgControlOK)
	if dataMap(t, ok)["cmd"] != CmdActivate {
		t.Errorf("unexpected ack %v", ok.Data)
	}

	sendMsg(t, c, MsgControl, ControlCmd{Cmd: CmdSurface, Surface: "hills"})
	if env := readUntil(t, c, MsgError); !strings.Contains(dataMap(t, env)["msg"].(string), ErrUnsupportedControl.Error()) {
		t.Errorf("boxing has no surfaces, got %v", env.Data)
	}
}

func TestStatsOverWS(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()
	sid := createAndJoin(t, c, "Coach", "Stats", ModeSandbox)

	sendMsg(t, c, MsgStats, nil)
	env := readUntil(t, c, MsgStats)
	raw, _ := json.Marshal(env.Data)
	var stats StatsMsg
	json.Unmarshal(raw, &stats)
	if stats.SID != sid || stats.Mode != "sandbox" || len(stats.Agents) != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAuthDisabledOverWS(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()

	sendMsg(t, c, MsgAuth, AuthMsg{Token: "whatever"})
	if env := readEnvelope(t, c); env.T != MsgError || dataMap(t, env)["msg"] != "auth disabled" {
		t.Errorf("expected auth disabled, got %s %v", env.T, env.Data)
	}
}

func TestMultipleSpectators(t *testing.T) {
	srv := startTestServer(t, API{})

	c1 := dialWS(t, srv.wsURL)
	defer c1.Close()
	sid := createAndJoin(t, c1, "A", "Shared", ModeBoxing)

	c2 := dialWS(t, srv.wsURL)
	defer c2.Close()
	sendMsg(t, c2, MsgJoin, map[string]string{"sid": sid})
	joined := readUntil(t, c2, MsgJoined)
	if dataMap(t, joined)["mode"] != "boxing" {
		t.Errorf("joined should carry the mode, got %v", joined.Data)
	}

	if n := srv.sessions.GetSession(sid).Game.SpectatorCount(); n != 2 {
		t.Errorf("expected 2 spectators, got %d", n)
	}
	readUntil(t, c1, MsgState)
	readUntil(t, c2, MsgState)
}

func TestLeaveWithoutJoining(t *testing.T) {
	srv := startTestServer(t, API{})
	c := dialWS(t, srv.wsURL)
	defer c.Close()

	sendMsg(t, c, MsgLeave, nil)
	sendMsg(t, c, MsgList, nil)
	if env := readEnvelope(t, c); env.T != MsgSessions {
		t.Fatalf("expected sessions, got %s", env.T)
	}
}

func TestHubClientCount(t *testing.T) {
	hub := NewHub(NewSessionManager(testConfig(), nil, nil, ""), nil, nil, false)
	if hub.ClientCount() != 0 || hub.TotalConns() != 0 {
		t.Error("new hub should be empty")
	}
	for i := 0; i < maxConnsPerIP; i++ {
		hub.TrackConnect("10.0.0.1")
	}
	if hub.CanAccept("10.0.0.1") {
		t.Error("per-IP limit should apply")
	}
	if !hub.CanAccept("10.0.0.2") {
		t.Error("other addresses are unaffected")
	}
	hub.TrackDisconnect("10.0.0.1")
	if !hub.CanAccept("10.0.0.1") || hub.TotalConns() != maxConnsPerIP-1 {
		t.Error("disconnect should free a slot")
	}
}

func TestHubOperatorGate(t *testing.T) {
	noAuth := NewHub(NewSessionManager(testConfig(), nil, nil, ""), nil, nil, true)
	if err := noAuth.CanControl(&Client{}); err != nil {
		t.Errorf("without auth anyone may control, got %v", err)
	}

	hub := NewHub(NewSessionManager(testConfig(), nil, nil, ""), nil, NewAuth(nil), true)
	c1, c2 := &Client{}, &Client{}
	if err := hub.CanControl(c1); !errors.Is(err, errNotOperator) {
		t.Errorf("expected errNotOperator, got %v", err)
	}

	hub.SignIn(c1, 7, "coach")
	hub.SignIn(c2, 7, "coach")
	if err := hub.CanControl(c1); err != nil {
		t.Errorf("signed-in client should control, got %v", err)
	}
	if ops := hub.Operators(); len(ops) != 1 || ops[0] != "coach" {
		t.Errorf("expected [coach], got %v", ops)
	}

	hub.SignIn(c2, 9, "referee")
	if ops := hub.Operators(); len(ops) != 2 || ops[0] != "coach" || ops[1] != "referee" {
		t.Errorf("switching operator should move the connection, got %v", ops)
	}

	hub.drop(c1)
	hub.drop(c2)
	if ops := hub.Operators(); len(ops) != 0 {
		t.Errorf("departed operators should be forgotten, got %v", ops)
	}
	if err := hub.CanControl(c1); err == nil {
		t.Error("a dropped client loses control rights")
	}
}

func TestControlNeedsOperatorToken(t *testing.T) {
	auth := NewAuth(nil)
	sessions := NewSessionManager(testConfig(), nil, nil, "")
	hub := NewHub(sessions, nil, auth, true)
	go hub.Run()
	srv := httptest.NewServer(SetupRoutes(hub, t.TempDir(), API{}))
	t.Cleanup(func() {
		srv.Close()
		sessions.CloseAll()
	})

	c := dialWS(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	defer c.Close()
	createAndJoin(t, c, "Ann", "Ring", ModeBoxing)

	sendMsg(t, c, MsgControl, ControlCmd{Cmd: CmdActivate})
	if env := readUntil(t, c, MsgError); dataMap(t, env)["msg"] != errNotOperator.Error() {
		t.Fatalf("expected %q, got %v", errNotOperator, env.Data)
	}

	_, token, err := auth.issue(7, "coach")
	if err != nil {
		t.Fatal(err)
	}
	sendMsg(t, c, MsgAuth, AuthMsg{Token: token})
	if env := readUntil(t, c, MsgAuthOK); dataMap(t, env)["username"] != "coach" {
		t.Errorf("unexpected auth reply %v", env.Data)
	}

	var health map[string]interface{}
	getJSON(t, srv.URL+"/api/health", &health)
	if ops, _ := health["operators"].([]interface{}); len(ops) != 1 || ops[0] != "coach" {
		t.Errorf("health should list the operator, got %v", health["operators"])
	}

	sendMsg(t, c, MsgControl, ControlCmd{Cmd: CmdActivate})
	readUntil(t, c, MsgControlOK)
}

// ---------- HTTP API ----------

func TestHealthEndpoint(t *testing.T) {
	srv := startTestServer(t, API{})
	if _, err := srv.sessions.CreateSession("h", ModeSandbox); err != nil {
		t.Fatal(err)
	}

	var resp map[string]interface{}
	if code := getJSON(t, srv.URL+"/api/health", &resp); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp["status"] != "ok" || resp["sessions"] != float64(1) {
		t.Errorf("unexpected health %v", resp)
	}
}

func TestDecisionEndpoint(t *testing.T) {
	srv := startTestServer(t, API{Oracle: &stubOracle{reply: "I would jump now."}})

	body, _ := json.Marshal(Situation{OnGround: true, HasTarget: true, TargetDist: 4})
	resp, err := http.Post(srv.URL+"/api/decision?mode=sandbox", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var d DecisionResponse
	json.NewDecoder(resp.Body).Decode(&d)
	if d.Action != ActionJump || d.Source != SourceOracle || d.Reply == "" {
		t.Errorf("expected the oracle's jump, got %+v", d)
	}

	resp2, err := http.Post(srv.URL+"/api/decision?mode=chess", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown mode should be 400, got %d", resp2.StatusCode)
	}
}

func TestDecisionEndpointFallback(t *testing.T) {
	srv := startTestServer(t, API{})

	resp, err := http.Post(srv.URL+"/api/decision?mode=boxing", "application/json", strings.NewReader(`{"health":80}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var d DecisionResponse
	json.NewDecoder(resp.Body).Decode(&d)
	if d.Source != SourceFallback || !CombatVocabulary.Contains(d.Action) {
		t.Errorf("expected a random combat action, got %+v", d)
	}
}

func TestLearningEndpoint(t *testing.T) {
	srv := startTestServer(t, API{})
	sess, err := srv.sessions.CreateSession("l", ModeBoxing)
	if err != nil {
		t.Fatal(err)
	}

	var stats StatsMsg
	if code := getJSON(t, srv.URL+"/api/learning?sid="+sess.ID, &stats); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if stats.Mode != "boxing" || len(stats.Agents) != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if code := getJSON(t, srv.URL+"/api/learning?sid=nope", nil); code != http.StatusNotFound {
		t.Errorf("unknown session should be 404, got %d", code)
	}
}

func TestQREndpoint(t *testing.T) {
	srv := startTestServer(t, API{})
	sess, err := srv.sessions.CreateSession("qr", ModeSandbox)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/qr?sid=" + sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	png, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "image/png" || !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("expected a png, got %s (%d bytes)", resp.Header.Get("Content-Type"), len(png))
	}

	if code := getJSON(t, srv.URL+"/api/qr?sid="+GenerateUUID(), nil); code != http.StatusNotFound {
		t.Errorf("unknown session should be 404, got %d", code)
	}
}

func TestAnalyticsEndpointsDisabled(t *testing.T) {
	srv := startTestServer(t, API{})
	for _, path := range []string{"/api/outcomes/summary", "/api/matches", "/api/replay?sid=x"} {
		if code := getJSON(t, srv.URL+path, nil); code != http.StatusNotFound {
			t.Errorf("%s: expected 404 when disabled, got %d", path, code)
		}
	}
}

func TestAuthEndpointsDisabled(t *testing.T) {
	srv := startTestServer(t, API{})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", strings.NewReader(`{"username":"a","password":"b"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 without auth, got %d", resp.StatusCode)
	}
}

func TestReplayEndpoint(t *testing.T) {
	dir := t.TempDir()
	srv := startTestServer(t, API{ReplayDir: dir})

	sess, err := srv.sessions.CreateSession("r", ModeSoccer)
	if err != nil {
		t.Fatal(err)
	}
	if code := getJSON(t, srv.URL+"/api/replay?sid="+sess.ID, nil); code != http.StatusConflict {
		t.Errorf("live session should be 409, got %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/replay?sid=not-a-uuid", nil); code != http.StatusBadRequest {
		t.Errorf("bad id should be 400, got %d", code)
	}
	if code := getJSON(t, srv.URL+"/api/replay?sid="+GenerateUUID(), nil); code != http.StatusNotFound {
		t.Errorf("missing replay should be 404, got %d", code)
	}

	// Emit through the game so the replay has at least one line
	sess.Game.mu.Lock()
	sess.Game.Emit(Event{Kind: EventMatchEnd, Data: MatchResult{Draw: true, Reason: EndTimeUp}})
	sess.Game.mu.Unlock()
	srv.sessions.CloseAll()

	var events []json.RawMessage
	if code := getJSON(t, srv.URL+"/api/replay?sid="+sess.ID, &events); code != 200 {
		t.Fatalf("closed session replay should be served, got %d", code)
	}
	if len(events) == 0 {
		t.Error("replay should contain the emitted event")
	}
}
