package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/alarmdotcom"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/entity"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/hass"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
)

const (
	testSecret   = "test-secret-key-at-least-32-characters-long"
	testUniqueID = "cam-1_indicator-led"
)

// mockWriter implements alarmdotcom.SettingWriter for testing.
type mockWriter struct {
	mu     sync.Mutex
	values []int
	err    error
	block  bool
}

func (m *mockWriter) ChangeSetting(ctx context.Context, _, _ string, value int) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values = append(m.values, value)
	return nil
}

// mockNumbers implements NumberService over real entities.
type mockNumbers struct {
	entities []*number.Entity
}

func (m *mockNumbers) Entity(uniqueID string) (*number.Entity, error) {
	for _, e := range m.entities {
		if e.UniqueID() == uniqueID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", hass.ErrEntityNotFound, uniqueID)
}

func (m *mockNumbers) Entities() []*number.Entity { return m.entities }

func (m *mockNumbers) SetValue(ctx context.Context, uniqueID string, value float64) error {
	e, err := m.Entity(uniqueID)
	if err != nil {
		return err
	}
	return e.SetNativeValue(ctx, value)
}

// mockHistory implements HistoryStore for testing.
type mockHistory struct {
	entries   []entity.HistoryEntry
	err       error
	lastLimit int
}

func (m *mockHistory) History(_ context.Context, _ string, limit int) ([]entity.HistoryEntry, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

type mockStatus struct{}

func (mockStatus) Status() alarmdotcom.ControllerStatus {
	return alarmdotcom.ControllerStatus{Cameras: 1}
}

type mockConn struct {
	connected     bool
	subscriptions int
}

func (m mockConn) IsConnected() bool      { return m.connected }
func (m mockConn) SubscriptionCount() int { return m.subscriptions }

type testEnv struct {
	srv     *Server
	router  http.Handler
	writer  *mockWriter
	history *mockHistory
	token   string
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// testServer creates a Server over one brightness entity with value 42.
func testServer(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		writer: &mockWriter{},
		history: &mockHistory{entries: []entity.HistoryEntry{
			{ID: 2, UniqueID: testUniqueID, Value: 55, Source: entity.SourcePoll},
			{ID: 1, UniqueID: testUniqueID, Value: 42, Source: entity.SourcePoll},
		}},
	}

	lo, hi := 0.0, 100.0
	opt := alarmdotcom.NewConfigurationOption("indicator-led", "LED Brightness", alarmdotcom.OptionBrightness, &lo, &hi, "42")
	dev := alarmdotcom.NewDevice("cam-1", "Front Door", "Skybell HD", []alarmdotcom.Setting{opt}, env.writer, nil)
	e := number.NewEntity(nil, dev, opt)
	if err := e.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security:       config.SecurityConfig{JWT: config.JWTConfig{Secret: testSecret}},
		Logger:         testLogger(),
		Numbers:        &mockNumbers{entities: []*number.Entity{e}},
		History:        env.history,
		Status:         mockStatus{},
		MQTT:           mockConn{connected: true, subscriptions: 3},
		Version:        "test",
		CommandTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	token, err := IssueToken(testSecret, "operator", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	env.srv = srv
	env.router = srv.buildRouter()
	env.token = token
	return env
}

// do sends an authenticated request through the router.
func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+env.token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) Error {
	t.Helper()
	var e Error
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	return e
}

// ─── Construction ─────────────────────────────────────────────────

func TestNew_RequiredDeps(t *testing.T) {
	if _, err := New(Deps{Numbers: &mockNumbers{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: testLogger()}); err == nil {
		t.Error("New() without number service should fail")
	}
}

// ─── Health and Status ────────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health = %v", resp)
	}
}

func TestStatus(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got SystemStatus
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Numbers.Total != 1 || got.Numbers.NoValue != 0 {
		t.Errorf("Numbers = %+v", got.Numbers)
	}
	if got.MQTT == nil || !got.MQTT.Connected || got.MQTT.Subscriptions != 3 {
		t.Errorf("MQTT = %+v, want connected with 3 subscriptions", got.MQTT)
	}
	if got.Controller == nil || got.Controller.Cameras != 1 {
		t.Errorf("Controller = %+v", got.Controller)
	}
}

// ─── Middleware ───────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/numbers", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q", got)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t)
	if w := env.do(http.MethodGet, "/api/v1/nonexistent", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	env := testServer(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ─── Auth ─────────────────────────────────────────────────────────

func TestAuth_Rejections(t *testing.T) {
	env := testServer(t)

	expired, err := IssueToken(testSecret, "operator", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	foreign, err := IssueToken("another-secret-that-is-long-enough-1234", "operator", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	noSubject, err := IssueToken(testSecret, "", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + env.token},
		{"garbage", "Bearer not-a-jwt"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
		{"no subject", "Bearer " + noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/numbers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestIssueToken_NoSecret(t *testing.T) {
	if _, err := IssueToken("", "operator", time.Minute); !errors.Is(err, errMissingSecret) {
		t.Errorf("IssueToken() error = %v, want errMissingSecret", err)
	}
}

func TestWSTicket_SingleUse(t *testing.T) {
	env := testServer(t)

	w := env.do(http.MethodPost, "/api/v1/auth/ws-ticket", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Ticket string `json:"ticket"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Ticket == "" {
		t.Fatal("expected a non-empty ticket")
	}

	entry, ok := env.srv.tickets.consume(resp.Ticket)
	if !ok || entry.subject != "operator" {
		t.Errorf("first consume = %+v, %v; want operator, true", entry, ok)
	}
	if _, ok := env.srv.tickets.consume(resp.Ticket); ok {
		t.Error("ticket should not be valid on second use")
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	store := newTicketStore()
	ticket := generateTicket()
	store.tickets[ticket] = ticketEntry{subject: "operator", expiresAt: time.Now().Add(-time.Second)}

	if _, ok := store.consume(ticket); ok {
		t.Error("expired ticket should not be valid")
	}

	store.tickets["stale"] = ticketEntry{expiresAt: time.Now().Add(-time.Second)}
	store.cleanExpired()
	if len(store.tickets) != 0 {
		t.Errorf("tickets after cleanExpired = %d, want 0", len(store.tickets))
	}
}

// ─── Numbers ──────────────────────────────────────────────────────

func TestListNumbers(t *testing.T) {
	env := testServer(t)

	w := env.do(http.MethodGet, "/api/v1/numbers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Numbers []number.State `json:"numbers"`
		Count   int            `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || len(resp.Numbers) != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	st := resp.Numbers[0]
	if st.UniqueID != testUniqueID || st.Mode != number.ModeSlider || st.Value == nil || *st.Value != 42 {
		t.Errorf("state = %+v", st)
	}
}

func TestGetNumber(t *testing.T) {
	env := testServer(t)

	w := env.do(http.MethodGet, "/api/v1/numbers/"+testUniqueID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var st number.State
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Icon != "mdi:brightness-5" {
		t.Errorf("Icon = %q", st.Icon)
	}

	if w := env.do(http.MethodGet, "/api/v1/numbers/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown number status = %d, want 404", w.Code)
	}
}

func TestSetNumberValue_Accepted(t *testing.T) {
	env := testServer(t)

	w := env.do(http.MethodPut, "/api/v1/numbers/"+testUniqueID+"/value", `{"value": 67.9}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", w.Code, w.Body.String())
	}

	env.writer.mu.Lock()
	got := append([]int(nil), env.writer.values...)
	env.writer.mu.Unlock()
	if len(got) != 1 || got[0] != 67 {
		t.Errorf("vendor writes = %v, want [67]", got)
	}

	// Displayed value waits for the next refresh.
	w = env.do(http.MethodGet, "/api/v1/numbers/"+testUniqueID, "")
	var st number.State
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if *st.Value != 42 {
		t.Errorf("Value = %v after write, want 42", *st.Value)
	}
}

func TestSetNumberValue_Errors(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		body     string
		setup    func(*mockWriter)
		wantCode int
		wantErr  string
	}{
		{"invalid json", testUniqueID, `{"value":`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing value", testUniqueID, `{}`, nil, http.StatusBadRequest, ErrCodeValidation},
		{"unknown number", "nope", `{"value": 1}`, nil, http.StatusNotFound, ErrCodeNotFound},
		{"out of range", testUniqueID, `{"value": 1e300}`, nil, http.StatusBadRequest, ErrCodeValidation},
		{
			"vendor error", testUniqueID, `{"value": 10}`,
			func(m *mockWriter) {
				m.err = &alarmdotcom.APIError{Method: "PUT", Path: "/x", StatusCode: 500, Detail: "camera offline"}
			},
			http.StatusBadGateway, ErrCodeUpstream,
		},
		{"timeout", testUniqueID, `{"value": 10}`, func(m *mockWriter) { m.block = true }, http.StatusGatewayTimeout, ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			if tt.setup != nil {
				tt.setup(env.writer)
			}

			w := env.do(http.MethodPut, "/api/v1/numbers/"+tt.id+"/value", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.wantCode, w.Body.String())
			}
			if e := decodeError(t, w); e.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
			}
		})
	}
}

func TestSetNumberValue_VendorMessagePassedThrough(t *testing.T) {
	env := testServer(t)
	env.writer.err = &alarmdotcom.APIError{Method: "PUT", Path: "/x", StatusCode: 500, Detail: "camera offline"}

	w := env.do(http.MethodPut, "/api/v1/numbers/"+testUniqueID+"/value", `{"value": 10}`)
	if e := decodeError(t, w); !strings.Contains(e.Message, "camera offline") {
		t.Errorf("message = %q, want vendor detail", e.Message)
	}
}

func TestNumberHistory(t *testing.T) {
	env := testServer(t)

	w := env.do(http.MethodGet, "/api/v1/numbers/"+testUniqueID+"/history?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		History []entity.HistoryEntry `json:"history"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 || resp.History[0].Value != 55 {
		t.Errorf("history = %+v", resp)
	}

	env.do(http.MethodGet, "/api/v1/numbers/"+testUniqueID+"/history", "")
	if env.history.lastLimit != defaultHistoryLimit {
		t.Errorf("default limit = %d, want %d", env.history.lastLimit, defaultHistoryLimit)
	}
}

func TestNumberHistory_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		setup    func(*testEnv)
		wantCode int
	}{
		{"bad limit", "/history?limit=abc", nil, http.StatusBadRequest},
		{"zero limit", "/history?limit=0", nil, http.StatusBadRequest},
		{"limit too large", "/history?limit=501", nil, http.StatusBadRequest},
		{"store error", "/history", func(env *testEnv) { env.history.err = errors.New("disk") }, http.StatusInternalServerError},
		{"no store", "/history", func(env *testEnv) { env.srv.history = nil }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			if tt.setup != nil {
				tt.setup(env)
			}
			w := env.do(http.MethodGet, "/api/v1/numbers/"+testUniqueID+tt.path, "")
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}

	env := testServer(t)
	if w := env.do(http.MethodGet, "/api/v1/numbers/nope/history", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown number status = %d, want 404", w.Code)
	}
}

// ─── WebSocket Hub ────────────────────────────────────────────────

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := newTestHub(t)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{hass.EventNumberState: {}},
	}
	hub.Register(client)

	hub.Broadcast(hass.EventNumberState, map[string]any{"unique_id": testUniqueID})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.EventType != hass.EventNumberState {
			t.Errorf("message = %+v", wsMsg)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := newTestHub(t)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{"other.channel": {}},
	}
	hub.Register(client)

	hub.Broadcast(hass.EventNumberState, map[string]any{"unique_id": testUniqueID})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

// ─── WebSocket Connection ─────────────────────────────────────────

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws" + query
}

func TestWebSocket_TicketSubscribeAndBroadcast(t *testing.T) {
	env := testServer(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	w := env.do(http.MethodPost, "/api/v1/auth/ws-ticket", "")
	var ticket struct {
		Ticket string `json:"ticket"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ticket); err != nil {
		t.Fatalf("unmarshal ticket: %v", err)
	}

	ws, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "?ticket="+ticket.Ticket), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	defer ws.Close()

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{hass.EventNumberState}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read subscribe response: %v", err)
	}
	if msg.Type != WSTypeResponse || msg.ID != "sub-1" {
		t.Errorf("subscribe response = %+v", msg)
	}

	env.srv.Hub().Broadcast(hass.EventNumberState, map[string]string{"unique_id": testUniqueID})

	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if msg.Type != WSTypeEvent || msg.EventType != hass.EventNumberState {
		t.Errorf("broadcast = %+v", msg)
	}
}

func TestWebSocket_BearerPingAndErrors(t *testing.T) {
	env := testServer(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+env.token)
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), header)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	defer ws.Close()

	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg.Type != WSTypePong || msg.ID != "ping-1" {
		t.Errorf("pong = %+v", msg)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write invalid: %v", err)
	}
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if msg.Type != WSTypeError {
		t.Errorf("invalid JSON response type = %s, want error", msg.Type)
	}

	if err := ws.WriteJSON(WSMessage{Type: "unknown_type", ID: "x"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if msg.Type != WSTypeError || msg.ID != "x" {
		t.Errorf("unknown type response = %+v", msg)
	}
}

func TestWebSocket_Unauthorised(t *testing.T) {
	env := testServer(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	for _, query := range []string{"", "?ticket=invalid-ticket"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, query), nil)
		if err == nil {
			t.Fatalf("dial %q: expected error", query)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("dial %q: response = %v, want 401", query, resp)
		}
	}
}

func TestServer_HealthCheckBeforeStart(t *testing.T) {
	env := testServer(t)
	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}
}
