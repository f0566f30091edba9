package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dice-offline/internal/handlers"
	"dice-offline/internal/middleware"
	"dice-offline/internal/models"
	"dice-offline/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fixedSource always lands on the same face.
type fixedSource struct{ face int }

func (s fixedSource) IntN(n int) int {
	return min(s.face, n) - 1
}

type testClient struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func newTestAPI(t *testing.T, face int) (*testClient, *handlers.API) {
	t.Helper()
	store := services.NewMemoryStore()
	tray := services.NewTrayService(store, services.NewDiceEngine(fixedSource{face: face}))
	api := handlers.NewAPI(tray, services.NewCombatStore(store))
	t.Cleanup(api.Close)

	router := handlers.NewRouter(false)
	api.Register(router)
	return &testClient{t: t, router: router}, api
}

func (tc *testClient) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	tc.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.cookie != nil {
		req.AddCookie(tc.cookie)
	}

	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.TableCookie {
			tc.cookie = c
		}
	}

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			tc.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return w, out
}

func TestTableSessionIssuesCookie(t *testing.T) {
	client, _ := newTestAPI(t, 5)

	w, _ := client.do(http.MethodGet, "/api/tray", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if client.cookie == nil || !models.IsTableID(client.cookie.Value) {
		t.Fatalf("expected a table cookie, got %v", client.cookie)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("api responses should not be cached, got %q", w.Header().Get("Cache-Control"))
	}

	first := client.cookie.Value
	w, _ = client.do(http.MethodGet, "/api/tray", "")
	if len(w.Result().Cookies()) != 0 {
		t.Error("existing table cookie should not be reissued")
	}
	if client.cookie.Value != first {
		t.Error("table id changed between requests")
	}
}

func TestTrayEndpoints(t *testing.T) {
	client, _ := newTestAPI(t, 6)

	w, body := client.do(http.MethodPut, "/api/tray", `{"quantity":"3","sides":"6"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	tray := body["tray"].(map[string]any)
	if tray["quantity"].(float64) != 3 || tray["sides"].(float64) != 6 || tray["mode_visible"].(bool) {
		t.Errorf("unexpected tray %v", tray)
	}

	w, body = client.do(http.MethodPost, "/api/tray/roll", "")
	if w.Code != http.StatusOK {
		t.Fatalf("roll status = %d", w.Code)
	}
	result := body["result"].(map[string]any)
	if result["total"].(float64) != 18 {
		t.Errorf("total = %v, want 18", result["total"])
	}
	output := body["tray"].(map[string]any)["output"].(string)
	if !strings.Contains(output, `<span class="num max">6</span>`) || !strings.Contains(output, "3d6 : ") {
		t.Errorf("unexpected output %s", output)
	}

	_, body = client.do(http.MethodPost, "/api/tray/reset", "")
	tray = body["tray"].(map[string]any)
	if tray["output"] != services.EmptyOutput() || tray["sides"].(float64) != 20 {
		t.Errorf("unexpected reset tray %v", tray)
	}
}

func TestTrayCycleAndAdvantage(t *testing.T) {
	client, _ := newTestAPI(t, 20)

	_, body := client.do(http.MethodPost, "/api/tray/cycle", "")
	tray := body["tray"].(map[string]any)
	if tray["mode"] != "adv" || tray["mode_label"] != "ADV" {
		t.Fatalf("unexpected tray %v", tray)
	}

	_, body = client.do(http.MethodPost, "/api/tray/repeat", "")
	result := body["result"].(map[string]any)
	if result["mode"] != "adv" || result["chosen"].(float64) != 20 {
		t.Errorf("unexpected result %v", result)
	}
}

func TestTrayUpdateRejectsBadJSON(t *testing.T) {
	client, _ := newTestAPI(t, 1)

	w, body := client.do(http.MethodPut, "/api/tray", `{"quantity":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if body["error"] != "Invalid request" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestCombatEndpoints(t *testing.T) {
	client, _ := newTestAPI(t, 1)

	_, body := client.do(http.MethodGet, "/api/combat", "")
	combat := body["combat"].(map[string]any)
	if combat["ac"] != nil {
		t.Errorf("fresh ac should be null, got %v", combat["ac"])
	}
	if body["hud"].(map[string]any)["visible"].(bool) {
		t.Error("fresh HUD should be hidden")
	}

	w, body := client.do(http.MethodPut, "/api/combat/hp", `{"value":"12"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set status = %d: %s", w.Code, w.Body.String())
	}
	if body["combat"].(map[string]any)["hp"] != "12" || body["hud"].(map[string]any)["hp"] != "12" {
		t.Errorf("unexpected body %v", body)
	}

	w, _ = client.do(http.MethodPut, "/api/combat/hp", `{"value":"many"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid value status = %d", w.Code)
	}

	w, _ = client.do(http.MethodPut, "/api/combat/mana", `{"value":"3"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown field status = %d", w.Code)
	}

	w, _ = client.do(http.MethodPut, "/api/combat/ac", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing value status = %d", w.Code)
	}

	_, body = client.do(http.MethodPost, "/api/combat/reset", "")
	if body["combat"].(map[string]any)["hp"] != "" {
		t.Errorf("reset hp = %v, want empty string", body["combat"].(map[string]any)["hp"])
	}
}

func TestWebSocketReceivesCombatChanges(t *testing.T) {
	client, _ := newTestAPI(t, 1)
	client.do(http.MethodGet, "/api/combat", "")

	server := httptest.NewServer(client.router)
	defer server.Close()

	header := http.Header{"Cookie": {middleware.TableCookie + "=" + client.cookie.Value}}
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws?view=hud"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if msg["type"] != handlers.MessageCombatState || msg["view"] != handlers.ViewHUD {
		t.Fatalf("unexpected initial message %v", msg)
	}

	client.do(http.MethodPut, "/api/combat/ac", `{"value":"18"}`)

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read change: %v", err)
	}
	data := msg["data"].(map[string]any)
	if data["ac"] != "18" || data["maxhp"] != models.HUDPlaceholder || !data["visible"].(bool) {
		t.Errorf("unexpected hud data %v", data)
	}

	if err := conn.WriteJSON(map[string]string{"type": handlers.MessagePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg["type"] != handlers.MessagePong {
		t.Errorf("expected pong, got %v", msg)
	}
}

func TestAssetHandler(t *testing.T) {
	files := fstest.MapFS{
		"index.html":    {Data: []byte("<!doctype html><title>dice</title>")},
		"style.css":     {Data: []byte("body{}")},
		"manifest.json": {Data: []byte("{}")},
	}
	router := gin.New()
	if err := handlers.NewAssetHandler(files).Register(router); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		path        string
		contentType string
	}{
		{"/", "text/html"},
		{"/style.css", "text/css"},
		{"/manifest.json", "application/manifest+json"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", tc.path, w.Code)
			continue
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), tc.contentType) {
			t.Errorf("%s content type = %q", tc.path, w.Header().Get("Content-Type"))
		}
		if w.Header().Get("Cache-Control") != "no-cache" {
			t.Errorf("%s cache control = %q", tc.path, w.Header().Get("Cache-Control"))
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d", w.Code)
	}
}

func TestWebSocketSurvivesHubStop(t *testing.T) {
	client, api := newTestAPI(t, 1)
	client.do(http.MethodGet, "/api/combat", "")

	server := httptest.NewServer(client.router)
	defer server.Close()

	header := http.Header{"Cookie": {middleware.TableCookie + "=" + client.cookie.Value}}
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read initial state: %v", err)
	}

	api.Close()
	api.Hub.Broadcast(&handlers.Message{Type: handlers.MessageCombatState, TableID: client.cookie.Value})
	_ = conn.WriteJSON(map[string]string{"type": handlers.MessagePing})

	for {
		if err := conn.ReadJSON(&msg); err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatal("stopped hub should close the connection")
			}
			break
		}
	}

	// A second websocket after shutdown is refused without blocking.
	if conn2, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		conn2.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn2.ReadJSON(&msg); err == nil {
			t.Error("stopped hub should not serve new clients")
		}
		conn2.Close()
	}
}
