package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/dkeye/Relay/internal/adapters/rtc"
	"github.com/dkeye/Relay/internal/adapters/signal"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>relay</html>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return &config.Config{
		Mode:       "test",
		StaticPath: static,
		ReadLimit:  64 * 1024,
		PingPeriod: time.Second,
		PongWait:   2 * time.Second,
		WriteWait:  time.Second,
		SendBuffer: 16,
		Secret:     "test-secret",
	}
}

func newEngine(t *testing.T, cfg *config.Config) (*gin.Engine, *app.Router) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := signal.NewHub()
	rt := &app.Router{
		Registry:  app.NewRoomRegistry(),
		Transport: hub,
		Policy:    app.SimplePolicy{},
		Metrics:   metrics.New(),
	}
	ctl := signal.NewSignalWSController(cfg, rt, hub)
	return SetupRouter(ctx, cfg, ctl, rtc.DefaultWebRTCConfig()), rt
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Rooms(t *testing.T) {
	r, rt := newEngine(t, testConfig(t))
	_, _ = rt.Registry.Join("a", "lobby")
	_, _ = rt.Registry.Join("b", "lobby")

	rec := get(t, r, "/api/rooms")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	var list struct {
		Rooms []struct {
			ID          string `json:"id"`
			MemberCount int    `json:"member_count"`
		} `json:"rooms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.Rooms) != 1 || list.Rooms[0].ID != "lobby" || list.Rooms[0].MemberCount != 2 {
		t.Fatalf("rooms=%+v", list.Rooms)
	}

	rec = get(t, r, "/api/rooms/lobby")
	var room struct {
		ID      string   `json:"id"`
		Members []string `json:"members"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &room); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if room.ID != "lobby" || len(room.Members) != 2 || room.Members[0] != "a" {
		t.Fatalf("room=%+v", room)
	}

	if rec := get(t, r, "/api/rooms/nowhere"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing room status=%d, want 404", rec.Code)
	}
}

func TestRouter_ICEAndHealth(t *testing.T) {
	r, _ := newEngine(t, testConfig(t))

	rec := get(t, r, "/api/ice")
	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.ICEServers) != 1 || body.ICEServers[0].URLs[0] != "stun:stun.l.google.com:19302" {
		t.Fatalf("iceServers=%+v", body.ICEServers)
	}

	rec = get(t, r, "/healthz")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"connections":0`) {
		t.Fatalf("healthz=%d %s", rec.Code, rec.Body.String())
	}

	rec = get(t, r, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "relay_connections") {
		t.Fatalf("metrics=%d", rec.Code)
	}

	rec = get(t, r, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "relay") {
		t.Fatalf("index=%d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ClientCookieIsIssued(t *testing.T) {
	r, _ := newEngine(t, testConfig(t))
	rec := get(t, r, "/healthz")
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "RelaySessions=") {
		t.Fatalf("Set-Cookie=%q, want session cookie", rec.Header().Get("Set-Cookie"))
	}
}

func TestRouter_AdmissionRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "jwt-secret"
	r, _ := newEngine(t, cfg)

	if rec := get(t, r, "/api/ws/signal"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status=%d, want 401", rec.Code)
	}
	if rec := get(t, r, "/api/ws/signal?token=junk"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status=%d, want 401", rec.Code)
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("jwt-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/signal?token=" + tok
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial with token: %v", err)
	}
	defer c.Close()

	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var first struct {
		Type string `json:"type"`
	}
	if err := c.ReadJSON(&first); err != nil || first.Type != "connected" {
		t.Fatalf("first frame=%+v err=%v, want connected", first, err)
	}
}

func TestWithCORS(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	r, _ := newEngine(t, cfg)
	h := WithCORS(cfg, r)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin=%q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow-credentials=%q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("allow-origin=%q for foreign origin", got)
	}
}
