package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/matchday/handlers"
	"github.com/Dosada05/matchday/realtime"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
)

var testSecret = []byte("routes-secret")

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestServer собирает полный маршрутизатор; access-лог chi пишется в accessLog.
func newTestServer(t *testing.T) (*httptest.Server, *realtime.Hub, *syncBuffer) {
	t.Helper()
	accessLog := &syncBuffer{}
	prevLogger := chiMiddleware.DefaultLogger
	chiMiddleware.DefaultLogger = chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{
		Logger:  log.New(accessLog, "", 0),
		NoColor: true,
	})
	t.Cleanup(func() { chiMiddleware.DefaultLogger = prevLogger })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := realtime.NewHub(logger)
	go hub.Run()

	router := chi.NewRouter()
	SetupRoutes(
		router,
		Options{JWTSecret: testSecret, RequestTimeout: 5 * time.Second, Logger: logger},
		handlers.NewMatchHandler(nil, nil),
		handlers.NewRequestHandler(nil),
		handlers.NewTournamentHandler(nil, nil, nil),
		handlers.NewTeamHandler(nil),
		handlers.NewNotificationHandler(nil),
		handlers.NewWebSocketHandler(hub, nil, logger),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub, accessLog
}

func signToken(t *testing.T, userID int) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func waitForRoom(t *testing.T, hub *realtime.Hub, room string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(room) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never joined room %s", room)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketThroughFullRouter(t *testing.T) {
	srv, hub, accessLog := newTestServer(t)
	token := signToken(t, 42)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial /ws: %v (status %d)", err, status)
	}
	defer conn.Close()

	waitForRoom(t, hub, realtime.UserRoom(42))
	if n := hub.BroadcastToRoom(realtime.UserRoom(42), "MATCH_CONFIRMED", map[string]int{"match_id": 9}); n != 1 {
		t.Fatalf("expected delivery to 1 client, got %d", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg realtime.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "MATCH_CONFIRMED" || msg.RoomID != "user_42" {
		t.Fatalf("unexpected message: %#v", msg)
	}

	if strings.Contains(accessLog.String(), token) {
		t.Fatalf("access log contains the token: %s", accessLog.String())
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestAccessLogCoversRegularRoutes(t *testing.T) {
	srv, _, accessLog := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(accessLog.String(), "/healthz") {
		if time.Now().After(deadline) {
			t.Fatalf("healthz request not logged: %q", accessLog.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
