package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bnema/lightnode/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEngineRoundTripsRequestsAndResponses(t *testing.T) {
	t.Parallel()

	server := newNodeServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req domain.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}
			reply := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":"%s"}`, req.ID, req.Method)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	})
	engine := newTestEngine(t, server)

	session, err := engine.Open(context.Background(), domain.OpenRequest{Specification: testSpec(t)})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionID(1), session.ID)

	first, err := domain.BuildRequest(1, domain.MethodSubscribeNewHeads)
	require.NoError(t, err)
	second, err := domain.BuildRequest(2, domain.MethodSystemHealth)
	require.NoError(t, err)
	require.NoError(t, engine.Submit(context.Background(), session.ID, first))
	require.NoError(t, engine.Submit(context.Background(), session.ID, second))

	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"chain_subscribeNewHeads"}`, receive(t, session.Responses))
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"result":"system_health"}`, receive(t, session.Responses))

	require.NoError(t, engine.Close(context.Background(), session.ID))
}

func TestEngineCloseIsIdempotentForCallers(t *testing.T) {
	t.Parallel()

	server := newNodeServer(t, drain)
	engine := newTestEngine(t, server)

	session, err := engine.Open(context.Background(), domain.OpenRequest{Specification: testSpec(t)})
	require.NoError(t, err)

	require.NoError(t, engine.Close(context.Background(), session.ID))
	err = engine.Close(context.Background(), session.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = engine.Submit(context.Background(), session.ID, `{"id":9,"jsonrpc":"2.0","method":"system_health","params":[]}`)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	select {
	case _, ok := <-session.Responses:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("response stream not closed after session close")
	}
}

func TestEngineClosesStreamWhenNodeHangsUp(t *testing.T) {
	t.Parallel()

	server := newNodeServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"chain_newHead","params":{}}`))
	})
	engine := newTestEngine(t, server)

	session, err := engine.Open(context.Background(), domain.OpenRequest{Specification: testSpec(t)})
	require.NoError(t, err)

	assert.Equal(t, `{"jsonrpc":"2.0","method":"chain_newHead","params":{}}`, receive(t, session.Responses))
	select {
	case _, ok := <-session.Responses:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("response stream not closed after hang up")
	}
}

func TestEngineRejectsInvalidSubmissions(t *testing.T) {
	t.Parallel()

	server := newNodeServer(t, drain)
	engine := newTestEngine(t, server)

	session, err := engine.Open(context.Background(), domain.OpenRequest{Specification: testSpec(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background(), session.ID) })

	require.ErrorIs(t, engine.Submit(context.Background(), session.ID, `not json`), ErrInvalidRequest)
	require.ErrorIs(t, engine.Submit(context.Background(), session.ID, `[1,2]`), ErrInvalidRequest)
	require.ErrorIs(t, engine.Submit(context.Background(), 42, `{"id":1}`), domain.ErrSessionNotFound)
}

func TestEngineOpenFailsWhenNodeUnreachable(t *testing.T) {
	t.Parallel()

	server := newNodeServer(t, drain)
	endpoint := wsURL(server)
	server.Close()

	engine, err := NewEngine(Options{Endpoint: endpoint, HandshakeTimeout: time.Second, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	_, err = engine.Open(context.Background(), domain.OpenRequest{Specification: testSpec(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial ")

	_, err = engine.Open(context.Background(), domain.OpenRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain specification is empty")
}

func TestNewEngineValidatesEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		wantErr  string
	}{
		{name: "http scheme", endpoint: "http://127.0.0.1:9944", wantErr: "unsupported engine endpoint scheme \"http\""},
		{name: "empty", endpoint: "", wantErr: "unsupported engine endpoint scheme \"\""},
		{name: "unparsable", endpoint: "ws://[::1", wantErr: "parse engine endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(Options{Endpoint: tt.endpoint})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := NewEngine(Options{Endpoint: "wss://rpc.example.org"})
	require.NoError(t, err)
}

func newNodeServer(t *testing.T, handle func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		handle(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestEngine(t *testing.T, server *httptest.Server) *Engine {
	t.Helper()

	engine, err := NewEngine(Options{Endpoint: wsURL(server), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return engine
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func receive(t *testing.T, responses <-chan string) string {
	t.Helper()

	select {
	case text, ok := <-responses:
		require.True(t, ok, "response stream closed")
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
		return ""
	}
}

func testSpec(t *testing.T) domain.ChainSpecification {
	t.Helper()

	spec, err := domain.BuildChainSpec([]byte(`{"name":"test"}`), "/ip4/1.2.3.4/tcp/30333")
	require.NoError(t, err)
	return spec
}
