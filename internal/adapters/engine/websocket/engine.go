package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/lightnode/internal/domain"
	"github.com/bnema/lightnode/internal/ports"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultQueueSize        = 256
	closeWriteTimeout       = time.Second
)

var (
	ErrInvalidRequest = errors.New("request is not a JSON-RPC object")
	ErrQueueFull      = errors.New("request queue is full")
)

type Options struct {
	Endpoint         string
	HandshakeTimeout time.Duration
	// QueueSize bounds both queued requests and undelivered responses per session.
	QueueSize int
	Logger    *zap.Logger
}

// Engine opens one WebSocket connection to a JSON-RPC node per session.
type Engine struct {
	endpoint  string
	dialer    *websocket.Dialer
	queueSize int
	log       *zap.Logger

	mu       sync.Mutex
	nextID   domain.SessionID
	sessions map[domain.SessionID]*session
}

var _ ports.SessionEngine = (*Engine)(nil)

func NewEngine(opts Options) (*Engine, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse engine endpoint: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported engine endpoint scheme %q", parsed.Scheme)
	}

	handshakeTimeout := opts.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		endpoint:  endpoint,
		dialer:    &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		queueSize: queueSize,
		log:       logger,
		sessions:  map[domain.SessionID]*session{},
	}, nil
}

func (e *Engine) Open(ctx context.Context, req domain.OpenRequest) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if req.Specification.IsZero() {
		return domain.Session{}, errors.New("chain specification is empty")
	}

	conn, resp, err := e.dialer.DialContext(ctx, e.endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("dial %s: %w", e.endpoint, err)
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	s := newSession(id, conn, e.queueSize, e.log.With(zap.Uint64("session", uint64(id))))
	e.sessions[id] = s
	e.mu.Unlock()

	go s.readLoop()
	go s.writeLoop()

	e.log.Debug("websocket session opened", zap.Uint64("session", uint64(id)), zap.String("chain", req.Specification.Name()))
	return domain.Session{ID: id, Responses: s.responses}, nil
}

func (e *Engine) Close(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	s, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("close session %d: %w", id, domain.ErrSessionNotFound)
	}

	return s.close()
}

func (e *Engine) Submit(ctx context.Context, id domain.SessionID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var request map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &request); err != nil || request == nil {
		return ErrInvalidRequest
	}

	e.mu.Lock()
	s, ok := e.sessions[id]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("submit to session %d: %w", id, domain.ErrSessionNotFound)
	}

	return s.enqueue(text)
}

type session struct {
	id        domain.SessionID
	conn      *websocket.Conn
	requests  chan string
	responses chan string
	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

func newSession(id domain.SessionID, conn *websocket.Conn, queueSize int, logger *zap.Logger) *session {
	return &session{
		id:        id,
		conn:      conn,
		requests:  make(chan string, queueSize),
		responses: make(chan string, queueSize),
		done:      make(chan struct{}),
		log:       logger,
	}
}

func (s *session) enqueue(text string) error {
	select {
	case <-s.done:
		return fmt.Errorf("submit to session %d: %w", s.id, domain.ErrSessionNotFound)
	default:
	}

	select {
	case s.requests <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

// readLoop owns the responses channel and closes it when the connection ends.
func (s *session) readLoop() {
	defer close(s.responses)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn("websocket read failed", zap.Error(err))
				_ = s.close()
			}
			return
		}

		select {
		case s.responses <- string(data):
		case <-s.done:
			return
		}
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case text := <-s.requests:
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				s.log.Warn("websocket write failed", zap.Error(err))
				_ = s.close()
				return
			}
		}
	}
}

func (s *session) close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeWriteTimeout))
		err = s.conn.Close()
	})
	return err
}
