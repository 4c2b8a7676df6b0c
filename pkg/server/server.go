// Package server exposes the copilot over HTTP: a health endpoint and a
// WebSocket surface that accepts user speech transcripts and streams the
// loop's events back to the client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/entrhq/aegis/pkg/logging"
	"github.com/entrhq/aegis/pkg/loop"
	"github.com/entrhq/aegis/pkg/types"
)

// Conversation consumes user transcripts. Implemented by loop.Controller.
type Conversation interface {
	HandleTranscript(ctx context.Context, transcript string)
}

// ConversationFactory builds one conversation per WebSocket connection.
// Events emitted by the conversation must go to sink. The returned cleanup
// runs when the connection ends.
type ConversationFactory func(sink loop.EventSink) (Conversation, func(), error)

// eventBuffer bounds how many outbound events may queue before the
// connection is considered stuck.
const eventBuffer = 64

// Server is the HTTP/WebSocket front for one copilot deployment.
type Server struct {
	factory      ConversationFactory
	logger       *logging.Logger
	allowOrigins []string
}

// Option configures a server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithAllowOrigins sets the WebSocket origin patterns ("*" allows all).
func WithAllowOrigins(origins string) Option {
	return func(s *Server) {
		var patterns []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				patterns = append(patterns, o)
			}
		}
		if len(patterns) > 0 {
			s.allowOrigins = patterns
		}
	}
}

// New creates a server that builds one conversation per connection.
func New(factory ConversationFactory, opts ...Option) *Server {
	s := &Server{
		factory:      factory,
		allowOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/ws", s.handleWS)
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Router(),
		ReadTimeout: 30 * time.Second,
		// WebSocket connections stay open; no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handleWS upgrades the connection and bridges it to a fresh conversation.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowOrigins,
	})
	if err != nil {
		s.logf("websocket accept failed: %v", err)
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "session ended")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan *types.ServerEvent, eventBuffer)
	sink := func(e *types.ServerEvent) {
		select {
		case events <- e:
		default:
			s.logf("event buffer full, dropping %s event", e.Type)
		}
	}

	conv, cleanup, err := s.factory(sink)
	if err != nil {
		s.logf("failed to build conversation: %v", err)
		return
	}
	defer cleanup()

	// Output pump: conversation events -> client.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-events:
				if err := s.writeEvent(ws, e); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	sink(types.NewStatusEvent("Connected. I'm listening."))
	s.readLoop(ctx, ws, conv)
}

// readLoop consumes client messages until the connection closes. Each
// transcript is handed to the conversation on its own goroutine so the
// socket keeps reading while a turn runs; the conversation serializes
// turns internally.
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, conv Conversation) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.logf("websocket read error: %v", err)
			}
			return
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logf("discarding malformed client message: %v", err)
			continue
		}
		if err := msg.Validate(); err != nil {
			s.logf("discarding invalid client message: %v", err)
			continue
		}

		go conv.HandleTranscript(ctx, msg.Transcript)
	}
}

func (s *Server) writeEvent(ws *websocket.Conn, e *types.ServerEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}

func (s *Server) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, v...)
	}
}
