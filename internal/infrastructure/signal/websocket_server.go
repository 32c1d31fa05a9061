package signal

import (
	"net/http"
	"sync"
	"time"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/services"
	"secureshield/internal/infrastructure/middleware"
	"secureshield/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	MessageSession      = "session"
	MessageNotification = "notification"
)

type FeedConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// FeedMessage is the envelope of every message pushed to a client.
type FeedMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketServer pushes session countdowns and notifications to browsers.
// Clients never send anything except control frames.
type WebSocketServer struct {
	sessions services.SessionService
	hub      *services.NotificationHub
	cfg      FeedConfig
	upgrader websocket.Upgrader

	connections map[*websocket.Conn]domain.UserID
	mu          sync.RWMutex

	logger *zap.SugaredLogger
}

func NewWebSocketServer(
	sessions services.SessionService,
	hub *services.NotificationHub,
	cfg FeedConfig,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	s := &WebSocketServer{
		sessions:    sessions,
		hub:         hub,
		cfg:         cfg,
		connections: make(map[*websocket.Conn]domain.UserID),
		logger:      logger,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

func (s *WebSocketServer) SetupRoutes(api *gin.RouterGroup) {
	api.GET("/ws/sessions/:id", s.SessionFeed)
	api.GET("/ws/notifications", s.NotificationFeed)
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.logger.Warnw("rejected websocket origin", "origin", origin)
	return false
}

// SessionFeed streams snapshots of one session until it ends.
func (s *WebSocketServer) SessionFeed(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id := domain.SessionID(c.Param("id"))

	updates, cancel, err := s.sessions.Subscribe(user, id)
	if err != nil {
		_ = c.Error(errors.NewNotFoundError("session"))
		return
	}
	defer cancel()

	s.serve(c, user, func(conn *websocket.Conn, stop <-chan struct{}) {
		for {
			select {
			case <-stop:
				return
			case snap, ok := <-updates:
				if !ok {
					s.closeNormally(conn, "session ended")
					return
				}
				if err := s.write(conn, FeedMessage{Type: MessageSession, Payload: snap}); err != nil {
					return
				}
			}
		}
	})
}

// NotificationFeed streams the user's notifications while connected.
func (s *WebSocketServer) NotificationFeed(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	updates, cancel := s.hub.Subscribe(user.ID)
	defer cancel()

	s.serve(c, user, func(conn *websocket.Conn, stop <-chan struct{}) {
		for {
			select {
			case <-stop:
				return
			case n, ok := <-updates:
				if !ok {
					s.closeNormally(conn, "shutting down")
					return
				}
				if err := s.write(conn, FeedMessage{Type: MessageNotification, Payload: n}); err != nil {
					return
				}
			}
		}
	})
}

// serve upgrades the request and runs pump until the client goes away, a
// ping fails, or pump returns.
func (s *WebSocketServer) serve(c *gin.Context, user domain.User, pump func(conn *websocket.Conn, stop <-chan struct{})) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.mu.Lock()
	s.connections[conn] = user.ID
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.connections, conn)
		s.mu.Unlock()
	}()

	s.logger.Debugw("feed connected", "user_id", user.ID, "path", c.FullPath())

	conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	})

	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	// The reader only exists to process control frames and notice when the
	// client disconnects.
	go func() {
		defer halt()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debugw("feed read error", "user_id", user.ID, "error", err)
				}
				return
			}
		}
	}()

	go func() {
		pingTicker := time.NewTicker(s.cfg.PingInterval)
		defer pingTicker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
					s.logger.Debugw("error sending ping", "user_id", user.ID, "error", err)
					halt()
					return
				}
			}
		}
	}()

	pump(conn, stop)
	halt()

	s.logger.Debugw("feed disconnected", "user_id", user.ID, "path", c.FullPath())
}

func (s *WebSocketServer) write(conn *websocket.Conn, msg FeedMessage) error {
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debugw("error writing feed message", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

func (s *WebSocketServer) closeNormally(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteTimeout))
}

// ConnectionCount reports the number of open feeds.
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Close drops every open feed.
func (s *WebSocketServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.connections {
		s.closeNormally(conn, "shutting down")
		conn.Close()
	}
}
