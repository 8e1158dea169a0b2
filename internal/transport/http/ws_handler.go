package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quiz-share-service/internal/app"
	"quiz-share-service/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSHandler streams live owner reports over websockets.
type WSHandler struct {
	reports  *app.ReportService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(reports *app.ReportService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		reports: reports,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string            `json:"type"`
	Payload domain.QuizReport `json:"payload"`
}

// ServeWS checks ownership before upgrading, then pushes a report snapshot on
// connect and after every new submission until the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["id"]
	updates, cancel, err := h.reports.Subscribe(r.Context(), identityFrom(r.Context()), quizID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "quizId", quizID, "err", err)
		return
	}
	defer conn.Close()

	// The client only sends control frames; the reader exists to notice close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case report, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(outboundMessage{Type: "report", Payload: report}); err != nil {
				h.logger.Debug("ws write error", "quizId", quizID, "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
