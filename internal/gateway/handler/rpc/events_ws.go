package rpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rapidproto/internal/gateway/events"
	"rapidproto/internal/gateway/workspace"
	"rapidproto/internal/pipeline"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
	eventsWSBuffer    = 32
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type eventsWSInbound struct {
	Type string `json:"type"`
}

type eventsWSOutbound struct {
	Type        string          `json:"type"`
	WorkspaceID string          `json:"workspaceId,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Event       *pipeline.Event `json:"event,omitempty"`
	Code        string          `json:"code,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// EventsHandler streams pipeline events of one workspace over a websocket.
type EventsHandler struct {
	registry *workspace.Registry
	broker   *events.Broker
	logger   *zap.Logger
}

func NewEventsHandler(registry *workspace.Registry, broker *events.Broker, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{registry: registry, broker: broker, logger: logger}
}

func (h *EventsHandler) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	workspaceID := strings.TrimSpace(r.URL.Query().Get("workspace_id"))
	if workspaceID == "" {
		http.Error(w, "workspace_id is required", http.StatusBadRequest)
		return
	}
	ws, err := h.registry.Get(workspaceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		h.logger.Warn("events ws set read deadline failed", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	sub, unsubscribe := h.broker.Subscribe(ws.ID, eventsWSBuffer)
	defer unsubscribe()

	writeCh := make(chan eventsWSOutbound, eventsWSBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		defer cancel()
		ticker := time.NewTicker(eventsWSPingEvery)
		defer ticker.Stop()

		for {
			var out eventsWSOutbound
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				out = eventsWSOutbound{Type: "event", WorkspaceID: ws.ID, SessionID: ev.SessionID, Event: &ev}
			case out = <-writeCh:
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		}
	}()

	pushEventsWS(writeCh, eventsWSOutbound{
		Type:        "subscribed",
		WorkspaceID: ws.ID,
		SessionID:   ws.Runner.Controller().SessionID(),
	})

	for {
		var in eventsWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			pushEventsWS(writeCh, eventsWSOutbound{Type: "pong"})
		case "":
			pushEventsWS(writeCh, eventsWSOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		default:
			pushEventsWS(writeCh, eventsWSOutbound{Type: "error", Code: "invalid_argument", Message: "unsupported type: " + in.Type})
		}
	}
}

func pushEventsWS(writeCh chan eventsWSOutbound, out eventsWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
