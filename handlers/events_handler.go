package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/playnow/reservas-api/events"
)

// EventsHandler upgrades admin dashboard connections onto the live
// reservation feed.
type EventsHandler struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
}

func NewEventsHandler(hub *events.Hub, allowedOrigins []string) *EventsHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Неконфигурированный Origin (curl, тесты) пропускаем:
				// маршрут и так за авторизацией администратора.
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Subscribe upgrades the request to a websocket. Authorization happens
// in routing, before this point.
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже отправил ответ с ошибкой.
		slog.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}
	events.NewClient(h.hub, conn)
}
