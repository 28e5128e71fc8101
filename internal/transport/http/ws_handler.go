package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quiz-room-service/internal/app"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	coordinator *app.Coordinator
	hub         *Hub
	upgrader    websocket.Upgrader
}

func NewWSHandler(coordinator *app.Coordinator, hub *Hub) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	HostUserID  string `json:"hostUserId"`
	DisplayName string `json:"displayName"`
	QuizID      string `json:"quizId"`
}

type joinRoomPayload struct {
	RoomCode    string `json:"roomCode"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type leaveRoomPayload struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
}

type roomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type submitAnswerPayload struct {
	RoomCode    string `json:"roomCode"`
	AnswerIndex int    `json:"answerIndex"`
}

// ServeWS upgrades the request and pumps client operations into the
// coordinator until the connection drops.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(connID)
		h.coordinator.Disconnect(connID)
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		h.dispatch(r, connID, inbound)
	}
}

func (h *WSHandler) dispatch(r *http.Request, connID string, inbound inboundMessage) {
	switch inbound.Type {
	case "CreateRoom":
		var p createRoomPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		_ = h.coordinator.CreateRoom(r.Context(), connID, p.HostUserID, p.DisplayName, p.QuizID)
	case "JoinRoom":
		var p joinRoomPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		_ = h.coordinator.JoinRoom(connID, p.RoomCode, p.UserID, p.DisplayName)
	case "LeaveRoom":
		var p leaveRoomPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		h.coordinator.LeaveRoom(connID, p.RoomCode, p.UserID)
	case "StartQuiz":
		var p roomCodePayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		_ = h.coordinator.StartQuiz(connID, p.RoomCode)
	case "SubmitAnswer":
		var p submitAnswerPayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		h.coordinator.SubmitAnswer(connID, p.RoomCode, p.AnswerIndex)
	case "NextQuestion":
		var p roomCodePayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		_ = h.coordinator.NextQuestion(connID, p.RoomCode)
	case "RestartQuiz":
		var p roomCodePayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		_ = h.coordinator.RestartQuiz(connID, p.RoomCode)
	case "GetRoom":
		var p roomCodePayload
		if !h.decode(connID, inbound.Payload, &p) {
			return
		}
		h.coordinator.GetRoom(connID, p.RoomCode)
	default:
		h.hub.ToClient(connID, app.EventError, map[string]string{"message": "unsupported message type"})
	}
}

func (h *WSHandler) decode(connID string, raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		h.hub.ToClient(connID, app.EventError, map[string]string{"message": "invalid payload"})
		return false
	}
	return true
}
