package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"kotoba-quiz-service/internal/app"
	"kotoba-quiz-service/internal/domain"
)

// WSHandler drives one quiz session per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
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

type startPayload struct {
	SetID  string            `json:"setId"`
	Config domain.QuizConfig `json:"config"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type startedPayload struct {
	SessionID string `json:"sessionId"`
}

type hintPayload struct {
	Meaning string `json:"meaning"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// session use cases. The connection owns at most one live session; closing
// the socket tears the session down, timers included.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var (
		sessionID   string
		cancelSub   func()
		pumpStarted bool
	)
	defer func() {
		close(closeSignals)
		if pumpStarted {
			<-pumpDone
		}
		close(send)
		<-writerDone
		if cancelSub != nil {
			cancelSub()
		}
		if sessionID != "" {
			h.service.Close(r.Context(), sessionID)
		}
	}()

	sendErr := func(msg string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "start":
			if sessionID != "" {
				sendErr("session already started; use retry or menu")
				continue
			}
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr("invalid start payload")
				continue
			}
			session, err := h.service.StartSession(r.Context(), payload.SetID, payload.Config)
			if err != nil {
				sendErr(err.Error())
				continue
			}
			events, cancel, err := h.service.Subscribe(r.Context(), session.ID())
			if err != nil {
				sendErr(err.Error())
				continue
			}
			sessionID = session.ID()
			cancelSub = cancel
			pumpStarted = true
			go func() {
				defer close(pumpDone)
				for {
					select {
					case ev, ok := <-events:
						if !ok {
							return
						}
						select {
						case send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev}:
						case <-closeSignals:
							return
						}
					case <-closeSignals:
						return
					}
				}
			}()

			send <- outboundMessage[any]{Type: "started", Payload: startedPayload{SessionID: sessionID}}
			if err := h.service.Begin(r.Context(), sessionID); err != nil {
				sendErr(err.Error())
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendErr("invalid answer payload")
				continue
			}
			// The result event reaches the client through the subscription;
			// submit errors are reported directly.
			if _, err := h.service.SubmitAnswer(r.Context(), sessionID, payload.Text); err != nil {
				sendErr(err.Error())
			}
		case "advance":
			if err := h.service.Advance(r.Context(), sessionID); err != nil {
				sendErr(err.Error())
			}
		case "skip":
			if err := h.service.Skip(r.Context(), sessionID); err != nil {
				sendErr(err.Error())
			}
		case "hint":
			meaning, err := h.service.Hint(r.Context(), sessionID)
			if err != nil {
				sendErr(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "hint", Payload: hintPayload{Meaning: meaning}}
		case "retry":
			if err := h.service.Retry(r.Context(), sessionID); err != nil {
				sendErr(err.Error())
			}
		case "menu":
			if err := h.service.ToMenu(r.Context(), sessionID); err != nil {
				sendErr(err.Error())
			}
		default:
			sendErr("unsupported message type")
		}
	}
}
