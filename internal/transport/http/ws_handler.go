package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"promo-quiz/internal/app"
)

// PlayOptions controls the pacing of a live session.
type PlayOptions struct {
	Tick          time.Duration
	RevealDelay   time.Duration
	RouletteFrame int
}

type WSHandler struct {
	service  *app.GameService
	opts     PlayOptions
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, opts PlayOptions) *WSHandler {
	return &WSHandler{
		service: service,
		opts:    opts,
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

type answerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Option        int `json:"option"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type spinPayload struct {
	Frames  []int        `json:"frames"`
	Effects []app.Effect `json:"effects"`
}

type runResult struct {
	completion *app.Completion
	err        error
}

// ServePlay upgrades the request and runs one quiz attempt over the socket:
// login, timed questions, roulette, persisted result.
func (h *WSHandler) ServePlay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	age, _ := strconv.Atoi(q.Get("age"))
	req := app.LoginRequest{Handle: q.Get("handle"), Age: age, Gender: q.Get("gender")}
	if req.Handle == "" {
		http.Error(w, "missing handle", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	log := slog.With("session", sessionID)

	// the engine is built before the handle is claimed, so a question set
	// failure does not consume the player's only attempt
	engine, err := h.service.StartQuiz(r.Context())
	if err != nil {
		log.Error("cannot start quiz", "error", err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: userMessage(err)}})
		return
	}
	player, err := h.service.Login(r.Context(), req)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: userMessage(err)}})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	runner := app.NewRunner(engine, h.opts.Tick, h.opts.RevealDelay)
	runDone := make(chan runResult, 1)
	go func() {
		c, err := runner.Run(ctx)
		runDone <- runResult{completion: c, err: err}
	}()

	send := make(chan outboundMessage[any], 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("ws write error", "error", err)
				failed = true
				cancel()
			}
		}
	}()

	go h.readAnswers(conn, runner, cancel)

	send <- outboundMessage[any]{Type: "joined", Payload: player}
	for ev := range runner.Events() {
		send <- outboundMessage[any]{Type: string(ev.Type), Payload: ev}
	}

	res := <-runDone
	if res.err != nil {
		log.Info("quiz aborted", "handle", player.Handle, "error", res.err)
		close(send)
		<-writerDone
		return
	}

	send <- outboundMessage[any]{Type: "spin", Payload: spinPayload{
		Frames:  h.service.Wheel().Frames(h.opts.RouletteFrame),
		Effects: h.service.Wheel().Effects(),
	}}

	// the attempt is over; persist even if the client already left
	final, err := h.service.Finish(context.WithoutCancel(r.Context()), player.Handle, *res.completion)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: userMessage(err)}}
	} else {
		send <- outboundMessage[any]{Type: "result", Payload: final}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) readAnswers(conn *websocket.Conn, runner *app.Runner, cancel context.CancelFunc) {
	defer cancel()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		if inbound.Type != "answer" {
			continue
		}
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			continue
		}
		runner.Submit(payload.QuestionIndex, payload.Option)
	}
}
