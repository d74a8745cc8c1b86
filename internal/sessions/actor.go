package sessions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/osa-run/osa/internal/bus"
	"github.com/osa-run/osa/internal/classify"
	"github.com/osa-run/osa/pkg/models"
)

// ProcessFunc runs the actual ReAct reasoning for one turn (the Session
// Reasoning Loop, §4.H); injected so the actor owns lifecycle/ordering
// while internal/reasoning owns the LLM/tool mechanics.
type ProcessFunc func(ctx context.Context, sessionID string, signal models.Signal, messages []models.Message, userMessage models.Message) (models.Message, models.LastRunMeta, error)

type request struct {
	ctx     context.Context
	message string
	channel string
	reply   chan response
}

type response struct {
	content string
	err     error
}

// Actor is one session's serialized mailbox (§5 "Session actor... all
// operations... are strictly serialized by the session actor"). A crash
// inside process is isolated: Actor recovers and reports the panic as an
// error to the waiting caller rather than taking down the process.
type Actor struct {
	id          string
	sessionsDir string
	mailbox     chan request
	done        chan struct{}
	process     ProcessFunc
	bus         *bus.Bus
	logger      *slog.Logger

	mu       sync.Mutex
	messages []models.Message
	status   models.SessionStatus
}

func newActor(id, sessionsDir string, process ProcessFunc, b *bus.Bus, logger *slog.Logger) *Actor {
	a := &Actor{
		id: id, sessionsDir: sessionsDir, process: process, bus: b, logger: logger,
		mailbox: make(chan request, 8), done: make(chan struct{}),
	}
	existing, _ := LoadMessages(sessionsDir, id)
	a.messages = existing
	go a.run()
	return a
}

func (a *Actor) run() {
	defer close(a.done)
	for req := range a.mailbox {
		content, err := a.handle(req)
		req.reply <- response{content: content, err: err}
	}
}

func (a *Actor) handle(req request) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("session actor panicked", "session_id", a.id, "recover", r)
			err = errPanicked
		}
	}()

	a.mu.Lock()
	a.status = models.SessionThinking
	a.mu.Unlock()

	sig := classify.Fast(req.message, req.channel)

	if verdict := classify.Filter(req.message); verdict.Noise {
		ack := classify.Acknowledgment(verdict.Reason)
		userMsg := models.Message{Role: models.RoleUser, Content: req.message, Channel: req.channel, Timestamp: time.Now().UTC()}
		a.persistAndAppend(userMsg)
		if ack != "" {
			assistantMsg := models.Message{Role: models.RoleAssistant, Content: ack, Timestamp: time.Now().UTC()}
			a.persistAndAppend(assistantMsg)
		}
		a.setIdle()
		return ack, nil
	}

	userMsg := models.Message{Role: models.RoleUser, Content: req.message, Channel: req.channel, Timestamp: time.Now().UTC()}
	a.persistAndAppend(userMsg)

	a.mu.Lock()
	snapshot := append([]models.Message(nil), a.messages...)
	a.mu.Unlock()

	assistantMsg, meta, procErr := a.process(req.ctx, a.id, sig, snapshot, userMsg)
	if procErr != nil {
		a.setIdle()
		return "", procErr
	}

	assistantMsg.Timestamp = time.Now().UTC()
	a.persistAndAppend(assistantMsg)

	a.mu.Lock()
	a.status = models.SessionIdle
	a.mu.Unlock()

	a.bus.Emit(bus.Event{Kind: bus.KindAgentResponse, SessionID: a.id, Payload: map[string]any{
		"content": assistantMsg.Content, "meta": meta,
	}})

	return assistantMsg.Content, nil
}

func (a *Actor) setIdle() {
	a.mu.Lock()
	a.status = models.SessionIdle
	a.mu.Unlock()
}

func (a *Actor) persistAndAppend(m models.Message) {
	a.mu.Lock()
	a.messages = append(a.messages, m)
	a.mu.Unlock()
	if err := AppendMessage(a.sessionsDir, a.id, m); err != nil {
		a.logger.Warn("failed to persist session message", "session_id", a.id, "error", err)
	}
}

// Send enqueues one message for serialized processing and blocks for the
// reply, matching §4.H's "synchronous to the caller, serialized by the
// actor" contract.
func (a *Actor) Send(ctx context.Context, message, channel string) (string, error) {
	reply := make(chan response, 1)
	select {
	case a.mailbox <- request{ctx: ctx, message: message, channel: channel, reply: reply}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case resp := <-reply:
		return resp.content, resp.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Messages returns a snapshot of the in-memory transcript.
func (a *Actor) Messages() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Message(nil), a.messages...)
}

// Status returns the actor's current activity.
func (a *Actor) Status() models.SessionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Close terminates the actor gracefully.
func (a *Actor) Close() {
	close(a.mailbox)
	<-a.done
}
