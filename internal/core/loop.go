package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"zandagort/internal/auth"
	"zandagort/internal/protocol"
)

// World is the state the loop arbitrates access to. The loop goroutine is
// the only caller of Sim for the process lifetime.
type World interface {
	Sim()
	Time() uint64
}

// Authority issues, resolves and renews session identities.
type Authority interface {
	UserByToken(token string) (auth.Identity, bool, error)
	CreateSession() (string, auth.Identity, error)
	Renew(token string) error
	IsGuest(id auth.Identity) bool
}

// Loop is the single consumer of the request queue and the only goroutine
// permitted to touch world state. Everything else talks to it through
// Submit/SubmitInner.
type Loop struct {
	queue *Queue
	reg   *Registry
	auth  Authority
	world World
	log   Logger // may be nil

	pollTimeout time.Duration
	onSim       func(tick uint64) // optional, invoked on the loop goroutine
}

type LoopOption func(*Loop)

// WithPollTimeout sets how long one dequeue waits before the loop re-checks
// its context.
func WithPollTimeout(d time.Duration) LoopOption {
	return func(s *Loop) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithSimHook registers a callback fired after every completed Sim tick.
func WithSimHook(fn func(tick uint64)) LoopOption {
	return func(s *Loop) { s.onSim = fn }
}

func NewLoop(queue *Queue, reg *Registry, authority Authority, world World, logger Logger, opts ...LoopOption) *Loop {
	s := &Loop{
		queue:       queue,
		reg:         reg,
		auth:        authority,
		world:       world,
		log:         logger,
		pollTimeout: 4 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues a client request and blocks until the loop delivers its
// reply. Every request receives exactly one envelope, even when its handler
// fails.
func (s *Loop) Submit(req *ClientRequest) protocol.Envelope {
	if req.Reply == nil {
		req.Reply = make(chan protocol.Envelope, 1)
	}
	s.queue.Enqueue(WorkItem{Req: req})
	return <-req.Reply
}

// SubmitInner enqueues a scheduled action; fire-and-forget.
func (s *Loop) SubmitInner(cmd InnerCommand) {
	s.queue.Enqueue(WorkItem{Inner: cmd})
}

func (s *Loop) QueueLen() int { return s.queue.Len() }

// Run consumes the queue until ctx is cancelled. Request-scoped failures
// never stop it; only cancellation does.
func (s *Loop) Run(ctx context.Context) error {
	s.logSysf("core loop running")
	for {
		if ctx.Err() != nil {
			s.logSysf("core loop stopped")
			return ctx.Err()
		}
		item, ok := s.queue.Dequeue(s.pollTimeout)
		if !ok {
			continue
		}
		if item.Req != nil {
			item.Req.Reply <- s.dispatch(item.Req)
			continue
		}
		s.execInner(item.Inner)
	}
}

// execInner runs a scheduled action directly against world state. A failing
// tick is logged and swallowed; future ticks must not be affected.
func (s *Loop) execInner(cmd InnerCommand) {
	defer func() {
		if r := recover(); r != nil {
			s.logSysf("[%s] failed: %v", cmd, r)
		}
	}()
	switch cmd {
	case InnerSim:
		s.world.Sim()
		tick := s.world.Time()
		s.logSysf("[%s] game time = %d", cmd, tick)
		if s.onSim != nil {
			s.onSim(tick)
		}
	case InnerDump:
		// Persistence hook: format is not designed yet, record intent only.
		s.logSysf("[%s] dumping...", cmd)
		s.logSysf("[%s] dumped (no-op)", cmd)
	default:
		s.logSysf("[%s] unknown inner command", cmd)
	}
}

func (s *Loop) logSysf(format string, args ...any) {
	if s.log == nil {
		return
	}
	_ = s.log.WriteSys(SysEntry{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Message: fmt.Sprintf(format, args...),
	})
}

func (s *Loop) logError(req *ClientRequest, kind, message, trace string) {
	if s.log == nil {
		return
	}
	_ = s.log.WriteError(ErrorEntry{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Request: requestLine(req),
		Kind:    kind,
		Message: message,
		Trace:   trace,
	})
}

func (s *Loop) logAccess(req *ClientRequest, user auth.Identity) {
	if s.log == nil {
		return
	}
	_ = s.log.WriteAccess(AccessEntry{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Method:  string(req.Method),
		Command: req.Command,
		Args:    req.Args,
		Remote:  req.RemoteAddr,
		User:    user.UserID,
	})
}

func requestLine(req *ClientRequest) string {
	args := "<syntax error>"
	if !req.ArgsBad {
		args = fmt.Sprintf("%v", req.Args)
	}
	return fmt.Sprintf("%s /%s %s from %s", req.Method, req.Command, args, req.RemoteAddr)
}

// stackTrace is split out so panic recovery sites stay short.
func stackTrace() string { return string(debug.Stack()) }
