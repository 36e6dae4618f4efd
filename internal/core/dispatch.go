package core

import (
	"fmt"
	"strings"

	"zandagort/internal/protocol"
)

// dispatch runs the full request pipeline for one client request and always
// produces an envelope. It executes on the loop goroutine, so two requests
// are never interleaved: request N's world-state effects are fully visible
// to request N+1.
func (s *Loop) dispatch(req *ClientRequest) protocol.Envelope {
	// Resolve identity first; even failing requests renew their session and
	// get the (possibly fresh) token back so the transport can set it.
	token := req.AuthToken
	user, found, err := s.auth.UserByToken(token)
	if err != nil {
		s.logSysf("session lookup: %v", err)
	}
	if !found {
		newToken, guest, err := s.auth.CreateSession()
		if err != nil {
			s.logError(req, protocol.KindHandler, "create session: "+err.Error(), "")
			return protocol.Failure(protocol.KindHandler, "session unavailable", "")
		}
		token, user = newToken, guest
	}
	if err := s.auth.Renew(token); err != nil {
		s.logSysf("session renew: %v", err)
	}

	if req.Method != MethodGet && req.Method != MethodPost {
		return s.fail(req, token, protocol.KindUnknownMethod, "unknown method "+string(req.Method))
	}

	h := s.reg.lookup(req.Method, req.Command)
	if h == nil {
		return s.fail(req, token, protocol.KindUnknownCommand, "unknown command "+req.Command)
	}

	// Checked after command resolution so malformed requests still log the
	// command they were aimed at.
	if req.ArgsBad {
		return s.fail(req, token, protocol.KindArgumentSyntax, "syntax error in arguments")
	}

	if !h.Public && s.auth.IsGuest(user) {
		return s.fail(req, token, protocol.KindAccessDenied, "access denied, login required")
	}

	if h.Args != nil {
		if err := h.Args.Validate(argsForValidation(req.Args)); err != nil {
			return s.fail(req, token, protocol.KindHandler, "invalid arguments: "+firstLine(err.Error()))
		}
	}

	ctx := &Ctx{Args: req.Args, User: user, Token: token}
	result, trace, err := s.invoke(h, ctx)
	token = ctx.Token
	if err != nil {
		// Full detail stays server-side; the caller gets a short message.
		s.logError(req, protocol.KindHandler, err.Error(), trace)
		return protocol.Failure(protocol.KindHandler, err.Error(), token)
	}

	s.logAccess(req, user)
	return protocol.Success(result, token)
}

// invoke calls the handler with panic containment. A panicking handler must
// not take down the loop; it becomes a HandlerError with the stack captured
// for the error channel.
func (s *Loop) invoke(h *Handler, ctx *Ctx) (result any, trace string, err error) {
	defer func() {
		if r := recover(); r != nil {
			trace = stackTrace()
			err = fmt.Errorf("panic in %s: %v", h.Name, r)
		}
	}()
	result, err = h.Fn(ctx)
	return result, "", err
}

func (s *Loop) fail(req *ClientRequest, token, kind, message string) protocol.Envelope {
	s.logError(req, kind, message, "")
	return protocol.Failure(kind, message, token)
}

// argsForValidation hands the schema validator a plain map; nil argument
// maps validate as an empty object.
func argsForValidation(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	return args
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
