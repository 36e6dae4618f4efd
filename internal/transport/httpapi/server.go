// Package httpapi is the HTTP frontend: it turns GET/POST requests into
// client work items, blocks each request goroutine on its private reply
// channel, and maps the reply envelope back to JSON plus the auth cookie.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"zandagort/internal/config"
	"zandagort/internal/core"
	"zandagort/internal/protocol"
)

// SessionCounter is the read-model slice of the session store /metrics uses.
type SessionCounter interface {
	SessionCount() (int, error)
}

type Server struct {
	loop     *core.Loop
	world    core.World
	sessions SessionCounter
	cfg      config.Config
	log      *log.Logger
	mux      *http.ServeMux
}

func New(loop *core.Loop, world core.World, sessions SessionCounter, cfg config.Config, logger *log.Logger) *Server {
	s := &Server{
		loop:     loop,
		world:    world,
		sessions: sessions,
		cfg:      cfg,
		log:      logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Mux is exposed so main can mount extra endpoints (the live feed) beside
// the command surface.
func (s *Server) Mux() *http.ServeMux { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	s.mux.HandleFunc("/metrics", s.handleMetrics)
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	s.mux.HandleFunc("/test", s.staticFile("html/test.html"))
	s.mux.HandleFunc("/test/", s.staticFile("html/test.html"))
	s.mux.HandleFunc("/favicon.ico", s.staticFile("img/favicon.ico"))
	s.mux.HandleFunc("/", s.handleCommand)
}

func (s *Server) staticFile(rel string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		http.ServeFile(rw, r, filepath.Join(s.cfg.StaticDir, rel))
	}
}

// handleCommand is the acceptor side of the queue: build a request, submit,
// block until the core loop replies.
func (s *Server) handleCommand(rw http.ResponseWriter, r *http.Request) {
	command := strings.Trim(r.URL.Path, "/")

	args, argsBad := parseArgs(r)

	req := &core.ClientRequest{
		Method:     core.Method(r.Method),
		Command:    command,
		Args:       args,
		ArgsBad:    argsBad,
		AuthToken:  s.authCookieValue(r),
		RemoteAddr: remoteHost(r),
	}
	env := s.loop.Submit(req)

	s.setAuthCookie(rw, env)
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(200)
	if err := json.NewEncoder(rw).Encode(env); err != nil {
		s.log.Printf("write response: %v", err)
	}
}

// parseArgs extracts the argument mapping for the request method. A parse
// failure does not reject the request here; the syntax-error marker travels
// through the queue so the dispatcher can log the attempted command.
func parseArgs(r *http.Request) (map[string]any, bool) {
	switch r.Method {
	case http.MethodGet:
		values, err := url.ParseQuery(r.URL.RawQuery)
		if err != nil {
			return nil, true
		}
		args := make(map[string]any, len(values))
		for key, vals := range values {
			args[key] = vals[0]
		}
		return args, false
	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
		if err != nil {
			return nil, true
		}
		if len(body) == 0 {
			return map[string]any{}, false
		}
		var args map[string]any
		if err := json.Unmarshal(body, &args); err != nil {
			return nil, true
		}
		return args, false
	default:
		// Dispatcher rejects the method; arguments are irrelevant.
		return map[string]any{}, false
	}
}

func (s *Server) authCookieValue(r *http.Request) string {
	c, err := r.Cookie(s.cfg.AuthCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// setAuthCookie applies the envelope's token contract: empty means delete
// the credential, anything else (re)issues it with the configured expiry.
func (s *Server) setAuthCookie(rw http.ResponseWriter, env protocol.Envelope) {
	cookie := &http.Cookie{
		Name:     s.cfg.AuthCookieName,
		Value:    env.AuthToken,
		Path:     "/",
		HttpOnly: true,
	}
	if env.AuthToken == "" {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = s.cfg.AuthCookieExpirySec
	}
	http.SetCookie(rw, cookie)
}

func (s *Server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP zandagort_game_time Current game time in ticks.\n")
	fmt.Fprintf(rw, "# TYPE zandagort_game_time gauge\n")
	fmt.Fprintf(rw, "zandagort_game_time %d\n", s.world.Time())

	fmt.Fprintf(rw, "# HELP zandagort_queue_depth Request queue backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE zandagort_queue_depth gauge\n")
	fmt.Fprintf(rw, "zandagort_queue_depth %d\n", s.loop.QueueLen())

	if s.sessions != nil {
		if n, err := s.sessions.SessionCount(); err == nil {
			fmt.Fprintf(rw, "# HELP zandagort_sessions Live (unexpired) sessions.\n")
			fmt.Fprintf(rw, "# TYPE zandagort_sessions gauge\n")
			fmt.Fprintf(rw, "zandagort_sessions %d\n", n)
		}
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
