package core

import (
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"zandagort/internal/auth"
)

// Ctx carries the per-request data a handler may use. Handlers run on the
// core loop goroutine and may freely mutate world state they closed over.
// A handler may rotate or clear the caller's credential by assigning Token;
// the dispatcher propagates the final value in the response envelope.
type Ctx struct {
	Args  map[string]any
	User  auth.Identity
	Token string
}

type HandlerFunc func(ctx *Ctx) (any, error)

// Handler is a named request-handling capability registered for one method.
type Handler struct {
	Name   string
	Public bool
	Args   *jsonschema.Schema // optional argument-shape schema
	Fn     HandlerFunc
}

type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	public    bool
	argSchema string
}

// Public marks a handler callable by guest identities.
func Public() HandlerOption {
	return func(c *handlerConfig) { c.public = true }
}

// ArgsSchema attaches a JSON schema that the dispatcher validates request
// arguments against before invoking the handler.
func ArgsSchema(schema string) HandlerOption {
	return func(c *handlerConfig) { c.argSchema = schema }
}

// Registry maps (method, command) to a handler. It is built once at startup
// and read-only afterwards, so the core loop reads it without locks.
type Registry struct {
	byMethod map[Method]map[string]*Handler
}

func NewRegistry() *Registry {
	return &Registry{byMethod: map[Method]map[string]*Handler{
		MethodGet:  {},
		MethodPost: {},
	}}
}

func (r *Registry) Register(method Method, name string, fn HandlerFunc, opts ...HandlerOption) error {
	cmds, ok := r.byMethod[method]
	if !ok {
		return fmt.Errorf("register %s %s: unsupported method", method, name)
	}
	if name == "" || fn == nil {
		return fmt.Errorf("register %s %s: empty name or nil handler", method, name)
	}
	if _, dup := cmds[name]; dup {
		return fmt.Errorf("register %s %s: duplicate command", method, name)
	}
	var cfg handlerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &Handler{Name: name, Public: cfg.public, Fn: fn}
	if cfg.argSchema != "" {
		sch, err := jsonschema.CompileString(string(method)+"/"+name+".json", cfg.argSchema)
		if err != nil {
			return fmt.Errorf("register %s %s: compile args schema: %w", method, name, err)
		}
		h.Args = sch
	}
	cmds[name] = h
	return nil
}

func (r *Registry) lookup(method Method, name string) *Handler {
	return r.byMethod[method][name]
}

// Commands lists the registered command names for a method, sorted.
func (r *Registry) Commands(method Method) []string {
	cmds := r.byMethod[method]
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
