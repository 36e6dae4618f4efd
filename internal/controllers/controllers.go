// Package controllers registers the command surface: the GET and POST
// handler capabilities the dispatcher resolves client requests against.
// Handlers run on the core loop goroutine and close over the game directly;
// that goroutine is the only writer of world state.
package controllers

import (
	"fmt"
	"strconv"

	"zandagort/internal/auth"
	"zandagort/internal/core"
	"zandagort/internal/game"
)

// Accounts is the slice of the session authority the command surface needs
// beyond what the dispatcher already does.
type Accounts interface {
	Login(token, user, password string) (auth.Identity, error)
	Logout(token string) error
	Rename(token, name string) (auth.Identity, error)
}

const loginArgsSchema = `{
	"type": "object",
	"required": ["user", "password"],
	"properties": {
		"user": {"type": "string", "minLength": 1},
		"password": {"type": "string"}
	},
	"additionalProperties": false
}`

const renameArgsSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 64}
	},
	"additionalProperties": false
}`

// GET arguments arrive as query-string values, so they are always strings.
const planetArgsSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": "string", "pattern": "^[0-9]+$"}
	},
	"additionalProperties": false
}`

// Register wires every handler into the registry. Called once at startup,
// before the core loop runs.
func Register(reg *core.Registry, g *game.Game, accounts Accounts) error {
	gets := []struct {
		name string
		fn   core.HandlerFunc
		opts []core.HandlerOption
	}{
		{"whoami", whoami, []core.HandlerOption{core.Public()}},
		{"time", func(ctx *core.Ctx) (any, error) {
			return map[string]any{"time": g.Time()}, nil
		}, []core.HandlerOption{core.Public()}},
		{"commands", func(ctx *core.Ctx) (any, error) {
			return map[string]any{
				"GET":  reg.Commands(core.MethodGet),
				"POST": reg.Commands(core.MethodPost),
			}, nil
		}, []core.HandlerOption{core.Public()}},
		{"galaxy", func(ctx *core.Ctx) (any, error) {
			return g.GalaxySummary(), nil
		}, nil},
		{"planet", func(ctx *core.Ctx) (any, error) {
			id, err := strconv.Atoi(ctx.Args["id"].(string))
			if err != nil {
				return nil, fmt.Errorf("bad planet id: %w", err)
			}
			p, ok := g.Planet(id)
			if !ok {
				return nil, fmt.Errorf("no planet with id %d", id)
			}
			return p, nil
		}, []core.HandlerOption{core.ArgsSchema(planetArgsSchema)}},
	}
	for _, h := range gets {
		if err := reg.Register(core.MethodGet, h.name, h.fn, h.opts...); err != nil {
			return err
		}
	}

	posts := []struct {
		name string
		fn   core.HandlerFunc
		opts []core.HandlerOption
	}{
		{"login", func(ctx *core.Ctx) (any, error) {
			user, _ := ctx.Args["user"].(string)
			password, _ := ctx.Args["password"].(string)
			id, err := accounts.Login(ctx.Token, user, password)
			if err != nil {
				return nil, err
			}
			ctx.User = id
			return map[string]any{"identity": id.UserID}, nil
		}, []core.HandlerOption{core.Public(), core.ArgsSchema(loginArgsSchema)}},
		{"logout", func(ctx *core.Ctx) (any, error) {
			if err := accounts.Logout(ctx.Token); err != nil {
				return nil, err
			}
			// Empty token tells the transport to delete the credential.
			ctx.Token = ""
			return map[string]any{"loggedOut": true}, nil
		}, nil},
		{"rename", func(ctx *core.Ctx) (any, error) {
			name, _ := ctx.Args["name"].(string)
			id, err := accounts.Rename(ctx.Token, name)
			if err != nil {
				return nil, err
			}
			return map[string]any{"identity": id.UserID, "name": id.Name}, nil
		}, []core.HandlerOption{core.ArgsSchema(renameArgsSchema)}},
	}
	for _, h := range posts {
		if err := reg.Register(core.MethodPost, h.name, h.fn, h.opts...); err != nil {
			return err
		}
	}
	return nil
}

func whoami(ctx *core.Ctx) (any, error) {
	return map[string]any{"identity": ctx.User.UserID}, nil
}
