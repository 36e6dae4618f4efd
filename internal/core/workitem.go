package core

import (
	"zandagort/internal/protocol"
)

type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// InnerCommand names a scheduler-originated action. Inner commands flow
// through the same queue as client requests and produce no reply.
type InnerCommand string

const (
	InnerSim  InnerCommand = "Sim"
	InnerDump InnerCommand = "Dump"
)

// WorkItem is the unit read by the core loop: exactly one of Req or Inner
// is set.
type WorkItem struct {
	Inner InnerCommand
	Req   *ClientRequest
}

// ClientRequest carries one client command across the thread boundary.
// Reply receives exactly one envelope, success or failure; the originating
// transport goroutine blocks on it until then.
type ClientRequest struct {
	Method     Method
	Command    string
	Args       map[string]any
	ArgsBad    bool // raw input failed to parse upstream
	AuthToken  string
	RemoteAddr string
	Reply      chan protocol.Envelope
}
