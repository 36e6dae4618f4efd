package protocol

// Request-scoped failure kinds. Every kind terminates only the current
// request; the core loop never stops because of one.
const (
	KindArgumentSyntax = "ArgumentSyntaxError"
	KindUnknownMethod  = "UnknownMethod"
	KindUnknownCommand = "UnknownCommand"
	KindAccessDenied   = "AccessDenied"
	KindHandler        = "HandlerError"
)

var knownKinds = map[string]struct{}{
	KindArgumentSyntax: {},
	KindUnknownMethod:  {},
	KindUnknownCommand: {},
	KindAccessDenied:   {},
	KindHandler:        {},
}

func IsKnownKind(kind string) bool {
	_, ok := knownKinds[kind]
	return ok
}

// Fault is a failure value carrying one of the taxonomy kinds plus a short
// caller-visible message. Full diagnostic detail stays in the error log.
type Fault struct {
	Kind    string
	Message string
}

func (f *Fault) Error() string {
	return f.Kind + ": " + f.Message
}

func NewFault(kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}
