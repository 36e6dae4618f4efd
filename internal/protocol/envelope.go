package protocol

// Envelope is the response value the core produces for every client request.
// The transport layer serializes it as-is; AuthToken drives the credential
// cookie (empty string means delete, anything else means (re)issue).
type Envelope struct {
	Response  any    `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	AuthToken string `json:"authToken"`
}

func Success(v any, token string) Envelope {
	return Envelope{Response: v, AuthToken: token}
}

func Failure(kind, message, token string) Envelope {
	return Envelope{Error: kind + ": " + message, AuthToken: token}
}

func (e Envelope) Failed() bool { return e.Error != "" }

// FaultKind extracts the taxonomy kind from a failure envelope, or "".
func FaultKind(e Envelope) string {
	if e.Error == "" {
		return ""
	}
	for i := 0; i < len(e.Error); i++ {
		if e.Error[i] == ':' {
			kind := e.Error[:i]
			if IsKnownKind(kind) {
				return kind
			}
			return ""
		}
	}
	return ""
}
