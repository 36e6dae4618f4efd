package core

// Log entry shapes for the three record channels. Writers are implemented
// in internal/persistence/log; any channel may be written from the core
// loop and the cron scheduler concurrently, so implementations must
// serialize internally.

type AccessEntry struct {
	Time    string         `json:"time"`
	Method  string         `json:"method"`
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
	Remote  string         `json:"remote"`
	User    string         `json:"user"`
}

type ErrorEntry struct {
	Time    string `json:"time"`
	Request string `json:"request"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

type SysEntry struct {
	Time    string `json:"time"`
	Message string `json:"message"`
}

type Logger interface {
	WriteAccess(e AccessEntry) error
	WriteError(e ErrorEntry) error
	WriteSys(e SysEntry) error
}
