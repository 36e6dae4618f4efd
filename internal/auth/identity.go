package auth

// Identity is the resolved caller of a request. Guests are sessions not yet
// bound to an account; they are restricted to public commands.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Guest  bool   `json:"guest"`
}
