package domain

// Chat roles as used by the site widget and the Gemini API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is a single chat turn. History is held by the client and sent
// with every call; it is never persisted server-side.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ValidRole reports whether role is one the completion providers understand.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleModel
}
