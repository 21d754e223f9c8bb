package event

type Type string

const (
	TypeUserRegistered  Type = "user.registered"
	TypeUserLoggedIn    Type = "user.logged_in"
	TypeUserLoginFailed Type = "user.login_failed"
	TypeUserLocked      Type = "user.locked"
	TypeTokenRefreshed  Type = "token.refreshed"
	TypeCategoryCreated Type = "category.created"
	TypeCategoryUpdated Type = "category.updated"
	TypeCategoryDeleted Type = "category.deleted"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
