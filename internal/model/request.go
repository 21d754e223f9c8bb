package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type CategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type StatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// BulkDeleteRequest carries ids as strings; the dashboard sends them that way.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}
