package dto

// RegisterRequest describes sign-up payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=200"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest describes email/password payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
