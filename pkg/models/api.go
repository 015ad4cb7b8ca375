package models

// Routing tells the mobile app where to land after a successful
// verification: target screen, page id, and a free-form variable bag.
type Routing struct {
	App       string            `json:"app,omitempty"`
	PageID    string            `json:"page_id,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

// Auth API types
type RequestLinkRequest struct {
	Email   string   `json:"email"`
	Routing *Routing `json:"routing,omitempty"`
}

type RequestLinkResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

type SendToMobileRequest struct {
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	APIKey      string   `json:"api_key"`
	Routing     *Routing `json:"routing,omitempty"`
}

type SendToMobileResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
	QRPNG     string `json:"qr_png,omitempty"`
}

type VerifyRequest struct {
	Token    string `json:"token"`
	DeviceID string `json:"device_id"`
}

type VerifyResponse struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      UserSummary `json:"user"`
	Routing   *Routing    `json:"routing,omitempty"`
}

type UserSummary struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type RefreshResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
