// Package models defines the data structures shared across the admin client.
// Backend entities (users, products, orders, ...) are opaque JSON records to this layer;
// the types here describe credentials, session data, pagination and the view-state
// exposed to page renderers.
package models

// Record is one backend entity as decoded from JSON.
type Record map[string]any

// User is the cached profile of the signed-in operator.
// It is kept as a loose map because the backend returns different shapes per deployment.
type User map[string]any

// Role returns the user's role string, or an empty string when absent.
func (user User) Role() string {
	role, _ := user["role"].(string)
	return role
}

// LoginRequest is the payload posted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is what a successful login resolves with.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// PasswordResetRequest starts the forgot-password flow.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// NewPasswordRequest completes the forgot-password flow.
type NewPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ErrorResponse represents a generic error response payload.
// Fields is only populated for client-side validation failures.
type ErrorResponse struct {
	Errors string            `json:"errors"`
	Fields map[string]string `json:"fields,omitempty"`
}

// PaginationMeta is the reconciled pagination state of a paged list.
// Pages is the window of page numbers a pager shows around CurrentPage.
type PaginationMeta struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int   `json:"totalCount"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
	Pages       []int `json:"pages"`
}

// Capabilities gate UI actions. They are derived once from the session's role.
type Capabilities struct {
	CanManageUsers      bool `json:"canManageUsers"`
	CanManageDrivers    bool `json:"canManageDrivers"`
	CanDeleteSuppliers  bool `json:"canDeleteSuppliers"`
	CanManageCatalog    bool `json:"canManageCatalog"`
	CanManageInventory  bool `json:"canManageInventory"`
	CanManageOrders     bool `json:"canManageOrders"`
	CanViewDeliveries   bool `json:"canViewDeliveries"`
	CanUpdateDeliveries bool `json:"canUpdateDeliveries"`
	CanDelete           bool `json:"canDelete"`
	CanExport           bool `json:"canExport"`
}

// SessionInfo describes the current session to page renderers.
type SessionInfo struct {
	Authenticated bool         `json:"authenticated"`
	User          User         `json:"user"`
	Role          string       `json:"role"`
	Capabilities  Capabilities `json:"capabilities"`
}
