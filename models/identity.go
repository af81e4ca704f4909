package models

import "gofalre.io/storefront/models/enum"

// Identity is the client-side view of the signed-in user. The bearer token
// itself lives in storage and is attached to requests by the auth store.
type Identity struct {
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Role     enum.Role `json:"role"`
}

// Credentials is the login request body for the auth endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the auth endpoints' response: a bearer token plus the user it
// belongs to.
type Session struct {
	Token string `json:"token"`
	User  struct {
		Username string    `json:"username"`
		Email    string    `json:"email"`
		Role     enum.Role `json:"role"`
	} `json:"user"`
}
