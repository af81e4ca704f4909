package models

// ContactMessage is the contact-form submission body.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}
