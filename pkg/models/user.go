package models

// User is an authenticated identity. The ID is the owner scope for every
// stored entity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
