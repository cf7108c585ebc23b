package models

// User represents an author of content.
type User struct {
	ID          int
	Username    string
	DisplayName string
}
