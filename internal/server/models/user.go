package models

// DirectoryUser is a user entry returned by the host directory.
type DirectoryUser struct {
	ID          string
	DisplayName string
}

