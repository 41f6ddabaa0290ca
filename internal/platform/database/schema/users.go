package schema

// UsersTable represents the 'users' table owned by the identity provider
type UsersTable struct {
	Table        string
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    string
	UpdatedAt    string
}

var Users = UsersTable{
	Table:        "users",
	ID:           "id",
	Email:        "email",
	PasswordHash: "password_hash",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
}
