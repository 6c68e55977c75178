package entity

// User represents an account row in the `users` table.
// PasswordHash is a digest of the plaintext; the plaintext is never stored.
type User struct {
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"password_hash"`
	Role         string `db:"role" json:"role"`
}
