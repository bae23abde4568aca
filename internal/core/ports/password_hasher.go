package ports

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Matches reports whether password is exactly the one hash was built from.
	Matches(hash, password string) bool
}
