// Package hasher turns plaintext credentials into opaque salted hashes
// and verifies candidates against them. The service layer depends on
// the interface only, so the algorithm can change without touching
// business logic.
package hasher

// PasswordHasher is the contract for credential hashing.
type PasswordHasher interface {
	// Hash derives a salted one-way hash, encoded self-describingly so
	// it can be verified even after parameter changes.
	Hash(password string) (string, error)

	// Verify reports whether password matches the encoded hash. The
	// comparison is constant time. A malformed hash is an error, a
	// mismatch is (false, nil).
	Verify(password, encoded string) (bool, error)

	// DummyVerify burns roughly the same time as a real verification
	// without comparing anything. Called when a username does not exist,
	// so response timing does not reveal which usernames are taken.
	DummyVerify()
}
