package hash

import "golang.org/x/crypto/bcrypt"

// Hasher produces salted bcrypt hashes with a fixed work factor
// (bcrypt.DefaultCost). The cost is embedded in the hash itself, so
// previously stored hashes keep verifying if the factor ever changes.
type Hasher struct {
	cost int
}

func New() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

func (h *Hasher) Hash(password string) (string, error) {
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(passHash), nil
}

// Verify reports whether password matches hash. A malformed or
// foreign-format hash verifies as false; it is never an error.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
