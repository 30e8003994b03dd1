package auth

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt password hashing. bcrypt embeds a per-call random
// salt in the digest and compares in constant time.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher. A non-positive cost falls back to the
// bcrypt default.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash derives a salted digest from the plaintext password.
func (h *Hasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. Malformed digests verify
// as false rather than returning an error, so a corrupted stored hash
// behaves like a wrong password.
func (h *Hasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
