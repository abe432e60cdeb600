package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes plain with bcrypt.  A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.  Passwords longer than 72 bytes are
// rejected with bcrypt.ErrPasswordTooLong.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the bcrypt hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// BurnPasswordCheck runs a bcrypt comparison that always fails, so a login
// for an unknown account takes about as long as one with a wrong password.
func BurnPasswordCheck(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("booksphere-dummy"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
