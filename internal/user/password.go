package user

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordMatcher decides how passwords are stored and compared.
//
// Stored credentials are plaintext by default so existing users
// collections stay readable. Production deployments should enable
// hashing (security.hash_passwords).
type PasswordMatcher interface {
	Hash(plain string) (string, error)
	Matches(stored, supplied string) bool
}

type PlainPasswords struct{}

func (PlainPasswords) Hash(plain string) (string, error) {
	return plain, nil
}

func (PlainPasswords) Matches(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// BcryptPasswords hashes new passwords and still accepts plaintext
// records written before hashing was turned on.
type BcryptPasswords struct {
	Cost int
}

func (b BcryptPasswords) Hash(plain string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b BcryptPasswords) Matches(stored, supplied string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return PlainPasswords{}.Matches(stored, supplied)
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

const (
	generatedPasswordLength   = 8
	generatedPasswordAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// GeneratePassword returns a random 8 character password of [a-z0-9].
func GeneratePassword() (string, error) {
	max := big.NewInt(int64(len(generatedPasswordAlphabet)))
	buf := make([]byte, generatedPasswordLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = generatedPasswordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
