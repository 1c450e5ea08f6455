package auth

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/repopix/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks the upload/delete password. A bcrypt hash takes
// precedence over a plain password when both are configured.
type PasswordVerifier struct {
	plain string
	hash  []byte
}

func NewPasswordVerifier(plain, hash string) *PasswordVerifier {
	v := &PasswordVerifier{plain: plain}
	if hash != "" {
		v.hash = []byte(hash)
	}
	return v
}

func (v *PasswordVerifier) Configured() bool {
	return v.plain != "" || len(v.hash) > 0
}

// Check returns nil on a match, common.ErrUnauthorized on a mismatch and
// common.ErrNotConfigured when there is nothing to compare against.
func (v *PasswordVerifier) Check(password string) error {
	switch {
	case len(v.hash) > 0:
		if err := bcrypt.CompareHashAndPassword(v.hash, []byte(password)); err != nil {
			return common.ErrUnauthorized
		}
		return nil
	case v.plain != "":
		if subtle.ConstantTimeCompare([]byte(v.plain), []byte(password)) != 1 {
			return common.ErrUnauthorized
		}
		return nil
	default:
		return common.ErrNotConfigured
	}
}
