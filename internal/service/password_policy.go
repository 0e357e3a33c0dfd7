package service

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	apperrors "wikishelf/internal/errors"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

var (
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordDigit   = regexp.MustCompile(`\d`)
	passwordSymbol  = regexp.MustCompile(`[@$!%*?&]`)
)

// ValidatePassword enforces the password policy: at least 8 characters from
// letters, digits and @$!%*?&, with one uppercase letter, one digit and one
// of those symbols.
func ValidatePassword(password string) error {
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", apperrors.ErrInvalidInput, maxPasswordBytes)
	}
	if !utf8.ValidString(password) ||
		!passwordCharset.MatchString(password) ||
		!passwordUpper.MatchString(password) ||
		!passwordDigit.MatchString(password) ||
		!passwordSymbol.MatchString(password) {
		return apperrors.ErrWeakPassword
	}
	return nil
}
