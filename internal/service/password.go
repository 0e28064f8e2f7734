package service

import "unicode"

const minPasswordLength = 8

// CheckPassword enforces the password policy: at least eight characters with
// an uppercase letter, a lowercase letter and a digit.
func CheckPassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return newError(ErrValidation, "Password must be at least %d characters long", minPasswordLength)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return newError(ErrValidation, "Password must contain at least one uppercase letter")
	case !lower:
		return newError(ErrValidation, "Password must contain at least one lowercase letter")
	case !digit:
		return newError(ErrValidation, "Password must contain at least one number")
	}
	return nil
}
