package service

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/and161185/cms-auth/internal/errs"
)

const (
	minNameLen     = 3
	maxNameLen     = 18
	minPasswordLen = 8
	codeLen        = 6
)

// normalizeEmail lowercases and trims an address so lookups are case-insensitive.
func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validateEmail(email string) error {
	a, err := mail.ParseAddress(email)
	if err != nil || a.Address != email {
		return errs.Validation("invalid email")
	}
	return nil
}

func validateName(field, v string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	if n < minNameLen || n > maxNameLen {
		return errs.Validation(field + " must be 3-18 characters")
	}
	return nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return errs.Validation("password must be at least 8 characters")
	}
	return nil
}

func validateUsername(u string) error {
	if u == "" {
		return nil
	}
	if n := len(u); n < minNameLen || n > 32 {
		return errs.Validation("username must be 3-32 characters")
	}
	for _, r := range u {
		if !(r < unicode.MaxASCII && (unicode.IsLower(r) || unicode.IsDigit(r) || r == '_' || r == '.')) {
			return errs.Validation("username may contain lowercase letters, digits, '_' and '.'")
		}
	}
	return nil
}

func validateCode(code string) error {
	if len(code) != codeLen {
		return errs.Validation("code must be 6 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return errs.Validation("code must be 6 digits")
		}
	}
	return nil
}

func validateRegister(in RegisterInput) error {
	if err := validateName("first_name", in.FirstName); err != nil {
		return err
	}
	if err := validateName("last_name", in.LastName); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

// usernameBase derives the prefix of an auto-generated username.
func usernameBase(firstName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(firstName) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}
