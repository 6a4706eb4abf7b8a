// Package validation checks form input for posts and accounts.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	UsernameMaxLen    = 150
	EmailMaxLen       = 254
	PasswordMinLen    = 8
	maxSimilarity     = 0.7
	msgFieldRequired  = "This field is required."
	msgPasswordsMatch = "The two password fields didn't match."
)

var (
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)
	emailRegex    = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)+$`)
)

// Common passwords rejected outright regardless of length.
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"1234567890": {},
	"qwerty123":  {},
	"qwertyuiop": {},
	"iloveyou":   {},
	"sunshine":   {},
	"princess":   {},
	"football":   {},
	"baseball":   {},
	"welcome1":   {},
	"abc12345":   {},
	"letmein1":   {},
	"11111111":   {},
	"00000000":   {},
	"trustno1":   {},
	"superman":   {},
	"starwars":   {},
}

// ValidateUsername checks presence, length and the allowed character set.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New(msgFieldRequired)
	}
	if n := utf8.RuneCountInString(username); n > UsernameMaxLen {
		return fmt.Errorf("Ensure this value has at most %d characters (it has %d).", UsernameMaxLen, n)
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	return nil
}

// ValidateEmail checks presence and shape of an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New(msgFieldRequired)
	}
	if len(email) > EmailMaxLen || !emailRegex.MatchString(email) {
		return errors.New("Enter a valid email address.")
	}
	return nil
}

// ValidatePassword returns every rule the password breaks.
func ValidatePassword(password, username string) []string {
	var problems []string

	if utf8.RuneCountInString(password) < PasswordMinLen {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", PasswordMinLen))
	}
	if isSimilar(password, username) {
		problems = append(problems, "The password is too similar to the username.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && isNumeric(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

// RegistrationForm is the sign-up payload.
type RegistrationForm struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

// Validate checks every field of the registration form. Uniqueness is checked by the caller.
func (f RegistrationForm) Validate() Errors {
	errs := Errors{}
	if err := ValidateUsername(f.Username); err != nil {
		errs.Add("username", err.Error())
	}
	if err := ValidateEmail(f.Email); err != nil {
		errs.Add("email", err.Error())
	}
	if f.Password1 == "" {
		errs.Add("password1", msgFieldRequired)
	}
	if f.Password2 == "" {
		errs.Add("password2", msgFieldRequired)
	}
	if f.Password1 != "" && f.Password2 != "" {
		if f.Password1 != f.Password2 {
			errs.Add("password2", msgPasswordsMatch)
		} else {
			for _, p := range ValidatePassword(f.Password2, f.Username) {
				errs.Add("password2", p)
			}
		}
	}
	return errs
}

// AccountForm is the username/email part of the profile page.
type AccountForm struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
}

// Validate checks the account fields. Uniqueness is checked by the caller.
func (f AccountForm) Validate() Errors {
	errs := Errors{}
	if err := ValidateUsername(f.Username); err != nil {
		errs.Add("username", err.Error())
	}
	if err := ValidateEmail(f.Email); err != nil {
		errs.Add("email", err.Error())
	}
	return errs
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isSimilar compares the password with the username and each of its word-like parts.
func isSimilar(password, username string) bool {
	if password == "" || username == "" {
		return false
	}
	pw := strings.ToLower(password)
	candidates := append([]string{username}, strings.FieldsFunc(username, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})...)

	for _, c := range candidates {
		c = strings.ToLower(c)
		if c == "" {
			continue
		}
		// A short attribute cannot make a much longer password similar.
		if utf8.RuneCountInString(pw) >= 10*utf8.RuneCountInString(c) {
			continue
		}
		if quickRatio(pw, c) >= maxSimilarity {
			return true
		}
	}
	return false
}

// quickRatio is 2*M/T where M counts the characters a and b share as multisets.
func quickRatio(a, b string) float64 {
	counts := map[rune]int{}
	for _, r := range b {
		counts[r]++
	}
	matches := 0
	for _, r := range a {
		if counts[r] > 0 {
			counts[r]--
			matches++
		}
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 0
	}
	return 2 * float64(matches) / float64(total)
}
