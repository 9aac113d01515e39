package users

import (
	"regexp"
	"strings"
	"unicode"
)

// Violation messages are fixed strings; callers and UIs key off them verbatim.
const (
	MsgNameRequired      = "Name is required."
	MsgEmailRequired     = "Email is required."
	MsgPasswordLength    = "Password must be at least 6 characters."
	MsgPasswordUppercase = "Password must contain at least 1 uppercase letter."
	MsgPasswordLowercase = "Password must contain at least 1 lowercase letter."
	MsgPasswordDigit     = "Password must contain at least 1 digit."
	MsgPasswordSymbol    = "Password must contain at least 1 symbol."
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NewUserInput is the raw, untrusted input for creating a user.
type NewUserInput struct {
	Name     string
	Email    string
	SMS      string
	Password string
}

// ValidationResult carries zero or more human-readable violations; an empty
// result means the input is valid.
type ValidationResult struct {
	Violations []string
}

// Valid reports whether no rule was violated.
func (r ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// rule pairs a predicate with the message emitted when it fails. Rules are
// evaluated independently so every violation is collected in declaration
// order rather than failing fast on the first.
type rule struct {
	ok      func(NewUserInput) bool
	message string
}

var newUserRules = []rule{
	{func(in NewUserInput) bool { return strings.TrimSpace(in.Name) != "" }, MsgNameRequired},
	{func(in NewUserInput) bool { return emailPattern.MatchString(in.Email) }, MsgEmailRequired},
	{func(in NewUserInput) bool { return len(in.Password) >= minPasswordLength }, MsgPasswordLength},
	{func(in NewUserInput) bool { return containsClass(in.Password, unicode.IsUpper) }, MsgPasswordUppercase},
	{func(in NewUserInput) bool { return containsClass(in.Password, unicode.IsLower) }, MsgPasswordLowercase},
	{func(in NewUserInput) bool { return containsClass(in.Password, unicode.IsDigit) }, MsgPasswordDigit},
	{func(in NewUserInput) bool { return containsClass(in.Password, isSymbol) }, MsgPasswordSymbol},
}

// ValidateNewUser evaluates every rule against the input and aggregates all
// violations. The sms field is optional and never produces a violation.
func ValidateNewUser(input NewUserInput) ValidationResult {
	var result ValidationResult
	for _, r := range newUserRules {
		if !r.ok(input) {
			result.Violations = append(result.Violations, r.message)
		}
	}
	return result
}

func containsClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}

func isSymbol(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
