package password

import (
	"fmt"
	"unicode"
)

// Policy describes the password requirements enforced at registration
// and password reset.
type Policy struct {
	MinLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
}

// DefaultPolicy is the policy applied when none is configured.
func DefaultPolicy() Policy {
	return Policy{MinLength: 8}
}

// ValidationError represents a password validation error
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

// Validate checks whether a password meets the policy requirements.
// The first violated rule is returned.
func Validate(password string, policy Policy) error {
	if len(password) < policy.MinLength {
		return &ValidationError{
			Rule:    "Length",
			Message: fmt.Sprintf("Password must be at least %d characters long", policy.MinLength),
		}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		return &ValidationError{
			Rule:    "Uppercase",
			Message: "Password must contain at least one uppercase letter",
		}
	}

	if policy.RequireLowercase && !hasLower {
		return &ValidationError{
			Rule:    "Lowercase",
			Message: "Password must contain at least one lowercase letter",
		}
	}

	if policy.RequireNumbers && !hasNumber {
		return &ValidationError{
			Rule:    "Numbers",
			Message: "Password must contain at least one number",
		}
	}

	if policy.RequireSpecialChars && !hasSpecial {
		return &ValidationError{
			Rule:    "Special",
			Message: "Password must contain at least one special character",
		}
	}

	return nil
}
