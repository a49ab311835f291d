package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	strictPolicy := Policy{
		MinLength:           8,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
	}

	tests := []struct {
		name        string
		password    string
		policy      Policy
		expectError bool
		rule        string
	}{
		{
			name:        "valid password with all requirements",
			password:    "SecurePass123!",
			policy:      strictPolicy,
			expectError: false,
		},
		{
			name:        "minimum length only policy",
			password:    "longenough",
			policy:      DefaultPolicy(),
			expectError: false,
		},
		{
			name:        "too short",
			password:    "Ab1!",
			policy:      strictPolicy,
			expectError: true,
			rule:        "Length",
		},
		{
			name:        "missing uppercase",
			password:    "securepass123!",
			policy:      strictPolicy,
			expectError: true,
			rule:        "Uppercase",
		},
		{
			name:        "missing lowercase",
			password:    "SECUREPASS123!",
			policy:      strictPolicy,
			expectError: true,
			rule:        "Lowercase",
		},
		{
			name:        "missing number",
			password:    "SecurePassword!",
			policy:      strictPolicy,
			expectError: true,
			rule:        "Numbers",
		},
		{
			name:        "missing special char",
			password:    "SecurePass1234",
			policy:      strictPolicy,
			expectError: true,
			rule:        "Special",
		},
		{
			name:        "exactly minimum length",
			password:    strings.Repeat("a", 8),
			policy:      DefaultPolicy(),
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.password, tt.policy)
			if !tt.expectError {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.rule, verr.Rule)
		})
	}
}
