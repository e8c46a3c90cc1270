package security

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrymomot/saaskit/pkg/validator"
)

const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72 // bcrypt input limit
	SpecialCharacters = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

	maxEmailLength = 254
)

// Rule names reported by PasswordCheck.Failed.
const (
	ruleLength    = "length"
	ruleUppercase = "uppercase"
	ruleLowercase = "lowercase"
	ruleNumber    = "number"
	ruleSpecial   = "special"
)

// PasswordRequirements is the policy as published to clients.
type PasswordRequirements struct {
	MinLength          int  `json:"minLength"`
	MaxLength          int  `json:"maxLength"`
	RequireUppercase   bool `json:"requireUppercase"`
	RequireLowercase   bool `json:"requireLowercase"`
	RequireNumber      bool `json:"requireNumber"`
	RequireSpecialChar bool `json:"requireSpecialChar"`
}

func Requirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength:          MinPasswordLength,
		MaxLength:          MaxPasswordBytes,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireNumber:      true,
		RequireSpecialChar: true,
	}
}

// PasswordCheck reports which rules a password satisfies.
type PasswordCheck struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Special   bool `json:"special"`
}

func (c PasswordCheck) Valid() bool {
	return c.Length && c.Uppercase && c.Lowercase && c.Number && c.Special
}

// Failed lists the names of the rules that were not met.
func (c PasswordCheck) Failed() []string {
	var failed []string
	for _, r := range []struct {
		name string
		ok   bool
	}{
		{ruleLength, c.Length},
		{ruleUppercase, c.Uppercase},
		{ruleLowercase, c.Lowercase},
		{ruleNumber, c.Number},
		{ruleSpecial, c.Special},
	} {
		if !r.ok {
			failed = append(failed, r.name)
		}
	}
	return failed
}

// CheckPassword runs every rule; the minimum counts characters, the maximum bytes.
func CheckPassword(password string) PasswordCheck {
	errs := validator.ExtractValidationErrors(validator.Apply(
		minRunes(ruleLength, password, MinPasswordLength),
		validator.MaxLenString(ruleLength, password, MaxPasswordBytes),
		validator.PasswordUppercase(ruleUppercase, password),
		validator.PasswordLowercase(ruleLowercase, password),
		validator.PasswordDigit(ruleNumber, password),
		validator.PasswordSpecialChar(ruleSpecial, password),
	))
	return PasswordCheck{
		Length:    !errs.Has(ruleLength),
		Uppercase: !errs.Has(ruleUppercase),
		Lowercase: !errs.Has(ruleLowercase),
		Number:    !errs.Has(ruleNumber),
		Special:   !errs.Has(ruleSpecial),
	}
}

func minRunes(field, value string, min int) validator.Rule {
	return validator.Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: validator.ValidationError{
			Field:          field,
			Message:        "password is too short",
			TranslationKey: "validation.min_length",
			TranslationValues: map[string]any{
				"field": field,
				"min":   min,
			},
		},
	}
}

// ValidateEmail accepts a bare RFC 5322 address with a dotted domain.
func ValidateEmail(email string) bool {
	return validator.Apply(
		validator.ValidEmail("email", email),
		validator.MaxLenString("email", email, maxEmailLength),
		bareAddress("email", email),
	) == nil
}

// bareAddress rejects display-name forms such as "Alice <alice@example.com>".
func bareAddress(field, value string) validator.Rule {
	return validator.Rule{
		Check: func() bool { return !strings.ContainsAny(value, " <>\"") },
		Error: validator.ValidationError{
			Field:          field,
			Message:        "must be a bare email address",
			TranslationKey: "validation.email",
			TranslationValues: map[string]any{
				"field": field,
			},
		},
	}
}

// NormalizeEmail trims and lower-cases an address; uniqueness is enforced on this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
