package validation

import "fmt"

const (
	DefaultSignInMinPassword = 6
	DefaultSignUpMinPassword = 8
	DefaultMinFullName       = 2
)

const (
	MsgInvalidEmail  = "Invalid email address"
	MsgFullName      = "Full name is required"
	MsgAgreeToTerms  = "You must agree to the terms and conditions"
	msgPasswordShort = "Password must be at least %d characters long"
)

// SignInSchema requires a valid email and a password of at least minPassword
// characters.
func SignInSchema(minPassword int) Schema {
	return NewSchema(
		emailRule(),
		passwordRule(minPassword),
	)
}

// SignUpSchema adds a full name and mandatory terms acceptance to the
// sign-in rules.
func SignUpSchema(minPassword, minName int) Schema {
	return NewSchema(
		Rule{Field: FieldFullName, Tag: fmt.Sprintf("min=%d", minName), Message: MsgFullName},
		emailRule(),
		passwordRule(minPassword),
		Rule{Field: FieldAgreeToTerms, Kind: KindBool, Tag: "eq=true", Message: MsgAgreeToTerms},
	)
}

func emailRule() Rule {
	return Rule{Field: FieldEmail, Tag: "required,email", Message: MsgInvalidEmail}
}

func passwordRule(min int) Rule {
	return Rule{
		Field:   FieldPassword,
		Tag:     fmt.Sprintf("min=%d", min),
		Message: fmt.Sprintf(msgPasswordShort, min),
	}
}
