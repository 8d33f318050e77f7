package goSignup

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	phoneShapeRe = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	dobShapeRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func newSchemaValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("phoneshape", func(fl validator.FieldLevel) bool {
		return phoneShapeRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("passwordpolicy", func(fl validator.FieldLevel) bool {
		return passwordClasses(fl.Field().String())
	})

	return v
}

func passwordClasses(s string) bool {
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}

// ValidateAccountType describes the validateaccounttype operation and its observable behavior.
//
// ValidateAccountType may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccountType does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ValidateAccountType(t AccountType) error {
	switch t {
	case AccountIndividual, AccountBusiness:
		return nil
	default:
		return &ValidationError{Fields: []FieldError{{
			Field:   "accountType",
			Message: "Please select an account type",
		}}}
	}
}

// ValidateUserDetails describes the validateuserdetails operation and its observable behavior.
//
// ValidateUserDetails may return an error when input validation, dependency calls, or security checks fail.
// ValidateUserDetails does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateUserDetails(accountType AccountType, d UserDetails) error {
	out := &ValidationError{}

	if err := e.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Fields: []FieldError{{Field: "details", Message: "Invalid details"}}}
		}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{
				Field:   detailsFieldName(fe.StructField()),
				Message: detailsFieldMessage(fe),
			})
		}
	}

	// Address and date of birth are part of the business variant only.
	// Individual accounts may leave them empty.
	if accountType == AccountBusiness {
		switch {
		case d.Address == "":
			out.Fields = append(out.Fields, FieldError{Field: "address", Message: "This field cannot be empty"})
		case len(d.Address) < 2:
			out.Fields = append(out.Fields, FieldError{Field: "address", Message: "Address must be at least 2 characters."})
		case len(d.Address) > 100:
			out.Fields = append(out.Fields, FieldError{Field: "address", Message: "Address must not be longer than 100 characters."})
		}

		if len(d.DOB) < 2 {
			out.Fields = append(out.Fields, FieldError{Field: "dob", Message: "Please enter a valid date of birth"})
		} else if !validDOB(d.DOB) {
			out.Fields = append(out.Fields, FieldError{Field: "dob", Message: "Please enter a valid date (YYYY-MM-DD)"})
		}
	}

	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

func validDOB(dob string) bool {
	if !dobShapeRe.MatchString(dob) {
		return false
	}
	_, err := time.Parse("2006-01-02", dob)
	return err == nil
}

// ValidatePassword describes the validatepassword operation and its observable behavior.
//
// ValidatePassword may return an error when input validation, dependency calls, or security checks fail.
// ValidatePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidatePassword(p PasswordInput) error {
	err := e.validate.Struct(p)

	out := &ValidationError{}
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Fields: []FieldError{{Field: "password", Message: "Invalid password"}}}
		}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{
				Field:   passwordFieldName(fe.StructField()),
				Message: passwordFieldMessage(fe),
			})
		}
	}

	// Mismatch is reported on the confirm field, after the shape checks.
	if p.ConfirmPassword != "" && p.Password != p.ConfirmPassword {
		out.Fields = append(out.Fields, FieldError{
			Field:   "confirmPassword",
			Message: "Passwords do not match",
		})
	}

	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

func (e *Engine) validateOtp(code string) error {
	if len(code) != e.cfg.Signup.OTPLength {
		return &ValidationError{Fields: []FieldError{{
			Field:   "otp",
			Message: "Verification code must be " + strconv.Itoa(e.cfg.Signup.OTPLength) + " characters",
		}}}
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return &ValidationError{Fields: []FieldError{{
				Field:   "otp",
				Message: "Verification code must be alphanumeric",
			}}}
		}
	}
	return nil
}

func (e *Engine) validateResetCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) < e.cfg.Reset.MinCodeLength || len(code) > e.cfg.Reset.MaxCodeLength {
		return "", &ValidationError{Fields: []FieldError{{
			Field:   "resetCode",
			Message: "Please enter a valid reset code",
		}}}
	}
	return code, nil
}

func (e *Engine) validateEmail(email string) error {
	if err := e.validate.Var(email, "required,email"); err != nil {
		return &ValidationError{Fields: []FieldError{{
			Field:   "email",
			Message: "Please enter a valid email address",
		}}}
	}
	return nil
}

func detailsFieldName(structField string) string {
	switch structField {
	case "FirstName":
		return "firstName"
	case "LastName":
		return "lastName"
	case "Email":
		return "email"
	case "Phone":
		return "phone"
	default:
		return strings.ToLower(structField)
	}
}

func detailsFieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "FirstName", "LastName":
		label := "First name"
		if fe.StructField() == "LastName" {
			label = "Last name"
		}
		switch fe.Tag() {
		case "required", "min":
			return label + " must be at least 2 characters"
		case "max":
			return label + " must be at most 50 characters"
		}
	case "Email":
		return "Please enter a valid email address"
	case "Phone":
		switch fe.Tag() {
		case "required", "min":
			return "Phone number must be at least 10 digits"
		case "phoneshape":
			return "Please enter a valid phone number"
		}
	}
	return "Invalid value"
}

func passwordFieldName(structField string) string {
	if structField == "ConfirmPassword" {
		return "confirmPassword"
	}
	return "password"
}

// PasswordStrength defines a public type used by goSignup APIs.
// It is a display-oriented summary of how many strength requirements a
// candidate password meets, with the unmet requirement labels in order.
type PasswordStrength struct {
	Score    int
	MaxScore int
	Level    string
	Unmet    []string
}

// CheckPasswordStrength describes the checkpasswordstrength operation and its observable behavior.
//
// CheckPasswordStrength may return an error when input validation, dependency calls, or security checks fail.
// CheckPasswordStrength does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CheckPasswordStrength(password string) PasswordStrength {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	requirements := []struct {
		label string
		met   bool
	}{
		{"At least 8 characters", len(password) >= 8},
		{"One uppercase letter", upper},
		{"One lowercase letter", lower},
		{"One number", digit},
		{"One special character", special},
	}

	out := PasswordStrength{MaxScore: len(requirements)}
	for _, req := range requirements {
		if req.met {
			out.Score++
		} else {
			out.Unmet = append(out.Unmet, req.label)
		}
	}

	switch {
	case out.Score <= 2:
		out.Level = "weak"
	case out.Score == 3:
		out.Level = "medium"
	case out.Score == 4:
		out.Level = "strong"
	default:
		out.Level = "very-strong"
	}

	return out
}

func passwordFieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Password":
		switch fe.Tag() {
		case "required", "min":
			return "Password must be at least 8 characters"
		case "passwordpolicy":
			return "Password must contain an uppercase letter, a lowercase letter, a number, and a special character"
		}
	case "ConfirmPassword":
		return "Please confirm your password"
	}
	return "Invalid value"
}
