package form

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNameRequired     = errors.New("name is required")
	ErrInvalidEmail     = errors.New("a valid email is required")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
)

type signupPayload struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type signinPayload struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type SignupForm struct {
	Name     string
	Email    string
	Password string
}

func (f SignupForm) Validate() error {
	payload := signupPayload{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
	if err := validate.Struct(payload); err != nil {
		return translateAuthError(err)
	}
	// bcrypt truncates beyond 72 bytes, so the backend rejects longer
	// passwords; catch it before the request.
	if len(f.Password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

type SigninForm struct {
	Email    string
	Password string
}

func (f SigninForm) Validate() error {
	payload := signinPayload{
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
	if err := validate.Struct(payload); err != nil {
		return translateAuthError(err)
	}
	if len(f.Password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

func translateAuthError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	for _, fe := range fieldErrors {
		switch fe.Field() {
		case "Name":
			return ErrNameRequired
		case "Email":
			return ErrInvalidEmail
		case "Password":
			if fe.Tag() == "min" {
				return ErrPasswordTooShort
			}
			return errors.New("password is required")
		}
	}
	return err
}
