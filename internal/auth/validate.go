// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match request bodies.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SignUpInput is the data required to create an account.
type SignUpInput struct {
	Name            string `json:"name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"omitempty,oneof=user guide lead-guide admin"`
}

// Validate checks field constraints, including the password confirmation.
func (in SignUpInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return validationError(err)
	}
	return nil
}

// PasswordChange is a new password with its confirmation.
type PasswordChange struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Validate checks the password length and that the confirmation matches.
func (p PasswordChange) Validate() error {
	if err := validate.Struct(p); err != nil {
		return validationError(err)
	}
	return nil
}

// accountFields mirrors the persisted constraints of an Account.
type accountFields struct {
	Name         string `json:"name" validate:"required,max=50"`
	Email        string `json:"email" validate:"required,email"`
	Role         Role   `json:"role" validate:"required,oneof=user guide lead-guide admin"`
	PasswordHash string `json:"password" validate:"required"`
	FailedLogins int    `json:"failedLogins" validate:"gte=0"`
}

// Validate checks the account against its persisted constraints. Stores call
// it when saving with SaveOptions.Validate set.
func (a *Account) Validate() error {
	err := validate.Struct(accountFields{
		Name:         a.Name,
		Email:        a.Email,
		Role:         a.Role,
		PasswordHash: a.PasswordHash,
		FailedLogins: a.FailedLogins,
	})
	if err != nil {
		return validationError(err)
	}
	return a.checkResetPair()
}

// validationError converts validator output into an AUTH_VALIDATION_FAILED
// error carrying a per-field message map under the "fields" key.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.Code(CodeValidationFailed).Wrap(err)
	}

	fields := make(map[string]string, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fieldMessage(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, msg)
	}
	return oops.Code(CodeValidationFailed).
		With("fields", fields).
		Errorf("Invalid input. %s", strings.Join(msgs, " "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		switch fe.Field() {
		case "name":
			return "Please tell us your name!"
		case "confirmPassword":
			return "Please confirm your password."
		case "password":
			return "Please provide a password."
		default:
			return fmt.Sprintf("Please provide your %s.", fe.Field())
		}
	case "email":
		return "Please provide a valid email."
	case "min":
		return fmt.Sprintf("Password must contain at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Name must contain at most %s characters.", fe.Param())
	case "eqfield":
		return "Passwords are not the same!"
	case "oneof":
		return fmt.Sprintf("Role must be one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("Invalid value for %s.", fe.Field())
	}
}
