package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not_found")
	ErrInvalidID    = errors.New("invalid_id")
	ErrRoleNotFound = errors.New("role_not_found")

	ErrInvalidPageToken = errors.New("invalid_page_token")
)

// Error is a single validation failure reported by the user or role store.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Errors is returned by store mutations for expected failures such as a
// duplicate user name or a weak password. Anything else is infrastructure.
type Errors []Error

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, item := range e {
		parts = append(parts, item.Code)
	}
	return "identity: " + strings.Join(parts, ", ")
}

// AsErrors extracts validation failures from err.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

const (
	CodeConcurrencyFailure              = "ConcurrencyFailure"
	CodeDuplicateUserName               = "DuplicateUserName"
	CodeDuplicateEmail                  = "DuplicateEmail"
	CodeInvalidUserName                 = "InvalidUserName"
	CodeInvalidEmail                    = "InvalidEmail"
	CodeDuplicateRoleName               = "DuplicateRoleName"
	CodeInvalidRoleName                 = "InvalidRoleName"
	CodeUserAlreadyInRole               = "UserAlreadyInRole"
	CodeUserNotInRole                   = "UserNotInRole"
	CodeUserAlreadyHasPassword          = "UserAlreadyHasPassword"
	CodeUserLockoutNotEnabled           = "UserLockoutNotEnabled"
	CodePasswordTooShort                = "PasswordTooShort"
	CodePasswordRequiresDigit           = "PasswordRequiresDigit"
	CodePasswordRequiresLower           = "PasswordRequiresLower"
	CodePasswordRequiresUpper           = "PasswordRequiresUpper"
	CodePasswordRequiresNonAlphanumeric = "PasswordRequiresNonAlphanumeric"
)

func ConcurrencyFailure() Error {
	return Error{Code: CodeConcurrencyFailure, Description: "Optimistic concurrency failure, object has been modified."}
}

func DuplicateUserName(name string) Error {
	return Error{Code: CodeDuplicateUserName, Description: fmt.Sprintf("Username '%s' is already taken.", name)}
}

func DuplicateEmail(email string) Error {
	return Error{Code: CodeDuplicateEmail, Description: fmt.Sprintf("Email '%s' is already taken.", email)}
}

func InvalidUserName(name string) Error {
	return Error{Code: CodeInvalidUserName, Description: fmt.Sprintf("Username '%s' is invalid, can only contain letters or digits.", name)}
}

func InvalidEmail(email string) Error {
	return Error{Code: CodeInvalidEmail, Description: fmt.Sprintf("Email '%s' is invalid.", email)}
}

func DuplicateRoleName(name string) Error {
	return Error{Code: CodeDuplicateRoleName, Description: fmt.Sprintf("Role name '%s' is already taken.", name)}
}

func InvalidRoleName(name string) Error {
	return Error{Code: CodeInvalidRoleName, Description: fmt.Sprintf("Role name '%s' is invalid.", name)}
}

func UserAlreadyInRole(role string) Error {
	return Error{Code: CodeUserAlreadyInRole, Description: fmt.Sprintf("User already in role '%s'.", role)}
}

func UserNotInRole(role string) Error {
	return Error{Code: CodeUserNotInRole, Description: fmt.Sprintf("User is not in role '%s'.", role)}
}

func UserAlreadyHasPassword() Error {
	return Error{Code: CodeUserAlreadyHasPassword, Description: "User already has a password set."}
}

func UserLockoutNotEnabled() Error {
	return Error{Code: CodeUserLockoutNotEnabled, Description: "Lockout is not enabled for this user."}
}

func PasswordTooShort(length int) Error {
	return Error{Code: CodePasswordTooShort, Description: fmt.Sprintf("Passwords must be at least %d characters.", length)}
}

func PasswordRequiresDigit() Error {
	return Error{Code: CodePasswordRequiresDigit, Description: "Passwords must have at least one digit ('0'-'9')."}
}

func PasswordRequiresLower() Error {
	return Error{Code: CodePasswordRequiresLower, Description: "Passwords must have at least one lowercase ('a'-'z')."}
}

func PasswordRequiresUpper() Error {
	return Error{Code: CodePasswordRequiresUpper, Description: "Passwords must have at least one uppercase ('A'-'Z')."}
}

func PasswordRequiresNonAlphanumeric() Error {
	return Error{Code: CodePasswordRequiresNonAlphanumeric, Description: "Passwords must have at least one non alphanumeric character."}
}
