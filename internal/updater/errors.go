package updater

import (
	"errors"
	"fmt"
)

// Code classifies an update failure.
type Code string

// Failure codes.
const (
	CodeInvalidState   Code = "INVALID_STATE"
	CodeCheckFailed    Code = "CHECK_FAILED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeNoUpdate       Code = "NO_UPDATE"
	CodeApplyFailed    Code = "APPLY_FAILED"
	CodeBackupFailed   Code = "BACKUP_FAILED"
	CodeRollbackFailed Code = "ROLLBACK_FAILED"
	CodeNoBackup       Code = "NO_BACKUP"
	CodeDisabled       Code = "DISABLED"
)

// Error is an update failure carrying a Code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

func fail(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
