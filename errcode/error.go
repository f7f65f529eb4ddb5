package errcode

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	CoinErrorBase = (iota + 1) * 1000
	PersistErrorBase
	DiskErrorBase
)

type ProjectError struct {
	Module string
	Code   int
	Desc   string
}

func (e ProjectError) Error() string {
	return fmt.Sprintf("module: %s, global errcode: %v,  desc: %s", e.Module, e.Code, e.Desc)
}

func getCodeAndName(errCode fmt.Stringer) (int, string) {
	code := 0
	name := ""

	switch t := errCode.(type) {
	case CoinErr:
		code = int(t)
		name = "coins"
	case PersistErr:
		code = int(t)
		name = "persist"
	case DiskErr:
		code = int(t)
		name = "disk"
	default:
	}

	return code, name
}

// IsErrorCode reports whether the root cause of err is a ProjectError
// carrying errCode. Errors wrapped with github.com/pkg/errors are unwrapped.
func IsErrorCode(err error, errCode fmt.Stringer) bool {
	e, ok := errors.Cause(err).(ProjectError)
	icode, _ := getCodeAndName(errCode)
	return ok && icode == e.Code
}

func New(errCode fmt.Stringer) error {
	code, name := getCodeAndName(errCode)

	return ProjectError{
		Module: name,
		Code:   code,
		Desc:   errCode.String(),
	}
}

// Newf attaches a formatted detail message to errCode while keeping the
// code recoverable through IsErrorCode.
func Newf(errCode fmt.Stringer, format string, args ...interface{}) error {
	return errors.WithMessagef(New(errCode), format, args...)
}
