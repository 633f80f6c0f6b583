package types

import "github.com/ZanzyTHEbar/errbuilder-go"

// ErrorKind is the failure taxonomy surfaced by the lifecycle operations.
type ErrorKind string

const (
	KindUnknown           ErrorKind = ""
	KindNotFound          ErrorKind = "not-found"
	KindResolutionFailure ErrorKind = "resolution-failure"
	KindStorageFailure    ErrorKind = "storage-failure"
	KindFormatViolation   ErrorKind = "format-violation"
	KindLimitExceeded     ErrorKind = "limit-exceeded"
	KindApplyFailure      ErrorKind = "apply-failure"
)

var kindCodes = map[ErrorKind]errbuilder.ErrCode{
	KindNotFound:          errbuilder.CodeNotFound,
	KindResolutionFailure: errbuilder.CodeUnavailable,
	KindStorageFailure:    errbuilder.CodeInternal,
	KindFormatViolation:   errbuilder.CodeInvalidArgument,
	KindLimitExceeded:     errbuilder.CodeResourceExhausted,
	KindApplyFailure:      errbuilder.CodeAborted,
}

// NewError builds an errbuilder error carrying the code of kind.
func NewError(kind ErrorKind, msg string, cause error) error {
	builder := errbuilder.New().
		WithCode(kindCodes[kind]).
		WithMsg(msg)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return builder
}

func StorageFailure(msg string, cause error) error {
	return NewError(KindStorageFailure, msg, cause)
}

func ResolutionFailure(msg string, cause error) error {
	return NewError(KindResolutionFailure, msg, cause)
}

func ApplyFailure(msg string, cause error) error {
	return NewError(KindApplyFailure, msg, cause)
}

// KindOf maps an error back onto the taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	code := errbuilder.CodeOf(err)
	for kind, kindCode := range kindCodes {
		if kindCode == code {
			return kind
		}
	}
	return KindUnknown
}
