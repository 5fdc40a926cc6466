package vmem

import (
	"fmt"
	"syscall"

	cerrors "github.com/cockroachdb/errors"
)

// ErrorCode classifies failures reported by the platform virtual-memory layer.
// Platform error numbers with a shared meaning are folded into the matching
// code; everything else becomes UnknownError with the raw number preserved.
type ErrorCode uint32

const (
	// NoError is the code a zero platform error number translates to. Success is
	// reported as a nil error, never as a MapError carrying NoError, so observing
	// NoError inside an error value marks a defect in the translation layer.
	NoError ErrorCode = iota
	// InvalidArguments reports a malformed request: a zero size, an alignment
	// that is not a power of two, or arguments the platform rejected outright
	InvalidArguments
	// TryAgain reports a transient failure. The identical call may succeed later.
	TryAgain
	// NoMemory reports address-space or commit-charge exhaustion
	NoMemory
	// LengthOverflow reports a length the platform cannot represent
	LengthOverflow
	// UnknownError reports a platform error number with no portable meaning.
	// The raw number is preserved in MapError.Errno.
	UnknownError
)

var errorCodeMapping = make(map[ErrorCode]string)

func init() {
	errorCodeMapping[NoError] = "NoError"
	errorCodeMapping[InvalidArguments] = "InvalidArguments"
	errorCodeMapping[TryAgain] = "TryAgain"
	errorCodeMapping[NoMemory] = "NoMemory"
	errorCodeMapping[LengthOverflow] = "LengthOverflow"
	errorCodeMapping[UnknownError] = "UnknownError"
}

func (c ErrorCode) String() string {
	str, ok := errorCodeMapping[c]
	if !ok {
		return fmt.Sprintf("ErrorCode(%d)", uint32(c))
	}
	return str
}

// MapError is the error type produced by the allocation and deallocation
// primitives in this package. Callers that need to branch on the failure class
// should retrieve it with errors.As; the wrapping applied at call sites does
// not disturb that.
type MapError struct {
	Code ErrorCode
	// Errno preserves the platform's raw error number for codes that fold
	// several native failures together, and for UnknownError, where it is the
	// only information available.
	Errno uint64
}

func (e *MapError) Error() string {
	if e.Code == UnknownError {
		return fmt.Sprintf("virtual memory operation failed: %s (platform error %d)", e.Code, e.Errno)
	}
	return fmt.Sprintf("virtual memory operation failed: %s", e.Code)
}

// Retryable reports whether the failure was transient and the identical call
// may succeed later.
func (e *MapError) Retryable() bool {
	return e.Code == TryAgain
}

func newMapError(code ErrorCode) *MapError {
	return &MapError{Code: code}
}

// osError folds an error reported by the platform into a MapError. Failures
// that do not carry a platform error number at all become a bare UnknownError.
func osError(err error) *MapError {
	var errno syscall.Errno
	if cerrors.As(err, &errno) {
		return errnoMapError(errno)
	}
	return &MapError{Code: UnknownError}
}
