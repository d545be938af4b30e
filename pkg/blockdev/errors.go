package blockdev

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Failure Kinds
// ============================================================================

// Kind classifies why a request failed.
type Kind uint8

const (
	// KindInvalidArgument: unsupported operation or malformed request.
	// Rejected before any I/O.
	KindInvalidArgument Kind = iota + 1

	// KindResourceExhausted: a scratch buffer could not be obtained.
	// Aborts only the request that needed it.
	KindResourceExhausted

	// KindOutOfRange: offset plus segment length exceeds capacity.
	// Aborts the request before the offending segment is touched.
	KindOutOfRange

	// KindIO: the backing store failed a read or write.
	KindIO

	// KindAdmission: the request could not be accepted (device closing,
	// dispatcher stopped, queue full). Always reported synchronously.
	KindAdmission
)

// String returns the lowercase kind name used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindOutOfRange:
		return "out_of_range"
	case KindIO:
		return "io"
	case KindAdmission:
		return "admission"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Sentinel returns the sentinel error for k.
func (k Kind) Sentinel() error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindResourceExhausted:
		return ErrResourceExhausted
	case KindOutOfRange:
		return ErrOutOfRange
	case KindIO:
		return ErrIO
	case KindAdmission:
		return ErrAdmission
	default:
		return nil
	}
}

// ============================================================================
// Standard Device Errors
// ============================================================================

// Every request failure matches exactly one of these sentinels through
// errors.Is. Front ends map them to their own status codes.
var (
	// ErrInvalidArgument indicates an unsupported operation kind.
	//
	// Protocol Mapping:
	//   - HTTP: 400 Bad Request
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceExhausted indicates scratch memory was unavailable.
	//
	// This is a transient error - it may succeed once other requests finish.
	//
	// Protocol Mapping:
	//   - HTTP: 507 Insufficient Storage
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrOutOfRange indicates the request extends past device capacity.
	//
	// Protocol Mapping:
	//   - HTTP: 416 Range Not Satisfiable
	ErrOutOfRange = errors.New("out of range")

	// ErrIO indicates the backing store failed.
	//
	// Protocol Mapping:
	//   - HTTP: 500 Internal Server Error
	ErrIO = errors.New("i/o error")

	// ErrAdmission indicates the request was refused at submission.
	//
	// Protocol Mapping:
	//   - HTTP: 503 Service Unavailable
	ErrAdmission = errors.New("request not admitted")
)

// Lifecycle errors. These are causes wrapped inside admission failures or
// returned directly by Close and Stop.
var (
	// ErrDeviceClosing is returned by Pin once teardown has begun.
	ErrDeviceClosing = errors.New("device is closing")

	// ErrPinsOutstanding is returned by Close when its context ends before
	// every in-flight request released the device.
	ErrPinsOutstanding = errors.New("device has outstanding requests")

	// ErrDispatcherStopped is returned for submissions after Stop.
	ErrDispatcherStopped = errors.New("dispatcher is stopped")

	// ErrQueueFull is returned when the dispatch queue has no free slot.
	ErrQueueFull = errors.New("dispatch queue is full")

	// ErrAlreadySubmitted is returned when a request is submitted twice.
	ErrAlreadySubmitted = errors.New("request already submitted")
)

// ============================================================================
// Error Type
// ============================================================================

// Error describes a failed request.
type Error struct {
	Op     Op     // operation of the failed request
	Kind   Kind   // failure classification
	Sector uint64 // starting sector of the request
	Offset int64  // byte offset being processed, -1 when not applicable
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op.String())
	fmt.Fprintf(&b, " sector %d", e.Sector)
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " (offset %d)", e.Offset)
	}
	b.WriteString(": ")
	if s := e.Kind.Sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// StatusOf returns "ok" for a nil error and the failure kind name otherwise.
// Errors without a Kind report "io".
func StatusOf(err error) string {
	if err == nil {
		return "ok"
	}
	if k, ok := KindOf(err); ok {
		return k.String()
	}
	return KindIO.String()
}

func newError(op Op, kind Kind, sector uint64, offset int64, err error) *Error {
	return &Error{Op: op, Kind: kind, Sector: sector, Offset: offset, Err: err}
}
