package upnp

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can decide how to handle it.
type Kind string

const (
	// KindTransport is a network or HTTP failure. Never retried here.
	KindTransport Kind = "TRANSPORT"
	// KindMissingElement means a required field or element was absent.
	KindMissingElement Kind = "MISSING_ELEMENT"
	// KindParse means a document was malformed or a value failed to decode.
	KindParse Kind = "PARSE"
	// KindCapabilityMissing means a device accepted as a ZonePlayer lacks an
	// expected service. It indicates a model mismatch and is not recoverable.
	KindCapabilityMissing Kind = "CAPABILITY_MISSING"
	// KindDeviceFault means the device answered with a UPnP fault.
	KindDeviceFault Kind = "DEVICE_FAULT"
)

// Error is the single error type returned by this package.
type Error struct {
	Kind Kind
	// Context names the document, response or action the error belongs to
	Context string
	// Element is the missing element or attribute
	Element string
	// Value is the text that failed to parse
	Value string
	// Code is the UPnP error code of a device fault
	Code int
	// Status is the HTTP status of a transport failure, if any
	Status int
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Kind)
	if e.Context != "" {
		fmt.Fprintf(&b, " %s", e.Context)
	}
	switch e.Kind {
	case KindMissingElement:
		fmt.Fprintf(&b, ": missing element %q", e.Element)
	case KindParse:
		if e.Value != "" {
			fmt.Fprintf(&b, ": invalid value %q", e.Value)
		}
	case KindCapabilityMissing:
		fmt.Fprintf(&b, ": device has no %s service", e.Element)
	case KindDeviceFault:
		fmt.Fprintf(&b, ": upnp error %d", e.Code)
	case KindTransport:
		if e.Status != 0 {
			fmt.Fprintf(&b, ": http status %d", e.Status)
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// MissingElement builds a KindMissingElement error.
func MissingElement(context, element string) *Error {
	return &Error{Kind: KindMissingElement, Context: context, Element: element}
}

// ParseError builds a KindParse error for value.
func ParseError(context, value string, cause error) *Error {
	return &Error{Kind: KindParse, Context: context, Value: value, Cause: cause}
}

// CapabilityMissing builds a KindCapabilityMissing error.
func CapabilityMissing(device, service string) *Error {
	return &Error{Kind: KindCapabilityMissing, Context: device, Element: service}
}

// TransportError wraps a network failure.
func TransportError(context string, status int, cause error) *Error {
	return &Error{Kind: KindTransport, Context: context, Status: status, Cause: cause}
}

// DeviceFault builds a KindDeviceFault error.
func DeviceFault(context string, code int, description string) *Error {
	var cause error
	if description != "" {
		cause = errors.New(description)
	}
	return &Error{Kind: KindDeviceFault, Context: context, Code: code, Cause: cause}
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// FaultCode returns the UPnP error code carried by err, if it is a device fault.
func FaultCode(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindDeviceFault {
		return e.Code, true
	}
	return 0, false
}

// HTTPStatus returns the HTTP status of a transport failure.
func HTTPStatus(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindTransport && e.Status != 0 {
		return e.Status, true
	}
	return 0, false
}
