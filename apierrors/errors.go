// Package apierrors implements the RESTCONF error taxonomy of spec §7 as a
// tagged variant (design note 9), replacing exception-style control flow:
// every pipeline stage returns an *Error (or a plain Go error from an
// external collaborator, wrapped at the dispatcher boundary) instead of
// throwing.
package apierrors

import "fmt"

// ErrorType is the RESTCONF error-type enumeration, RFC 8040 §7.
type ErrorType string

const (
	Transport  ErrorType = "transport"
	Rpc        ErrorType = "rpc"
	Protocol   ErrorType = "protocol"
	Application ErrorType = "application"
)

// Tag is the RFC 8040 error-tag vocabulary this gateway emits.
type Tag string

const (
	TagInvalidValue         Tag = "invalid-value"
	TagOperationFailed       Tag = "operation-failed"
	TagOperationNotSupported Tag = "operation-not-supported"
	TagAccessDenied          Tag = "access-denied"
	TagResourceDenied        Tag = "resource-denied"
	TagDataMissing           Tag = "data-missing"
	TagMalformedMessage      Tag = "malformed-message"
)

// Error is one RESTCONF protocol error, carrying everything needed to
// render an ietf-restconf:errors document entry and pick an HTTP status.
type Error struct {
	Status  int
	Type    ErrorType
	Tag     Tag
	Message string
	Path    string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s (%s): %s [%s]", e.Tag, e.Type, e.Message, e.Path)
	}
	return fmt.Sprintf("%s (%s): %s", e.Tag, e.Type, e.Message)
}

func newErr(status int, typ ErrorType, tag Tag, msg string, path string) *Error {
	return &Error{Status: status, Type: typ, Tag: tag, Message: msg, Path: path}
}

// Constructors, one per §7 taxonomy row.

func UriSyntax(msg string) *Error {
	return newErr(400, Protocol, TagInvalidValue, msg, "")
}

func OperationFailed(msg string, path string) *Error {
	return newErr(400, Application, TagOperationFailed, msg, path)
}

func MethodNotSupported(msg string) *Error {
	return newErr(405, Protocol, TagOperationNotSupported, msg, "")
}

func WrongNamespace(msg string) *Error {
	return newErr(400, Protocol, TagOperationNotSupported, msg, "")
}

func AuthDenied(msg string) *Error {
	return newErr(401, Protocol, TagAccessDenied, msg, "")
}

func NacmDenied(msg string, path string) *Error {
	return newErr(403, Application, TagAccessDenied, msg, path)
}

func NotAcceptable(msg string) *Error {
	return newErr(406, Application, TagOperationNotSupported, msg, "")
}

func UnsupportedMediaType(msg string) *Error {
	return newErr(415, Application, TagOperationNotSupported, msg, "")
}

func ResourceExists(msg string) *Error {
	return newErr(409, Application, TagResourceDenied, msg, "")
}

func NotFound(msg string) *Error {
	return newErr(404, Application, TagInvalidValue, msg, "")
}

func DataMissing(path string) *Error {
	return newErr(404, Application, TagDataMissing, "Data does not exist", path)
}

func InvalidValue(msg string, path string) *Error {
	return newErr(400, Application, TagInvalidValue, msg, path)
}

func MalformedMessage(msg string) *Error {
	return newErr(400, Application, TagMalformedMessage, msg, "")
}

func DatastoreFailure(msg string) *Error {
	return newErr(500, Application, TagOperationFailed, msg, "")
}

// Wrap maps an error from an external collaborator (datastore engine, YANG
// library) that is not already an *Error into a generic 500, preserving its
// text, per spec §7's propagation rule.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return newErr(500, Application, TagOperationFailed, err.Error(), "")
}
