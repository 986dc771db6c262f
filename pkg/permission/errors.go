package permission

// Error is a terminal authorization error surfaced to the caller. Messages
// are deliberately generic: why access was denied (which module, which scope
// keys were missing) is visible only in server-side logs.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

const (
	// CodeUnknownWebservice covers both unknown and disabled webservices.
	CodeUnknownWebservice = "UNKNOWN_WEBSERVICE"
	// CodePermissionDenied is the default terminal state when the chain
	// exhausts without a grant.
	CodePermissionDenied = "PERMISSION_DENIED"
	// CodeAlreadyConnected rejects a connected caller on a
	// disconnected-only public webservice.
	CodeAlreadyConnected = "ALREADY_CONNECTED"
)

var (
	// ErrUnknownWebservice is returned before any module runs and cannot be
	// overridden by a module.
	ErrUnknownWebservice = &Error{Code: CodeUnknownWebservice, Message: "unknown webservice"}
	// ErrPermissionDenied is the generic denial.
	ErrPermissionDenied = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	// ErrAlreadyConnected rejects authenticated access to login-style
	// webservices.
	ErrAlreadyConnected = &Error{Code: CodeAlreadyConnected, Message: "already connected"}
)
