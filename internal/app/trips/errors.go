package trips

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func errUnauthenticated() *Error {
	return &Error{Status: 401, Code: "UNAUTHENTICATED", Message: "Not authenticated"}
}

func errForbidden(message string) *Error {
	return &Error{Status: 403, Code: "FORBIDDEN", Message: message}
}

func errNotFound(message string) *Error {
	return &Error{Status: 404, Code: "NOT_FOUND", Message: message}
}

func errInvalidState(message string) *Error {
	return &Error{Status: 400, Code: "INVALID_STATE", Message: message}
}

func errValidation(message string, details map[string]any) *Error {
	return &Error{Status: 400, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

// errTransaction hides the cause; callers log it before returning.
func errTransaction(message string) *Error {
	return &Error{Status: 500, Code: "INTERNAL", Message: message}
}

const (
	msgTripNotFound  = "Trip not found"
	msgLinkNotFound  = "Trip not found or link has been revoked"
	msgAccessDenied  = "Access denied"
	msgNotAMember    = "You are not a member of this trip"
	msgCityNotFound  = "City not found"
	msgActivityGone  = "Activity not found"
	msgOnlyEdit      = "Only the creator can edit this trip"
	msgOnlyDelete    = "Only the creator can delete this trip"
	msgOnlyRevoke    = "Only the creator can revoke the link"
	msgOnlyShareLink = "Only the creator can change the share link"
)
