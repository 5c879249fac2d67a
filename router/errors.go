package router

var (
	// ErrInternal is send when a internal server error occurs.
	ErrInternal = "INTERNAL_ERROR"
	// ErrParsing is sent when an error occurs in parsing the request
	ErrParsing = "PARSING_ERROR"
	// ErrNotFound is sent for unknown routes and for moderation requests without an admin session.
	// Both must look the same to the client.
	ErrNotFound = "NOT_FOUND"
	// ErrWrongPassword is sent when the admin login password does not match
	ErrWrongPassword = "WRONG_PASSWORD"
)
