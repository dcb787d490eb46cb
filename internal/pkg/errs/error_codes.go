/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrFormParseFailed indicates failure to parse multipart form data.
	ErrFormParseFailed = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1004
)

// 2xxx: Chat and Upload Business Logic Errors
const (
	// ErrInvalidUsername indicates an empty or otherwise unusable display name.
	ErrInvalidUsername = 2001

	// ErrNoFileUploaded indicates that the upload request carried no file part.
	ErrNoFileUploaded = 2101

	// ErrFileSizeTooLarge indicates that the uploaded file exceeded its size limit.
	ErrFileSizeTooLarge = 2102
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the storage backend rejected or lost an upload.
	ErrFileStorageFailed = 5001
)
