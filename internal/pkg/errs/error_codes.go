/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Content Errors
const (
	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates an avatar upload exceeded the size limit.
	ErrFileSizeTooLarge = 2301
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid or incorrect.
	ErrPowChallengeInvalid = 3002

	// ErrSessionKicked indicates that the current client connection has been terminated.
	ErrSessionKicked = 3003

	// ErrAlreadyLoggedIn indicates the request carries a valid session already.
	ErrAlreadyLoggedIn = 3004

	// ErrNameAlreadyExists indicates the display name is taken (case-insensitive).
	ErrNameAlreadyExists = 3005

	// ErrEmailAlreadyExists indicates the email is already registered.
	ErrEmailAlreadyExists = 3006

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = 3007

	// ErrAccountSuspended indicates a banned account attempted to log in.
	ErrAccountSuspended = 3008

	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = 3009

	// ErrUnauthorized indicates the request requires an authenticated identity.
	ErrUnauthorized = 3010
)

// 4xxx: Moderation and Rank Errors
const (
	// ErrNoPermission indicates the actor's rank does not permit the action.
	ErrNoPermission = 4002

	// ErrCannotModifyOwner indicates an attempt to moderate or re-rank the Owner.
	ErrCannotModifyOwner = 4003

	// ErrLogAccessDenied indicates a non-Owner/Admin requested the audit trail.
	ErrLogAccessDenied = 4006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreWrite indicates a persistence write failed; the action may be retried.
	ErrStoreWrite = 5001

	// ErrFileStorageFailed indicates the avatar storage backend rejected the operation.
	ErrFileStorageFailed = 5002
)
