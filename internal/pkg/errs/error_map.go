/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Content Errors
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large."},

	// 3xxx: User, Session, and Security Errors
	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again."},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again."},
	ErrSessionKicked:        {Code: ErrSessionKicked, Message: "You were signed in on another device."},
	ErrAlreadyLoggedIn:      {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrNameAlreadyExists:    {Code: ErrNameAlreadyExists, Message: "This display name is already taken."},
	ErrEmailAlreadyExists:   {Code: ErrEmailAlreadyExists, Message: "This email is already registered."},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Incorrect email or password."},
	ErrAccountSuspended:     {Code: ErrAccountSuspended, Message: "This account has been suspended.", Status: http.StatusForbidden},
	ErrUserNotFound:         {Code: ErrUserNotFound, Message: "Account not found."},
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 4xxx: Moderation and Rank Errors
	ErrNoPermission:      {Code: ErrNoPermission, Message: "Your rank does not permit this action.", Status: http.StatusForbidden},
	ErrCannotModifyOwner: {Code: ErrCannotModifyOwner, Message: "The Owner cannot be modified.", Status: http.StatusForbidden},
	ErrLogAccessDenied:   {Code: ErrLogAccessDenied, Message: "Only the Owner and Admins can view the log.", Status: http.StatusForbidden},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreWrite:        {Code: ErrStoreWrite, Message: "Could not save the change. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},
}
