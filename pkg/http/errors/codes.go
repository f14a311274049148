package errors

// Error codes for standardized error responses
const (
	// Request errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeEmptyInput       = "empty_input"
	ErrCodeInvalidJSON      = "invalid_json"
	ErrCodePayloadTooLarge  = "payload_too_large"

	// Quiz state errors
	ErrCodeNotStarted       = "quiz_not_started"
	ErrCodeNotInProgress    = "quiz_not_in_progress"
	ErrCodeNotFinished      = "quiz_not_finished"
	ErrCodeUnanswered       = "question_unanswered"
	ErrCodeUnknownQuestion  = "unknown_question"
	ErrCodeOptionOutOfRange = "option_out_of_range"
	ErrCodeNoIncorrect      = "no_incorrect_questions"
	ErrCodeNotInRevision    = "not_in_revision"

	// Materials errors
	ErrCodeInvalidUser      = "invalid_user"
	ErrCodeStorageFailed    = "storage_failed"
	ErrCodeNothingExtracted = "nothing_extracted"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)
