package chat

import (
	"net/http"
	"strings"

	apperrors "intern-portal/backend/pkg/errors"
)

// Chat error taxonomy. Wrapped copies still match with errors.Is.
var (
	ErrInvalidMessage    = apperrors.NewBadRequestError("INVALID_MESSAGE", "message must carry text or an attachment")
	ErrNotAMember        = apperrors.NewForbiddenError("NOT_A_MEMBER", "sender is not a member of this project")
	ErrPersistence       = apperrors.NewInternalServerError("PERSISTENCE_FAILED", "message could not be saved")
	ErrOracleUnavailable = apperrors.NewServiceUnavailableError("ORACLE_UNAVAILABLE", "project membership could not be verified")
	ErrConnectionClosed  = apperrors.NewError(http.StatusGone, "CONNECTION_CLOSED", "connection is closed")
	ErrSendBufferFull    = apperrors.NewError(http.StatusServiceUnavailable, "SEND_BUFFER_FULL", "connection send buffer is full")
	ErrMalformedFrame    = apperrors.NewBadRequestError("MALFORMED_FRAME", "frame could not be decoded")
	ErrRateLimited       = apperrors.NewTooManyRequestsError("RATE_LIMITED", "too many messages, slow down")
)

func reasonOf(err error) string {
	return strings.ToLower(apperrors.GetErrorCode(err))
}
