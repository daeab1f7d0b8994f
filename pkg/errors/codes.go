package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Short aliases used by the domain layer.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Chemistry Module Error Codes
const (
	// ErrCodeUnresolvedReference: an operation targets an identifier absent
	// from the pathway index or the reaction.
	ErrCodeUnresolvedReference ErrorCode = "CHEM_001"
	// ErrCodeDuplicateIdentifier: an add operation targets an identifier that
	// is already present.
	ErrCodeDuplicateIdentifier ErrorCode = "CHEM_002"
	ErrCodeInvalidCoefficient  ErrorCode = "CHEM_003"
	ErrCodePathwayNotFound     ErrorCode = "CHEM_004"
	ErrCodeCompoundNotFound    ErrorCode = "CHEM_005"
	ErrCodeVersionConflict     ErrorCode = "CHEM_006"
	ErrCodeDocumentInvalid     ErrorCode = "CHEM_007"
	ErrCodeSnapshotNotFound    ErrorCode = "CHEM_008"
)

// ErrorCodeHTTPStatus maps every ErrorCode to an HTTP status code.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeUnresolvedReference: http.StatusNotFound,
	ErrCodeDuplicateIdentifier: http.StatusConflict,
	ErrCodeInvalidCoefficient:  http.StatusBadRequest,
	ErrCodePathwayNotFound:     http.StatusNotFound,
	ErrCodeCompoundNotFound:    http.StatusNotFound,
	ErrCodeVersionConflict:     http.StatusConflict,
	ErrCodeDocumentInvalid:     http.StatusUnprocessableEntity,
	ErrCodeSnapshotNotFound:    http.StatusNotFound,
}

// ErrorCodeMessage maps every ErrorCode to its default message.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeUnresolvedReference: "unresolved reference",
	ErrCodeDuplicateIdentifier: "duplicate identifier",
	ErrCodeInvalidCoefficient:  "invalid stoichiometric coefficient",
	ErrCodePathwayNotFound:     "pathway not found",
	ErrCodeCompoundNotFound:    "compound not found",
	ErrCodeVersionConflict:     "pathway was modified concurrently",
	ErrCodeDocumentInvalid:     "invalid pathway document",
	ErrCodeSnapshotNotFound:    "snapshot not found",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
