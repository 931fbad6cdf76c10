package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidID        = 1004
	ErrCodeInvalidDigest    = 1005
	ErrCodeInvalidType      = 1006
	ErrCodeInvalidPatientID = 1007
	ErrCodeInvalidRole      = 1008
	ErrCodeMissingRequired  = 1009

	// Domain state (2xxx)
	ErrCodeRecordNotFound = 2001
	ErrCodeBlobNotFound   = 2002
	ErrCodeUserNotFound   = 2003
	ErrCodeRecordIDExists = 2101
	ErrCodeConflict       = 2102
	ErrCodeIntegrity      = 2201

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeNotImplemented = 4005

	// Ledger (5xxx)
	ErrCodeTransactionFailed = 5001
	ErrCodeLedgerUnavailable = 5002
	ErrCodeCommitUnknown     = 5003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeRecordNotFound
	case 409:
		return ErrCodeConflict
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	case 502:
		return ErrCodeLedgerUnavailable
	default:
		return 0
	}
}
