package services

import "errors"

// Ошибки сервисного слоя. Ошибки движка расчетов (settlement) и хранилища
// (repositories) пробрасываются как есть и проверяются через errors.Is.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации входных данных
	ErrValidationFailed          = errors.New("validation failed")
	ErrPaymentReferenceRequired  = errors.New("payment reference is required")
	ErrBankDetailsRequired       = errors.New("account holder with bank account and IFSC or UPI id is required")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentInvalidCapacity = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidTeamSize = errors.New("tournament team size must be solo, duo or squad")
	ErrTournamentInvalidFee      = errors.New("tournament entry fee and prize pool must be non-negative with at most two decimals")
	ErrTournamentStartRequired   = errors.New("tournament start time is required")
	ErrTournamentInvalidStatus   = errors.New("invalid tournament status provided")

	// Ошибки доступа
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
)
