package settlement

import "errors"

// Ошибки движка расчетов. Проверяются через errors.Is на всех уровнях.
var (
	// Движение средств
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrDuplicateSettlement = errors.New("settlement already applied")
	ErrAlreadyProcessed    = errors.New("request already processed")

	// Призовые места
	ErrPositionTaken       = errors.New("position already taken by another team")
	ErrTeamAlreadyPlaced   = errors.New("team already holds a position")
	ErrInvalidPosition     = errors.New("position is not paid in this tournament")
	ErrInvalidPrizeSplit   = errors.New("invalid prize split parameters")
	ErrPrizePoolExceeded   = errors.New("awarded prizes would exceed the distributable pool")
	ErrTeamNotFound        = errors.New("team not found in tournament")
	ErrTournamentNotActive = errors.New("tournament is not active")

	// Регистрация
	ErrTournamentFull     = errors.New("tournament is full")
	ErrInvalidRoster      = errors.New("invalid team roster")
	ErrRegistrationClosed = errors.New("tournament registration is closed")
	ErrAlreadyRegistered  = errors.New("player is already registered in this tournament")

	// Жизненный цикл турнира
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
)
