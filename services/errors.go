package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound           = errors.New("requested resource not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrRequestNotFound    = errors.New("operations request not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	// Ошибки валидации и бизнес-правил (ожидаемые, показываются пользователю как есть)
	ErrValidationFailed      = errors.New("validation failed")
	ErrWeeklyCapExceeded     = errors.New("weekly match cap exceeded")
	ErrCooldownActive        = errors.New("team played a match too recently")
	ErrInsufficientEntrants  = errors.New("not enough entrants to start the draw")
	ErrDuplicateAvailability = errors.New("an open availability post already exists")
	ErrSelfAccept            = errors.New("cannot accept your own request")
	ErrTournamentFull        = errors.New("tournament registration is full")

	// Ошибки конфликтов (проигранная гонка compare-and-swap и повторные переходы)
	ErrRequestAlreadyLocked     = errors.New("request has already been taken")
	ErrMatchAlreadyResolved     = errors.New("match result has already been resolved")
	ErrTournamentAlreadyStarted = errors.New("tournament draw has already been made")
	ErrRegistrationConflict     = errors.New("team is already registered for this tournament")

	// Ошибки авторизации
	ErrForbiddenOperation         = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden     = errors.New("only the team captain can perform this action")
	ErrVerifierNotOpposingCaptain = errors.New("only the opposing captain can verify this match")

	// Временная недоступность хранилища; вызывающий может повторить с задержкой.
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
)
