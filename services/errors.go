package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки политики регистрации — порядок проверок фиксирован,
	// см. CanRegister.
	ErrTournamentFull             = errors.New("tournament is full")
	ErrAlreadyRegistered          = errors.New("already registered for this tournament")
	ErrAlreadyWaitlisted          = errors.New("already on the waiting list for this tournament")
	ErrRegistrationDeadlinePassed = errors.New("registration deadline has passed")
	ErrTournamentAlreadyPlayed    = errors.New("tournament has already taken place")
	ErrRegistrationNotOpen        = errors.New("tournament registration is not open")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed          = errors.New("validation failed")
	ErrPasswordTooShort          = errors.New("password must be at least 6 characters")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentGameRequired    = errors.New("tournament game is required")
	ErrTournamentDateRequired    = errors.New("tournament date is required")
	ErrTournamentDateInPast      = errors.New("tournament date must be in the future")
	ErrTournamentInvalidCapacity = errors.New("tournament capacity must be between 2 and 100")
	ErrTournamentInvalidDeadline = errors.New("registration deadline must be before the tournament date")
	ErrTournamentInvalidFee      = errors.New("entry fee cannot be negative")
	ErrTournamentInvalidStatus   = errors.New("invalid tournament status provided")
	ErrInvalidStatusTransition   = errors.New("invalid tournament status transition")
	ErrInvalidFeedbackRating     = errors.New("feedback rating must be between 1 and 5")
	ErrRegistrationNotesTooLong  = errors.New("registration notes must be at most 500 characters")

	// Ошибки конфликтов
	ErrUserEmailConflict          = errors.New("email address is already in use")
	ErrTournamentNameConflict     = errors.New("tournament with this name and date already exists")
	ErrTournamentHasRegistrations = errors.New("cannot delete a tournament with registrations")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account has been deactivated")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrCannotDemoteSelf   = errors.New("cannot change your own role")
	ErrCannotDisableAdmin = errors.New("cannot deactivate an administrator account")

	// Загрузка файлов недоступна без настроенного хранилища
	ErrUploadsNotConfigured = errors.New("file uploads are not configured")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound         = errors.New("user not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
)
