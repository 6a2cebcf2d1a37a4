package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusPlanned            TournamentStatus = "planned"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusInProgress         TournamentStatus = "in_progress"
	StatusCompleted          TournamentStatus = "completed"
	StatusCancelled          TournamentStatus = "cancelled"
)

// Tournament представляет турнир.
type Tournament struct {
	ID                   int              `json:"id" db:"id"`
	Name                 string           `json:"name" db:"name"`
	Description          *string          `json:"description,omitempty" db:"description"`
	Game                 string           `json:"game" db:"game"`
	Date                 time.Time        `json:"date" db:"date"`
	MaxPlayers           int              `json:"max_players" db:"max_players"`
	CurrentPlayers       int              `json:"current_players" db:"current_players"`
	Status               TournamentStatus `json:"status" db:"status"`
	CreatedByID          int              `json:"created_by" db:"created_by"`
	RegistrationDeadline *time.Time       `json:"registration_deadline,omitempty" db:"registration_deadline"`
	EntryFee             *float64         `json:"entry_fee,omitempty" db:"entry_fee"`
	IsPublic             bool             `json:"is_public" db:"is_public"`
	Tags                 []string         `json:"tags,omitempty" db:"tags"`
	BannerKey            *string          `json:"-" db:"banner_key"`
	BannerURL            *string          `json:"banner_url,omitempty" db:"-"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	CreatedBy     *User          `json:"creator,omitempty" db:"-"`
	Registrations []Registration `json:"registrations,omitempty" db:"-"`
}

// IsTerminal сообщает, достиг ли турнир конечного состояния.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
