package models

import "time"

// RegistrationStatus представляет статусы заявки, соответствующие ENUM в БД.
type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "pending"
	RegistrationConfirmed  RegistrationStatus = "confirmed"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationNoShow     RegistrationStatus = "no_show"
	RegistrationCompleted  RegistrationStatus = "completed"
)

// CountsTowardCapacity сообщает, занимает ли заявка слот турнира.
// Отменённые заявки мертвы, лист ожидания слота не держит.
func (s RegistrationStatus) CountsTowardCapacity() bool {
	return s != RegistrationCancelled && s != RegistrationWaitlisted
}

// IsActive сообщает, жива ли заявка (любой статус кроме отменённого).
func (s RegistrationStatus) IsActive() bool {
	return s != RegistrationCancelled
}

// RegistrationResult хранит итог выступления участника.
type RegistrationResult struct {
	Position *int    `json:"position,omitempty" db:"result_position"`
	Points   int     `json:"points" db:"result_points"`
	Won      int     `json:"won" db:"result_won"`
	Lost     int     `json:"lost" db:"result_lost"`
	Drawn    int     `json:"drawn" db:"result_drawn"`
	Prize    *string `json:"prize,omitempty" db:"result_prize"`
}

// RegistrationFeedback — отзыв участника о турнире.
type RegistrationFeedback struct {
	Rating  int     `json:"rating" db:"feedback_rating"`
	Comment *string `json:"comment,omitempty" db:"feedback_comment"`
}

// Registration связывает участника с турниром.
type Registration struct {
	ID           int                   `json:"id" db:"id"`
	UserID       int                   `json:"user_id" db:"user_id"`
	TournamentID int                   `json:"tournament_id" db:"tournament_id"`
	RegisteredAt time.Time             `json:"registered_at" db:"registered_at"`
	Status       RegistrationStatus    `json:"status" db:"status"`
	Notes        *string               `json:"notes,omitempty" db:"notes"`
	CheckedIn    bool                  `json:"checked_in" db:"checked_in"`
	CheckedInAt  *time.Time            `json:"checked_in_at,omitempty" db:"checked_in_at"`
	Result       *RegistrationResult   `json:"result,omitempty" db:"-"`
	Feedback     *RegistrationFeedback `json:"feedback,omitempty" db:"-"`
	CreatedAt    time.Time             `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	User       *User       `json:"user,omitempty" db:"-"`
	Tournament *Tournament `json:"tournament,omitempty" db:"-"`
}
