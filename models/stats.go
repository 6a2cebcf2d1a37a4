package models

import "time"

// SiteStats — публичная сводка по сайту.
type SiteStats struct {
	TotalMembers         int `json:"total_members"`
	TotalTournaments     int `json:"total_tournaments"`
	ActiveTournaments    int `json:"active_tournaments"`
	CompletedTournaments int `json:"completed_tournaments"`
	TotalGames           int `json:"total_games"`
}

// RegistrationStats — агрегаты по заявкам (для админской сводки).
type RegistrationStats struct {
	Total            int     `json:"total"`
	Active           int     `json:"active"`
	Cancelled        int     `json:"cancelled"`
	CancellationRate float64 `json:"cancellation_rate"`
}

// AdminStats — расширенная сводка для администраторов.
type AdminStats struct {
	Users struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Admins   int `json:"admins"`
		Inactive int `json:"inactive"`
	} `json:"users"`
	Tournaments struct {
		Total    int `json:"total"`
		Upcoming int `json:"upcoming"`
		Past     int `json:"past"`
	} `json:"tournaments"`
	Registrations RegistrationStats `json:"registrations"`
}

// UserStats — личная статистика участника.
type UserStats struct {
	TournamentsJoined   int        `json:"tournaments_joined"`
	UpcomingTournaments int        `json:"upcoming_tournaments"`
	MemberSince         time.Time  `json:"member_since"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
}
