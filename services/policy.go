package services

import (
	"time"

	"github.com/guyajeux/tournament-registry/models"
)

// CanRegister — чистая политика допуска к регистрации. Не имеет побочных
// эффектов, её можно вызывать сколько угодно раз.
//
// Проверки выполняются в фиксированном порядке, решение принимается по
// первой сработавшей: заполненность -> повторная заявка -> дедлайн ->
// прошедшая дата -> статус. Каждая причина отказа имеет своё
// пользовательское сообщение, поэтому порядок менять нельзя.
//
// existing — живая (неотменённая) заявка пары (user, tournament), если есть.
func CanRegister(t *models.Tournament, existing *models.Registration, now time.Time) error {
	if t.CurrentPlayers >= t.MaxPlayers {
		return ErrTournamentFull
	}
	if existing != nil {
		if existing.Status == models.RegistrationWaitlisted {
			return ErrAlreadyWaitlisted
		}
		return ErrAlreadyRegistered
	}
	if t.RegistrationDeadline != nil && now.After(*t.RegistrationDeadline) {
		return ErrRegistrationDeadlinePassed
	}
	if now.After(t.Date) {
		return ErrTournamentAlreadyPlayed
	}
	if t.Status != models.StatusRegistrationOpen {
		return ErrRegistrationNotOpen
	}
	return nil
}

// CanJoinWaitlist решает, можно ли встать в лист ожидания: заявка в лист
// принимается только когда единственная причина отказа — заполненность.
func CanJoinWaitlist(t *models.Tournament, existing *models.Registration, now time.Time) error {
	if existing != nil {
		if existing.Status == models.RegistrationWaitlisted {
			return ErrAlreadyWaitlisted
		}
		return ErrAlreadyRegistered
	}
	if t.RegistrationDeadline != nil && now.After(*t.RegistrationDeadline) {
		return ErrRegistrationDeadlinePassed
	}
	if now.After(t.Date) {
		return ErrTournamentAlreadyPlayed
	}
	if t.Status != models.StatusRegistrationOpen {
		return ErrRegistrationNotOpen
	}
	return nil
}
