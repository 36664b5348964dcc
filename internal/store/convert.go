package store

import (
	"fmt"
	"time"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/eligibility"
	"gym-contracts-backend/internal/model"
	"gym-contracts-backend/internal/parse"
)

// toInstance normalizes a stored contract row into the engine's shape.
func toInstance(row model.ClientContract) (contract.Instance, error) {
	status, err := parse.ContractStatus(row.Status)
	if err != nil {
		return contract.Instance{}, fmt.Errorf("contract %s: %w", row.ID, err)
	}
	allowed, err := parse.Weekdays(row.AllowedWeekDays)
	if err != nil {
		return contract.Instance{}, fmt.Errorf("contract %s: %w", row.ID, err)
	}

	return contract.Instance{
		ID:                    row.ID,
		ClientID:              row.ClientID,
		Status:                status,
		StartDate:             calendar.FromTime(row.StartDate),
		EndDate:               calendar.FromTime(row.EndDate),
		TotalSuspendedDays:    row.TotalSuspendedDays,
		PendingSuspensionDays: row.PendingSuspensionDays,
		CancelReason:          row.CancelReason,
		CancelDate:            parse.TimePtr(row.CancelDate),
		Terms: contract.Terms{
			AllowSuspension:      row.AllowSuspension,
			SuspensionMaxDays:    row.SuspensionMaxDays,
			AllowedWeekDays:      allowed,
			MaxWeeklyEnrollments: row.MaxWeeklyEnrollments,
		},
		Version: row.Version,
	}, nil
}

// contractRow is the storage form of a contract instance.
func contractRow(c contract.Instance) model.ClientContract {
	return model.ClientContract{
		ID:                    c.ID,
		ClientID:              c.ClientID,
		Status:                string(c.Status),
		StartDate:             c.StartDate.Time(),
		EndDate:               c.EndDate.Time(),
		TotalSuspendedDays:    c.TotalSuspendedDays,
		PendingSuspensionDays: c.PendingSuspensionDays,
		CancelReason:          c.CancelReason,
		CancelDate:            parse.DatePtr(c.CancelDate),
		AllowSuspension:       c.AllowSuspension,
		SuspensionMaxDays:     c.SuspensionMaxDays,
		AllowedWeekDays:       parse.FormatWeekdays(c.AllowedWeekDays),
		MaxWeeklyEnrollments:  c.MaxWeeklyEnrollments,
		Version:               c.Version,
	}
}

// contractUpdates are the columns a lifecycle command may change. Terms are
// fixed at sale time and never rewritten here.
func contractUpdates(c contract.Instance, version int64, now time.Time) map[string]any {
	return map[string]any{
		"status":                  string(c.Status),
		"start_date":              c.StartDate.Time(),
		"end_date":                c.EndDate.Time(),
		"total_suspended_days":    c.TotalSuspendedDays,
		"pending_suspension_days": c.PendingSuspensionDays,
		"cancel_reason":           c.CancelReason,
		"cancel_date":             parse.DatePtr(c.CancelDate),
		"version":                 version,
		"updated_at":              now,
	}
}

func toSuspension(row model.Suspension) (contract.Suspension, error) {
	status, err := parse.SuspensionStatus(row.Status)
	if err != nil {
		return contract.Suspension{}, fmt.Errorf("suspension %s: %w", row.ID, err)
	}
	return contract.Suspension{
		ID:         row.ID,
		ContractID: row.ClientContractID,
		StartDate:  calendar.FromTime(row.StartDate),
		EndDate:    calendar.FromTime(row.EndDate),
		Reason:     row.Reason,
		Status:     status,
		DaysUsed:   row.DaysUsed,
	}, nil
}

func suspensionRow(s contract.Suspension) model.Suspension {
	return model.Suspension{
		ID:               s.ID,
		ClientContractID: s.ContractID,
		StartDate:        s.StartDate.Time(),
		EndDate:          s.EndDate.Time(),
		Reason:           s.Reason,
		Status:           string(s.Status),
		DaysUsed:         s.DaysUsed,
	}
}

// toEnrollment normalizes a stored enrollment, including the legacy
// ActivityID reference and free-form status/type labels.
func toEnrollment(row model.Enrollment) (eligibility.Enrollment, error) {
	status, err := parse.EnrollmentStatus(row.Status)
	if err != nil {
		return eligibility.Enrollment{}, fmt.Errorf("enrollment %s: %w", row.ID, err)
	}
	kind, err := parse.EnrollmentKind(row.Type)
	if err != nil {
		return eligibility.Enrollment{}, fmt.Errorf("enrollment %s: %w", row.ID, err)
	}
	weekDays, err := parse.Weekdays(row.WeekDays)
	if err != nil {
		return eligibility.Enrollment{}, fmt.Errorf("enrollment %s: %w", row.ID, err)
	}

	classID := row.ClassID
	if classID == "" {
		classID = row.ActivityID
	}

	return eligibility.Enrollment{
		ID:          row.ID,
		ClientID:    row.ClientID,
		ClassID:     classID,
		Status:      status,
		Type:        kind,
		Weekday:     row.Weekday,
		WeekDays:    weekDays,
		StartDate:   parse.TimePtr(row.StartDate),
		EndDate:     parse.TimePtr(row.EndDate),
		SessionDate: parse.TimePtr(row.SessionDate),
	}, nil
}
