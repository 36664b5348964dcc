package parse

import (
	"fmt"
	"sort"
	"strings"

	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/eligibility"
)

// Stored documents carry status labels in several spellings (English and
// Portuguese, mixed case, hyphen or underscore). Everything is folded to the
// canonical values here so that nothing past the store guesses again.

var contractStatuses = map[string]contract.Status{
	"active":                 contract.StatusActive,
	"ativo":                  contract.StatusActive,
	"ativa":                  contract.StatusActive,
	"suspended":              contract.StatusSuspended,
	"suspenso":               contract.StatusSuspended,
	"suspensa":               contract.StatusSuspended,
	"scheduled_cancellation": contract.StatusScheduledCancellation,
	"cancelamento_agendado":  contract.StatusScheduledCancellation,
	"canceled":               contract.StatusCanceled,
	"cancelled":              contract.StatusCanceled,
	"cancelado":              contract.StatusCanceled,
	"cancelada":              contract.StatusCanceled,
}

var suspensionStatuses = map[string]contract.SuspensionStatus{
	"scheduled": contract.SuspensionScheduled,
	"agendada":  contract.SuspensionScheduled,
	"active":    contract.SuspensionActive,
	"ativa":     contract.SuspensionActive,
	"stopped":   contract.SuspensionStopped,
	"encerrada": contract.SuspensionStopped,
	"cancelled": contract.SuspensionCancelled,
	"canceled":  contract.SuspensionCancelled,
	"cancelada": contract.SuspensionCancelled,
	"completed": contract.SuspensionCompleted,
	"concluida": contract.SuspensionCompleted,
}

var enrollmentStatuses = map[string]eligibility.EnrollmentStatus{
	"active":    eligibility.EnrollmentActive,
	"ativo":     eligibility.EnrollmentActive,
	"ativa":     eligibility.EnrollmentActive,
	"canceled":  eligibility.EnrollmentCanceled,
	"cancelled": eligibility.EnrollmentCanceled,
	"cancelado": eligibility.EnrollmentCanceled,
	"cancelada": eligibility.EnrollmentCanceled,
}

var enrollmentKinds = map[string]eligibility.Kind{
	"":               eligibility.KindRegular,
	"regular":        eligibility.KindRegular,
	"experimental":   eligibility.KindExperimental,
	"trial":          eligibility.KindExperimental,
	"single_session": eligibility.KindSingleSession,
	"avulsa":         eligibility.KindSingleSession,
}

// label lower-cases, trims and unifies separators.
func label(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// ContractStatus normalizes a stored contract status label.
func ContractStatus(raw string) (contract.Status, error) {
	if st, ok := contractStatuses[label(raw)]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown contract status %q", raw)
}

// SuspensionStatus normalizes a stored suspension status label.
func SuspensionStatus(raw string) (contract.SuspensionStatus, error) {
	if st, ok := suspensionStatuses[label(raw)]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown suspension status %q", raw)
}

// EnrollmentStatus normalizes a stored enrollment status label.
func EnrollmentStatus(raw string) (eligibility.EnrollmentStatus, error) {
	if st, ok := enrollmentStatuses[label(raw)]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown enrollment status %q", raw)
}

// EnrollmentKind normalizes an enrollment type label. An empty label is a
// regular enrollment.
func EnrollmentKind(raw string) (eligibility.Kind, error) {
	if k, ok := enrollmentKinds[label(raw)]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown enrollment type %q", raw)
}

// ContractStatusLabels lists every stored spelling that normalizes to st, for
// use in queries.
func ContractStatusLabels(st contract.Status) []string {
	var out []string
	for k, v := range contractStatuses {
		if v == st {
			out = append(out, spellings(k)...)
		}
	}
	sort.Strings(out)
	return out
}

// SuspensionStatusLabels lists every stored spelling that normalizes to st.
func SuspensionStatusLabels(st contract.SuspensionStatus) []string {
	var out []string
	for k, v := range suspensionStatuses {
		if v == st {
			out = append(out, spellings(k)...)
		}
	}
	sort.Strings(out)
	return out
}

// spellings of a lower-case label as they may appear once lower-cased.
func spellings(k string) []string {
	if !strings.Contains(k, "_") {
		return []string{k}
	}
	return []string{k, strings.ReplaceAll(k, "_", "-"), strings.ReplaceAll(k, "_", " ")}
}
