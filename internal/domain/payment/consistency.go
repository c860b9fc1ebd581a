package payment

import (
	"time"

	"github.com/paymentmanager/backend/internal/domain/shared/valueobject"
)

// Violation is the single problem reported for a status/dueDate/evidence triple
type Violation string

const (
	ViolationNone               Violation = "ok"
	ViolationFutureDateRequired Violation = "futureDateRequired"
	ViolationPastDateRequired   Violation = "pastDateRequired"
	ViolationTodayRequired      Violation = "todayRequired"
	ViolationEvidenceRequired   Violation = "evidenceRequired"
)

var violationMessages = map[Violation]string{
	ViolationFutureDateRequired: "Due date must be in the future for pending status",
	ViolationPastDateRequired:   "Due date must be in the past for overdue status",
	ViolationTodayRequired:      "Due date must be today for due now status",
	ViolationEvidenceRequired:   "Please upload evidence file to mark as completed.",
}

// OK reports whether no violation was found
func (v Violation) OK() bool {
	return v == ViolationNone || v == ""
}

// Message returns the user-facing text for the violation
func (v Violation) Message() string {
	return violationMessages[v]
}

// Field returns the form field the violation is reported against
func (v Violation) Field() Field {
	if v == ViolationEvidenceRequired {
		return FieldEvidenceID
	}
	return FieldDueDate
}

// ConsistencyValidator classifies a proposed (status, dueDate, evidenceID)
// triple. It never mutates anything.
type ConsistencyValidator struct {
	now func() time.Time
	loc *time.Location
}

// ConsistencyOption configures a ConsistencyValidator
type ConsistencyOption func(*ConsistencyValidator)

// WithClock sets the source of the current time
func WithClock(now func() time.Time) ConsistencyOption {
	return func(v *ConsistencyValidator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLocation sets the zone "today" is evaluated in
func WithLocation(loc *time.Location) ConsistencyOption {
	return func(v *ConsistencyValidator) {
		if loc != nil {
			v.loc = loc
		}
	}
}

// NewConsistencyValidator creates a validator using the wall clock in UTC by default
func NewConsistencyValidator(opts ...ConsistencyOption) *ConsistencyValidator {
	v := &ConsistencyValidator{
		now: time.Now,
		loc: time.UTC,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Today returns the current calendar date in the configured zone
func (v *ConsistencyValidator) Today() valueobject.Date {
	return valueobject.DateOf(v.now(), v.loc)
}

// Validate returns at most one violation. The evidence rule is checked
// first; a missing due date skips the date rules.
func (v *ConsistencyValidator) Validate(status Status, dueDate valueobject.Date, evidenceID string) Violation {
	if status == StatusCompleted && evidenceID == "" {
		return ViolationEvidenceRequired
	}
	if dueDate.IsZero() {
		return ViolationNone
	}

	today := v.Today()
	switch status {
	case StatusPending:
		if !dueDate.After(today) {
			return ViolationFutureDateRequired
		}
	case StatusOverdue:
		if !dueDate.Before(today) {
			return ViolationPastDateRequired
		}
	case StatusDueNow:
		if !dueDate.Equal(today) {
			return ViolationTodayRequired
		}
	}
	return ViolationNone
}

