package model

import (
	"fmt"
	"time"
)

// AlertType categorises the source of an alert and determines which
// department role owns it (see the access package).
type AlertType string

const (
	AlertCrowdOverflow    AlertType = "crowd-overflow"
	AlertSecurityBreach   AlertType = "security-breach"
	AlertMedicalEmergency AlertType = "medical-emergency"
	AlertFire             AlertType = "fire"
	AlertTechnicalFailure AlertType = "technical-failure"
	AlertWeather          AlertType = "weather-alert"
)

// AlertTypes lists every recognised alert type.
var AlertTypes = []AlertType{
	AlertCrowdOverflow,
	AlertSecurityBreach,
	AlertMedicalEmergency,
	AlertFire,
	AlertTechnicalFailure,
	AlertWeather,
}

// Valid reports whether t is a recognised alert type.
func (t AlertType) Valid() bool {
	for _, known := range AlertTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AlertSeverity is totally ordered, critical highest.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Severities lists every severity from lowest to highest.
var Severities = []AlertSeverity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the position of s in the severity order (low=0 ...
// critical=3), or -1 for an unknown severity.
func (s AlertSeverity) Rank() int {
	for i, known := range Severities {
		if s == known {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a recognised severity.
func (s AlertSeverity) Valid() bool { return s.Rank() >= 0 }

// AlertStatus is the lifecycle state of an alert.  Resolved is terminal.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// Valid reports whether s is a recognised alert status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertAcknowledged, AlertResolved:
		return true
	}
	return false
}

// AlertLocation pins an alert to a temple zone.  TempleID may be empty for
// site-wide alerts such as weather.
type AlertLocation struct {
	TempleID string `json:"templeId,omitempty"`
	Zone     string `json:"zone,omitempty"`
}

// AlertAction is one entry in the append-only action log of an alert.
type AlertAction struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert is a workflow item raised by the engine's simulated sensors or by
// an operator report.  Alerts are never deleted; they move through
// active -> acknowledged -> resolved and keep their full action history.
type Alert struct {
	ID             string        `json:"id"`
	Type           AlertType     `json:"type"`
	Severity       AlertSeverity `json:"severity"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Location       AlertLocation `json:"location"`
	Timestamp      time.Time     `json:"timestamp"`
	Status         AlertStatus   `json:"status"`
	AssignedToRole Role          `json:"assignedToRole,omitempty"`
	ResolvedAt     *time.Time    `json:"resolvedAt,omitempty"`
	Actions        []AlertAction `json:"actions"`
}

// Validate checks the alert invariants, including the coupling between the
// resolved status and the ResolvedAt timestamp: one is set exactly when
// the other is.
func (a Alert) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: alert id is empty", ErrValidation)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: alert %s has unknown type %q", ErrValidation, a.ID, a.Type)
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("%w: alert %s has unknown severity %q", ErrValidation, a.ID, a.Severity)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: alert %s has unknown status %q", ErrValidation, a.ID, a.Status)
	}
	if (a.Status == AlertResolved) != (a.ResolvedAt != nil) {
		return fmt.Errorf("%w: alert %s resolvedAt must be set exactly when status is resolved",
			ErrValidation, a.ID)
	}
	if a.AssignedToRole != "" && !a.AssignedToRole.Valid() {
		return fmt.Errorf("%w: alert %s assigned to unknown role %q",
			ErrValidation, a.ID, a.AssignedToRole)
	}
	return nil
}
