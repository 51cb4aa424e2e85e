// Package models provides request and response models for the Privacy Eraser API.
package models

import "time"

// Plan represents a subscription plan tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// ExposureStatus represents the lifecycle status of a broker exposure.
type ExposureStatus string

const (
	ExposureStatusFound          ExposureStatus = "found"
	ExposureStatusPendingRemoval ExposureStatus = "pending_removal"
	ExposureStatusRemoved        ExposureStatus = "removed"
	ExposureStatusReListed       ExposureStatus = "re_listed"
)

// RequestStatus represents the lifecycle status of a removal request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusSubmitted RequestStatus = "submitted"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusFailed    RequestStatus = "failed"
)

// RequestType represents the kind of removal request.
type RequestType string

const (
	RequestTypeOptOut     RequestType = "opt_out"
	RequestTypeGDPRDelete RequestType = "gdpr_delete"
	RequestTypeCCPADelete RequestType = "ccpa_delete"
)

// AlertType represents the kind of monitoring alert.
type AlertType string

const (
	AlertTypeNewExposure      AlertType = "new_exposure"
	AlertTypeReListed         AlertType = "re_listed"
	AlertTypeRemovalConfirmed AlertType = "removal_confirmed"
	AlertTypeBreachDetected   AlertType = "breach_detected"
	AlertTypeNewAccount       AlertType = "new_account"
)

// AlertSeverity represents alert severity.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// OptOutMethod represents how a broker accepts opt-out requests.
type OptOutMethod string

const (
	OptOutMethodForm  OptOutMethod = "form"
	OptOutMethodEmail OptOutMethod = "email"
	OptOutMethodMail  OptOutMethod = "mail"
	OptOutMethodAPI   OptOutMethod = "api"
)

// ScanState represents the state of a background broker scan.
type ScanState string

const (
	ScanStatePending    ScanState = "pending"
	ScanStateInProgress ScanState = "in_progress"
	ScanStateCompleted  ScanState = "completed"
	ScanStateFailed     ScanState = "failed"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a helper type for time.Time with custom JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
