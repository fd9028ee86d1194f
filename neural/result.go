package neural

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Quality marks whether a result was produced on the normal path or with
// degraded inputs (numeric substitution, model fallback, model failure).
type Quality string

const (
	// QualityOK marks a result produced on the normal path
	QualityOK Quality = "ok"
	// QualityDegraded marks a result produced with substituted features or
	// after a recoverable model failure
	QualityDegraded Quality = "degraded"
)

// MentalState is a discrete cognitive state label.
type MentalState string

// Mental state labels in model output order.
const (
	StateFocused  MentalState = "focused"
	StateRelaxed  MentalState = "relaxed"
	StateStressed MentalState = "stressed"
	StateDrowsy   MentalState = "drowsy"
	StateNeutral  MentalState = "neutral"
)

// SleepStage is a polysomnographic stage label (AASM nomenclature).
type SleepStage string

// Sleep stage labels in model output order.
const (
	StageWake SleepStage = "wake"
	StageN1   SleepStage = "n1"
	StageN2   SleepStage = "n2"
	StageN3   SleepStage = "n3"
	StageREM  SleepStage = "rem"
)

// MotorClass is an imagined-movement class label.
type MotorClass string

// Motor imagery labels in model output order.
const (
	MotorLeftHand  MotorClass = "left_hand"
	MotorRightHand MotorClass = "right_hand"
	MotorFeet      MotorClass = "feet"
	MotorTongue    MotorClass = "tongue"
	MotorRest      MotorClass = "rest"
)

// RiskLevel buckets a continuous seizure risk score.
type RiskLevel string

// Seizure risk levels, ordered by severity.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskImminent RiskLevel = "imminent"
)

// MentalStateResult is the mental-state variant payload.
type MentalStateResult struct {
	State MentalState `json:"state"`
}

// SleepStageResult is the sleep-stage variant payload.
type SleepStageResult struct {
	Stage SleepStage `json:"stage"`
}

// MotorImageryResult is the motor-imagery variant payload.
type MotorImageryResult struct {
	Class MotorClass `json:"class"`
}

// SeizureRiskResult is the seizure-risk variant payload.
type SeizureRiskResult struct {
	Level RiskLevel `json:"level"`
	// Score is the continuous risk estimate the level was bucketed from.
	Score float64 `json:"score"`
	// WarningWindowMinutes is the configured early-warning horizon.
	WarningWindowMinutes float64 `json:"warning_window_minutes"`
}

// Result is a tagged union over the four domain result types. Exactly one
// variant pointer is non-nil, matching Domain. Results are terminal: once
// handed to a sink they are owned by the consumer.
type Result struct {
	ID        string    `json:"id"`
	Domain    Domain    `json:"domain"`
	Timestamp time.Time `json:"timestamp"`
	// WindowEnd is the stream timestamp (seconds) of the classified window.
	WindowEnd float64 `json:"window_end"`
	// LatencyMS is the end-to-end extract+classify latency in milliseconds.
	LatencyMS float64 `json:"latency_ms"`
	// Confidence of the winning label, in [0,1].
	Confidence float64 `json:"confidence"`
	Quality    Quality `json:"quality"`
	// ModelVersion identifies the model that produced the raw scores.
	ModelVersion string `json:"model_version,omitempty"`

	MentalState  *MentalStateResult  `json:"mental_state,omitempty"`
	SleepStage   *SleepStageResult   `json:"sleep_stage,omitempty"`
	MotorImagery *MotorImageryResult `json:"motor_imagery,omitempty"`
	SeizureRisk  *SeizureRiskResult  `json:"seizure_risk,omitempty"`
}

// NewResult creates a result shell for a domain with a fresh ID and timestamp.
// The caller fills the variant payload and metadata.
func NewResult(domain Domain) Result {
	return Result{
		ID:        uuid.NewString(),
		Domain:    domain,
		Timestamp: time.Now().UTC(),
		Quality:   QualityOK,
	}
}

// Validate enforces result invariants: confidence in [0,1], non-negative
// latency, and exactly one variant matching the domain tag.
func (r Result) Validate() error {
	if !r.Domain.Valid() {
		return fmt.Errorf("result has unknown domain %q", r.Domain)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %.4f outside [0,1]", r.Confidence)
	}
	if r.LatencyMS < 0 {
		return fmt.Errorf("negative latency %.4f ms", r.LatencyMS)
	}

	variants := 0
	var matches bool
	if r.MentalState != nil {
		variants++
		matches = r.Domain == DomainMentalState
	}
	if r.SleepStage != nil {
		variants++
		matches = r.Domain == DomainSleepStage
	}
	if r.MotorImagery != nil {
		variants++
		matches = r.Domain == DomainMotorImagery
	}
	if r.SeizureRisk != nil {
		variants++
		matches = r.Domain == DomainSeizureRisk
	}

	if variants != 1 {
		return fmt.Errorf("result carries %d variants, want exactly 1", variants)
	}
	if !matches {
		return fmt.Errorf("variant does not match domain tag %q", r.Domain)
	}
	return nil
}

// Alert is an explicit failure event escalated outside the normal result
// stream. Only the seizure-risk pipeline escalates model failures as alerts;
// other domains degrade instead.
type Alert struct {
	ID        string    `json:"id"`
	Domain    Domain    `json:"domain"`
	Timestamp time.Time `json:"timestamp"`
	// Reason is a short machine-usable cause (e.g. "model_timeout").
	Reason string `json:"reason"`
	// Message is the human-readable error text.
	Message string `json:"message"`
}

// NewAlert creates an alert for a domain failure.
func NewAlert(domain Domain, reason, message string) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Domain:    domain,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Message:   message,
	}
}
