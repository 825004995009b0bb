// Package model holds the wire types shared between the gateway handlers and
// the ingestion service: the HealthKit batch payload and the app-interaction
// event taxonomy.
package model

import "time"

// QuantitySample is a single HealthKit quantity sample.
type QuantitySample struct {
	Type         string    `json:"type"`
	Value        float64   `json:"value"`
	Unit         string    `json:"unit"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	SourceName   string    `json:"sourceName"`
	SourceBundle string    `json:"sourceBundle"`
}

// SleepSample is a single HealthKit sleep-stage sample.
type SleepSample struct {
	Stage      string    `json:"stage"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	SourceName string    `json:"sourceName"`
}

// WorkoutSample is a single HealthKit workout.
type WorkoutSample struct {
	ActivityType      string    `json:"activityType"`
	Duration          float64   `json:"duration"`
	TotalEnergyBurned *float64  `json:"totalEnergyBurned,omitempty"`
	TotalDistance     *float64  `json:"totalDistance,omitempty"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	SourceName        string    `json:"sourceName"`
}

// HealthDataBatch is the client-assembled bundle of sensor samples submitted
// in one POST /watch_events call, identified by (user, fetchedAt).
type HealthDataBatch struct {
	HeartRate               []QuantitySample `json:"heartRate"`
	HRV                     []QuantitySample `json:"hrv"`
	RestingHeartRate        []QuantitySample `json:"restingHeartRate"`
	WalkingHeartRateAverage []QuantitySample `json:"walkingHeartRateAverage"`
	RespiratoryRate         []QuantitySample `json:"respiratoryRate"`
	OxygenSaturation        []QuantitySample `json:"oxygenSaturation"`
	VO2Max                  []QuantitySample `json:"vo2Max"`
	Steps                   []QuantitySample `json:"steps"`
	ActiveEnergy            []QuantitySample `json:"activeEnergy"`
	ExerciseTime            []QuantitySample `json:"exerciseTime"`
	StandTime               []QuantitySample `json:"standTime"`
	TimeInDaylight          []QuantitySample `json:"timeInDaylight"`
	BodyMass                []QuantitySample `json:"bodyMass"`
	BodyFatPercentage       []QuantitySample `json:"bodyFatPercentage"`
	LeanBodyMass            []QuantitySample `json:"leanBodyMass"`
	Sleep                   []SleepSample    `json:"sleep"`
	Workouts                []WorkoutSample  `json:"workouts"`

	FetchedAt time.Time `json:"fetchedAt"`

	// The iOS client has shipped both spellings over time.
	TraceID      string `json:"trace_id"`
	TraceIDAlias string `json:"traceId"`
}

// Trace returns the caller-supplied trace ID, honouring both the snake_case
// field and its camelCase alias. Empty means the batch arrived untraced.
func (b *HealthDataBatch) Trace() string {
	if b.TraceID != "" {
		return b.TraceID
	}
	return b.TraceIDAlias
}

// TotalSamples counts every sample across all series in the batch.
func (b *HealthDataBatch) TotalSamples() int {
	return len(b.HeartRate) +
		len(b.HRV) +
		len(b.RestingHeartRate) +
		len(b.WalkingHeartRateAverage) +
		len(b.RespiratoryRate) +
		len(b.OxygenSaturation) +
		len(b.VO2Max) +
		len(b.Steps) +
		len(b.ActiveEnergy) +
		len(b.ExerciseTime) +
		len(b.StandTime) +
		len(b.TimeInDaylight) +
		len(b.BodyMass) +
		len(b.BodyFatPercentage) +
		len(b.LeanBodyMass) +
		len(b.Sleep) +
		len(b.Workouts)
}
