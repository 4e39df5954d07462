package models

import "time"

type RecurrenceFrequency string

const (
	FrequencyDaily   RecurrenceFrequency = "daily"
	FrequencyWeekly  RecurrenceFrequency = "weekly"
	FrequencyMonthly RecurrenceFrequency = "monthly"
	FrequencyYearly  RecurrenceFrequency = "yearly"
)

type RecurrenceType string

const (
	// RecurOnSchedule advances from the previous due date.
	RecurOnSchedule RecurrenceType = "on_schedule"
	// RecurOnCompletion advances from the moment the task was completed.
	RecurOnCompletion RecurrenceType = "on_completion"
)

type EndConditionType string

const (
	EndOnDate  EndConditionType = "date"
	EndOnCount EndConditionType = "count"
)

// EndCondition stops a recurrence. Only the date form is evaluated.
type EndCondition struct {
	Type  EndConditionType `json:"type"`
	Date  *time.Time       `json:"date,omitempty"`
	Count int              `json:"count,omitempty"`
}

// RecurrenceConfig describes how a task repeats. It is stored as a JSON column.
type RecurrenceConfig struct {
	Frequency    RecurrenceFrequency `json:"frequency"`
	Interval     int                 `json:"interval,omitempty"`
	DaysOfWeek   []time.Weekday      `json:"days_of_week,omitempty"`
	Type         RecurrenceType      `json:"type,omitempty"`
	EndCondition *EndCondition       `json:"end_condition,omitempty"`
}
