package models

import (
	"time"
)

// AlertRecord is an archived simulation alert
type AlertRecord struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	MachineID   string    `gorm:"type:varchar(64);index;not null" json:"machine_id"`
	MachineName string    `gorm:"type:varchar(255)" json:"machine_name"`
	Severity    string    `gorm:"type:varchar(20);not null" json:"severity"` // "warning", "critical"
	Message     string    `json:"message"`
	SimTime     int       `json:"sim_time"` // simulation seconds at the tick that raised it
	Timestamp   time.Time `gorm:"index;not null" json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides the table name for AlertRecord
func (AlertRecord) TableName() string {
	return "alert_records"
}

// PredictionRecord is an archived prediction attempt, successful or not
type PredictionRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Seq             uint64    `json:"seq"`
	MachineID       string    `gorm:"type:varchar(64);index" json:"machine_id"`
	Temperature     float64   `json:"temperature"`
	Load            float64   `json:"load"`
	Speed           float64   `json:"speed"`
	ReadingTime     time.Time `json:"reading_time"`
	FailureType     string    `json:"failure_type,omitempty"`
	EstimatedTime   string    `json:"estimated_time,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides the table name for PredictionRecord
func (PredictionRecord) TableName() string {
	return "prediction_records"
}

// Succeeded reports whether the attempt produced a prediction
func (p PredictionRecord) Succeeded() bool {
	return p.Error == ""
}
