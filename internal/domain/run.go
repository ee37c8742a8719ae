package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RunStatus represents the status of a collect run.
// Values include RunStatusRunning, RunStatusCompleted, and RunStatusFailed.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CollectRun records one adapter invocation and what happened to its records.
type CollectRun struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Source      string      `gorm:"type:text;not null;index" json:"source"`
	Status      RunStatus   `gorm:"type:text;default:running" json:"status"`
	Fetched     int         `gorm:"default:0" json:"fetched"`
	Passed      int         `gorm:"default:0" json:"passed"`
	Flagged     int         `gorm:"default:0" json:"flagged"`
	Blocked     int         `gorm:"default:0" json:"blocked"`
	Added       int         `gorm:"default:0" json:"added"`
	Skipped     int         `gorm:"default:0" json:"skipped"`
	CorpusTotal int         `gorm:"default:0" json:"corpus_total"`
	AddedIDs    StringArray `gorm:"type:text" json:"added_ids"`
	OutputFile  string      `gorm:"type:text" json:"output_file,omitempty"`
	ErrorLog    string      `gorm:"type:text" json:"error_log,omitempty"`
	StartedAt   time.Time   `gorm:"index" json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for CollectRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (CollectRun) TableName() string {
	return "collect_runs"
}

// StringArray stores a string slice as a JSON text column.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw column value, []byte or string.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		raw = []byte(str)
	}
	return json.Unmarshal(raw, a)
}
