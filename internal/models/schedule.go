package models

import "github.com/google/uuid"

// CronSchedule is a cron-expression-driven rule that periodically
// synthesizes new timers.
type CronSchedule struct {
	ID                  uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	TeamID              string                 `json:"teamId,omitempty" gorm:"type:varchar(255);index:idx_schedules_team"`
	CronExpression      string                 `json:"cronExpression" gorm:"type:varchar(100);not null"`
	TemplateID          string                 `json:"templateId,omitempty" gorm:"type:varchar(255)"`
	TimerConfigOverride map[string]interface{} `json:"timerConfigOverride,omitempty" gorm:"type:jsonb;serializer:json"`
	Paused              bool                   `json:"paused" gorm:"default:false;index:idx_schedules_paused"`
	NextRunAtMs         int64                  `json:"nextRunAtMs" gorm:"index:idx_schedules_next_run"`
	LastRunAtMs         *int64                 `json:"lastRunAtMs,omitempty"`
	LastError           string                 `json:"lastError,omitempty" gorm:"type:text"`
	CreatedBy           string                 `json:"createdBy,omitempty" gorm:"type:varchar(255)"`
	UpdatedBy           string                 `json:"updatedBy,omitempty" gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM.
func (CronSchedule) TableName() string { return "cron_schedules" }

// Template is a reusable timer config blueprint referenced by
// CronSchedule.TemplateID. Template CRUD itself is an out-of-scope
// collaborator; the engine only reads templates to
// materialize schedules.
type Template struct {
	ID     uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	TeamID string                 `json:"teamId,omitempty" gorm:"type:varchar(255)"`
	Name   string                 `json:"name,omitempty" gorm:"type:varchar(255)"`
	Config map[string]interface{} `json:"config" gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM.
func (Template) TableName() string { return "timer_templates" }
