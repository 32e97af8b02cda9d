package model

import "time"

// TaskDependency is a directed edge: SuccessorID cannot complete until PredecessorID is completed.
type TaskDependency struct {
	PredecessorID uint `gorm:"primaryKey;autoIncrement:false"`
	SuccessorID   uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt     time.Time
}

func (TaskDependency) TableName() string {
	return "task_dependencies"
}
