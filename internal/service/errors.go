package service

import "errors"

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrEmptyTitle      = errors.New("title is required")
	ErrDependencyCycle = errors.New("dependency would create a cycle")
)
