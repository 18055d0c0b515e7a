package models

import "time"

// Tool is one entry of the tools catalog. Optional columns are nil when unset.
type Tool struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Version     *string   `json:"version"`
	Route       string    `json:"route"`
	Icon        *string   `json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToolInput is the writable part of a Tool.
type ToolInput struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Version     *string `json:"version" validate:"omitempty,max=64"`
	Route       string  `json:"route" validate:"required,max=255"`
	Icon        *string `json:"icon" validate:"omitempty,max=255"`
}
