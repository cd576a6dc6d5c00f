package project

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound      = errors.New("project not found")
	ErrInvalidStatus = errors.New("invalid project status")
	ErrDateOrder     = errors.New("finish_date must not be before start_date")
)

type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"worker"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	StartDate   *Date     `json:"start_date"`
	FinishDate  *Date     `json:"finish_date"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest carries the client-settable fields. The owner is never part of it.
type CreateRequest struct {
	Name        string   `json:"name" binding:"required,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=5000"`
	StartDate   *Date    `json:"start_date"`
	FinishDate  *Date    `json:"finish_date"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	Status      Status   `json:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// UpdateRequest is a partial update: nil fields are left untouched.
type UpdateRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=5000"`
	StartDate   *Date    `json:"start_date"`
	FinishDate  *Date    `json:"finish_date"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	Status      *Status  `json:"status"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// a factory to build a Project owned by ownerID from the incoming DTO
func NewFromCreateRequest(ownerID string, req CreateRequest) Project {
	now := time.Now().UTC()

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	return Project{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		StartDate:   req.StartDate,
		FinishDate:  req.FinishDate,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply copies the set fields of req onto p. OwnerID and CreatedAt are never touched.
func (p *Project) Apply(req UpdateRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.FinishDate != nil {
		p.FinishDate = req.FinishDate
	}
	if req.Latitude != nil {
		p.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		p.Longitude = req.Longitude
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
}

// Validate checks the rules that span fields and cannot be expressed as binding tags.
func (p Project) Validate() error {
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}

	if p.StartDate != nil && p.FinishDate != nil && p.FinishDate.Before(p.StartDate.Time) {
		return ErrDateOrder
	}

	return nil
}
