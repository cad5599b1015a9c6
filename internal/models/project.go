package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusOpen       ProjectStatus = "open"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// Project is a unit of work posted by a client. Status only ever moves
// forward: open -> in_progress (assign) -> completed (complete).
// AssignedFreelancerID is set iff status is in_progress or completed;
// FreelancerRating is set only on a completed project.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Budget      int64     `gorm:"not null" json:"budget"`
	Deadline    time.Time `json:"deadline"`

	Status ProjectStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`

	CategoryID uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	ClientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`

	AssignedFreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_freelancer_id,omitempty"`
	FreelancerRating     *int       `json:"freelancer_rating,omitempty"` // 1-5

	// Skill names as a JSON array, e.g. ["golang", "postgres"].
	Skills datatypes.JSON `json:"skills"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category           *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Client             *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	AssignedFreelancer *User     `gorm:"foreignKey:AssignedFreelancerID" json:"assigned_freelancer,omitempty"`
	Bids               []Bid     `gorm:"foreignKey:ProjectID" json:"bids,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
