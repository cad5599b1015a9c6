package assignment

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandaputra/bidlance_be/internal/models"
)

// Event is emitted after a successful state transition. Delivery is
// best-effort: a failed publish is logged and never rolls the
// transition back.
type Event struct {
	Type         string    `json:"type"`
	ProjectID    uuid.UUID `json:"project_id"`
	FreelancerID uuid.UUID `json:"freelancer_id"`
}

const (
	EventBidAccepted      = "BID_ACCEPTED"
	EventProjectCompleted = "PROJECT_COMPLETED"
)

type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Actor is the verified identity invoking an operation. It is produced
// once by the auth middleware and passed by value; the service never
// re-derives identity.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// BidSelector identifies the winning bid for Assign, either directly by
// bid id or by the bidding freelancer.
type BidSelector struct {
	BidID        *uuid.UUID
	FreelancerID *uuid.UUID
}

// Service owns every write to project status, assigned_freelancer_id
// and bid status. All other code reads those fields only.
type Service struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{DB: db, Notifier: notifier}
}

// SubmitBid creates a pending bid on an open project. A freelancer may
// bid at most once per project.
func (s *Service) SubmitBid(ctx context.Context, projectID, freelancerID uuid.UUID, amount int64, proposal string) (*models.Bid, error) {
	if amount <= 0 {
		return nil, badRequest("amount must be positive")
	}

	var bid models.Bid

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("project not found")
			}
			return err
		}

		if project.Status != models.ProjectStatusOpen {
			return invalidState("project is not open for bidding")
		}

		// Touch the project row under the open precondition before
		// inserting. This takes its row lock for the rest of the
		// transaction, so a racing Assign either waits for this bid to
		// commit (and rejects it with the others) or has already
		// advanced the status and leaves zero affected rows here.
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", projectID, models.ProjectStatusOpen).
			Update("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalidState("project is not open for bidding")
		}

		var existing models.Bid
		err := tx.Where("project_id = ? AND freelancer_id = ?", projectID, freelancerID).
			First(&existing).Error
		if err == nil {
			return conflict("you already submitted a bid for this project")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		bid = models.Bid{
			ProjectID:    projectID,
			FreelancerID: freelancerID,
			Amount:       amount,
			Proposal:     proposal,
			Status:       models.BidStatusPending,
		}

		// The unique index on (project_id, freelancer_id) backstops the
		// check above against a duplicate racing in.
		return tx.Create(&bid).Error
	})
	if err != nil {
		return nil, err
	}

	return &bid, nil
}

// Assign picks the winning bid and advances the project to in_progress.
// The whole effect (project update, winner accepted, the rest rejected)
// commits as one transaction; a concurrent Assign on the same project
// loses the conditional status update and gets invalid_state.
func (s *Service) Assign(ctx context.Context, projectID uuid.UUID, actor Actor, sel BidSelector) (*models.Project, error) {
	var winner models.Bid

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("project not found")
			}
			return err
		}

		if !actor.IsAdmin && project.ClientID != actor.ID {
			return forbidden("only the project owner or an admin can assign it")
		}

		if project.Status != models.ProjectStatusOpen {
			return invalidState("project is not open")
		}

		bid, err := s.resolveBid(tx, projectID, sel)
		if err != nil {
			return err
		}
		winner = *bid

		// Conditional update on (id, status) serializes racing assigns:
		// the loser affects zero rows and fails the open precondition.
		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", projectID, models.ProjectStatusOpen).
			Updates(map[string]interface{}{
				"status":                 models.ProjectStatusInProgress,
				"assigned_freelancer_id": winner.FreelancerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalidState("project is not open")
		}

		if err := tx.Model(&models.Bid{}).
			Where("id = ?", winner.ID).
			Update("status", models.BidStatusAccepted).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Bid{}).
			Where("project_id = ? AND id <> ?", projectID, winner.ID).
			Update("status", models.BidStatusRejected).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{Type: EventBidAccepted, ProjectID: projectID, FreelancerID: winner.FreelancerID})

	return s.reloadProject(ctx, projectID)
}

func (s *Service) resolveBid(tx *gorm.DB, projectID uuid.UUID, sel BidSelector) (*models.Bid, error) {
	switch {
	case sel.BidID != nil:
		var bid models.Bid
		if err := tx.First(&bid, "id = ?", *sel.BidID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("bid not found")
			}
			return nil, err
		}
		if bid.ProjectID != projectID {
			return nil, badRequest("bid does not belong to this project")
		}
		return &bid, nil

	case sel.FreelancerID != nil:
		var bid models.Bid
		err := tx.Where("project_id = ? AND freelancer_id = ?", projectID, *sel.FreelancerID).
			First(&bid).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, badRequest("that freelancer has no bid on this project")
			}
			return nil, err
		}
		return &bid, nil
	}

	return nil, badRequest("either bid_id or freelancer_id is required")
}

// Complete closes an in-progress project, optionally recording a 1-5
// freelancer rating.
func (s *Service) Complete(ctx context.Context, projectID uuid.UUID, actor Actor, rating *int) (*models.Project, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, badRequest("rating must be between 1 and 5")
	}

	var freelancerID uuid.UUID

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("project not found")
			}
			return err
		}

		if !actor.IsAdmin && project.ClientID != actor.ID {
			return forbidden("only the project owner or an admin can complete it")
		}

		if project.Status != models.ProjectStatusInProgress {
			return invalidState("only in-progress projects can be completed")
		}
		freelancerID = *project.AssignedFreelancerID

		updates := map[string]interface{}{"status": models.ProjectStatusCompleted}
		if rating != nil {
			updates["freelancer_rating"] = *rating
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ?", projectID, models.ProjectStatusInProgress).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalidState("only in-progress projects can be completed")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{Type: EventProjectCompleted, ProjectID: projectID, FreelancerID: freelancerID})

	return s.reloadProject(ctx, projectID)
}

// Rate records a deferred rating on a completed project that has none
// yet. A second rating is rejected.
func (s *Service) Rate(ctx context.Context, projectID uuid.UUID, actor Actor, rating int) (*models.Project, error) {
	if rating < 1 || rating > 5 {
		return nil, badRequest("rating must be between 1 and 5")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("project not found")
			}
			return err
		}

		if !actor.IsAdmin && project.ClientID != actor.ID {
			return forbidden("only the project owner or an admin can rate it")
		}

		if project.Status != models.ProjectStatusCompleted {
			return invalidState("only completed projects can be rated")
		}

		if project.FreelancerRating != nil {
			return invalidState("project has already been rated")
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND status = ? AND freelancer_rating IS NULL", projectID, models.ProjectStatusCompleted).
			Update("freelancer_rating", rating)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalidState("project has already been rated")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reloadProject(ctx, projectID)
}

// ListBidsForProject returns every bid on a project, freelancer
// identity included, for the owner or an admin.
func (s *Service) ListBidsForProject(ctx context.Context, projectID uuid.UUID, actor Actor) ([]models.Bid, error) {
	var project models.Project
	if err := s.DB.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("project not found")
		}
		return nil, err
	}

	if !actor.IsAdmin && project.ClientID != actor.ID {
		return nil, forbidden("only the project owner or an admin can view bids")
	}

	var bids []models.Bid
	if err := s.DB.WithContext(ctx).
		Preload("Freelancer").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&bids).Error; err != nil {
		return nil, err
	}

	return bids, nil
}

// ListRateableProjects returns the completed, unrated projects between
// a client and a freelancer. Drives the rating prompt.
func (s *Service) ListRateableProjects(ctx context.Context, clientID, freelancerID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := s.DB.WithContext(ctx).
		Where("client_id = ? AND assigned_freelancer_id = ? AND status = ? AND freelancer_rating IS NULL",
			clientID, freelancerID, models.ProjectStatusCompleted).
		Order("updated_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Service) notify(ctx context.Context, ev Event) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, ev); err != nil {
		log.Printf("[Assignment] Failed to publish %s for project %s: %v", ev.Type, ev.ProjectID, err)
	}
}

func (s *Service) reloadProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.DB.WithContext(ctx).
		Preload("Bids").
		Preload("Bids.Freelancer").
		Preload("AssignedFreelancer").
		First(&project, "id = ?", projectID).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}
