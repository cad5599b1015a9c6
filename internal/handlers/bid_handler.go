package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandaputra/bidlance_be/internal/models"
	"github.com/nandaputra/bidlance_be/internal/services/assignment"
)

type BidHandler struct {
	DB         *gorm.DB
	Assignment *assignment.Service
}

func NewBidHandler(db *gorm.DB, svc *assignment.Service) *BidHandler {
	return &BidHandler{DB: db, Assignment: svc}
}

type SubmitBidRequest struct {
	Amount   int64  `json:"amount"`
	Proposal string `json:"proposal"`
}

type BidResponse struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	FreelancerID string    `json:"freelancer_id"`
	Amount       int64     `json:"amount"`
	Proposal     string    `json:"proposal"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`

	Freelancer *UserMini `json:"freelancer,omitempty"`
}

func toBidResponse(b *models.Bid) BidResponse {
	resp := BidResponse{
		ID:           b.ID.String(),
		ProjectID:    b.ProjectID.String(),
		FreelancerID: b.FreelancerID.String(),
		Amount:       b.Amount,
		Proposal:     b.Proposal,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
	}
	if b.Freelancer != nil {
		resp.Freelancer = &UserMini{ID: b.Freelancer.ID.String(), Name: b.Freelancer.Name}
	}
	return resp
}

// Submit places a pending bid on an open project.
func (h *BidHandler) Submit(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid project ID",
		})
	}

	var req SubmitBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	bid, err := h.Assignment.SubmitBid(c.Context(), projectID, uid, req.Amount, req.Proposal)
	if err != nil {
		return workflowError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    toBidResponse(bid),
	})
}

// List returns every bid on a project for the owner or an admin.
func (h *BidHandler) List(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid project ID",
		})
	}

	bids, err := h.Assignment.ListBidsForProject(c.Context(), projectID, actor)
	if err != nil {
		return workflowError(c, err)
	}

	out := make([]BidResponse, 0, len(bids))
	for i := range bids {
		out = append(out, toBidResponse(&bids[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

type AssignRequest struct {
	BidID        string `json:"bid_id"`
	FreelancerID string `json:"freelancer_id"`
}

// Assign accepts one bid and moves the project to in_progress.
func (h *BidHandler) Assign(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid project ID",
		})
	}

	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var sel assignment.BidSelector
	if req.BidID != "" {
		id, err := uuid.Parse(req.BidID)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid bid ID",
			})
		}
		sel.BidID = &id
	} else if req.FreelancerID != "" {
		id, err := uuid.Parse(req.FreelancerID)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid freelancer ID",
			})
		}
		sel.FreelancerID = &id
	}

	project, err := h.Assignment.Assign(c.Context(), projectID, actor, sel)
	if err != nil {
		return workflowError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toProjectResponse(project),
	})
}

// ListMine lists the authenticated freelancer's own bids.
func (h *BidHandler) ListMine(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	status := c.Query("status")

	q := h.DB.Model(&models.Bid{}).
		Preload("Project").
		Preload("Project.Category").
		Where("freelancer_id = ?", uid)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var bids []models.Bid
	if err := q.Order("created_at DESC").Find(&bids).Error; err != nil {
		log.Println("Error listing own bids:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch bids",
		})
	}

	out := make([]BidResponse, 0, len(bids))
	for i := range bids {
		out = append(out, toBidResponse(&bids[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// RateableProjects lists completed, unrated projects between the
// authenticated client and the given freelancer.
func (h *BidHandler) RateableProjects(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	freelancerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid freelancer ID",
		})
	}

	projects, err := h.Assignment.ListRateableProjects(c.Context(), uid, freelancerID)
	if err != nil {
		return workflowError(c, err)
	}

	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}
