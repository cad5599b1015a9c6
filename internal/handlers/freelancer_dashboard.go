package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nandaputra/bidlance_be/internal/models"
)

type FreelancerDashboardHandler struct {
	DB *gorm.DB
}

func NewFreelancerDashboardHandler(db *gorm.DB) *FreelancerDashboardHandler {
	return &FreelancerDashboardHandler{DB: db}
}

// GetDashboardStats returns the summary numbers for the freelancer home
// screen: pending bids, running and finished assignments, average rating.
func (h *FreelancerDashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var pendingBids int64
	if err := h.DB.Model(&models.Bid{}).
		Where("freelancer_id = ? AND status = ?", uid, models.BidStatusPending).
		Count(&pendingBids).Error; err != nil {
		log.Printf("[DashboardStats] Error counting pending bids for user %v: %v", uid, err)
	}

	var activeProjects int64
	h.DB.Model(&models.Project{}).
		Where("assigned_freelancer_id = ? AND status = ?", uid, models.ProjectStatusInProgress).
		Count(&activeProjects)

	var completedProjects int64
	h.DB.Model(&models.Project{}).
		Where("assigned_freelancer_id = ? AND status = ?", uid, models.ProjectStatusCompleted).
		Count(&completedProjects)

	var avgRating float64
	h.DB.Model(&models.Project{}).
		Where("assigned_freelancer_id = ? AND freelancer_rating IS NOT NULL", uid).
		Select("COALESCE(AVG(freelancer_rating), 0)").
		Scan(&avgRating)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"pending_bids":       pendingBids,
			"active_projects":    activeProjects,
			"completed_projects": completedProjects,
			"avg_rating":         avgRating,
		},
	})
}

// GetAssignments lists the projects assigned to this freelancer.
func (h *FreelancerDashboardHandler) GetAssignments(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	offset := (page - 1) * limit

	q := h.DB.Model(&models.Project{}).
		Preload("Client").
		Preload("Category").
		Where("assigned_freelancer_id = ?", uid)

	status := c.Query("status")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	q.Count(&total)

	var projects []models.Project
	if err := q.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		log.Println("Error listing assignments:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch assignments",
		})
	}

	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
		"meta": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}
