package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandaputra/bidlance_be/internal/models"
	"github.com/nandaputra/bidlance_be/internal/services/assignment"
)

type ProjectHandler struct {
	DB         *gorm.DB
	Assignment *assignment.Service
}

func NewProjectHandler(db *gorm.DB, svc *assignment.Service) *ProjectHandler {
	return &ProjectHandler{DB: db, Assignment: svc}
}

type CreateProjectRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Budget      int64    `json:"budget"`
	Deadline    string   `json:"deadline"` // ISO format: 2026-09-30
	CategoryID  string   `json:"category_id"`
	Skills      []string `json:"skills"`
}

type UserMini struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Budget      int64  `json:"budget"`
	Deadline    string `json:"deadline"`
	Status      string `json:"status"`

	CategoryID           string  `json:"category_id,omitempty"`
	ClientID             string  `json:"client_id"`
	AssignedFreelancerID *string `json:"assigned_freelancer_id,omitempty"`
	FreelancerRating     *int    `json:"freelancer_rating,omitempty"`

	Skills []string `json:"skills,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Category           *models.Category `json:"category,omitempty"`
	Client             *UserMini        `json:"client,omitempty"`
	AssignedFreelancer *UserMini        `json:"assigned_freelancer,omitempty"`
	Bids               []BidResponse    `json:"bids,omitempty"`
}

func toProjectResponse(p *models.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Budget:      p.Budget,
		Deadline:    p.Deadline.Format("2006-01-02"),
		Status:      string(p.Status),
		ClientID:    p.ClientID.String(),
		CreatedAt:   p.CreatedAt,
		Category:    p.Category,
	}

	if p.CategoryID != uuid.Nil {
		resp.CategoryID = p.CategoryID.String()
	}

	if p.AssignedFreelancerID != nil {
		s := p.AssignedFreelancerID.String()
		resp.AssignedFreelancerID = &s
	}
	resp.FreelancerRating = p.FreelancerRating

	if len(p.Skills) > 0 {
		_ = json.Unmarshal(p.Skills, &resp.Skills)
	}

	if p.Client != nil {
		resp.Client = &UserMini{ID: p.Client.ID.String(), Name: p.Client.Name}
	}
	if p.AssignedFreelancer != nil {
		resp.AssignedFreelancer = &UserMini{ID: p.AssignedFreelancer.ID.String(), Name: p.AssignedFreelancer.Name}
	}

	for i := range p.Bids {
		resp.Bids = append(resp.Bids, toBidResponse(&p.Bids[i]))
	}

	return resp
}

// Create posts a new project in open status.
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Title is required",
		})
	}

	if req.Budget < 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Budget must not be negative",
		})
	}

	deadline, err := time.Parse("2006-01-02", req.Deadline)
	if err != nil {
		deadline = time.Now().AddDate(0, 1, 0) // default one month out
	}

	var categoryID uuid.UUID
	if req.CategoryID != "" {
		categoryID, err = uuid.Parse(req.CategoryID)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Invalid category ID",
			})
		}
		var cat models.Category
		if err := h.DB.First(&cat, "id = ?", categoryID).Error; err != nil {
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"message": "Category not found",
			})
		}
	}

	skillsJSON, _ := json.Marshal(req.Skills)

	project := models.Project{
		Title:       title,
		Description: req.Description,
		Budget:      req.Budget,
		Deadline:    deadline,
		Status:      models.ProjectStatusOpen,
		CategoryID:  categoryID,
		ClientID:    uid,
		Skills:      skillsJSON,
	}

	if err := h.DB.Create(&project).Error; err != nil {
		log.Println("Error creating project:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create project",
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    toProjectResponse(&project),
	})
}

// ListPublic lists open projects for browsing freelancers.
func (h *ProjectHandler) ListPublic(c *fiber.Ctx) error {
	qSearch := c.Query("q")
	category := c.Query("cat")
	minBudget := c.QueryInt("min", 0)
	maxBudget := c.QueryInt("max", 0)
	sortParam := c.Query("sort") // latest | budget_low | budget_high

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	q := h.DB.Model(&models.Project{}).
		Preload("Category").
		Preload("Client").
		Where("status = ?", models.ProjectStatusOpen)

	if qSearch != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(qSearch)+"%")
	}
	if category != "" {
		q = q.Where("category_id = ?", category)
	}
	if minBudget > 0 {
		q = q.Where("budget >= ?", minBudget)
	}
	if maxBudget > 0 {
		q = q.Where("budget <= ?", maxBudget)
	}

	switch sortParam {
	case "budget_low":
		q = q.Order("budget ASC")
	case "budget_high":
		q = q.Order("budget DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var total int64
	q.Count(&total)

	var projects []models.Project
	if err := q.Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		log.Println("Error listing projects:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch projects",
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

// GetDetail returns one project without its bids; the bid list has its
// own owner-only endpoint.
func (h *ProjectHandler) GetDetail(c *fiber.Ctx) error {
	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid project ID",
		})
	}

	var project models.Project
	if err := h.DB.
		Preload("Category").
		Preload("Client").
		Preload("AssignedFreelancer").
		First(&project, "id = ?", projectID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Project not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toProjectResponse(&project),
	})
}

// ListMine lists the authenticated client's own projects.
func (h *ProjectHandler) ListMine(c *fiber.Ctx) error {
	uid, err := getUserUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	status := c.Query("status")

	q := h.DB.Model(&models.Project{}).
		Preload("Category").
		Preload("AssignedFreelancer").
		Where("client_id = ?", uid)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var projects []models.Project
	if err := q.Order("created_at DESC").Find(&projects).Error; err != nil {
		log.Println("Error listing own projects:", err)
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch projects",
		})
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

type UpdateProjectRequest struct {
	Status           string `json:"status"`
	FreelancerRating *int   `json:"freelancer_rating"`
}

// Update is the completion path: PUT with status COMPLETED closes an
// in-progress project, optionally carrying a rating.
func (h *ProjectHandler) Update(c *fiber.Ctx) error {
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

	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if !strings.EqualFold(req.Status, string(models.ProjectStatusCompleted)) {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Only the COMPLETED status can be requested here",
		})
	}

	project, err := h.Assignment.Complete(c.Context(), projectID, actor, req.FreelancerRating)
	if err != nil {
		return workflowError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toProjectResponse(project),
	})
}

type RateProjectRequest struct {
	Rating int `json:"rating"`
}

// Rate records a deferred rating on a completed project.
func (h *ProjectHandler) Rate(c *fiber.Ctx) error {
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

	var req RateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	project, err := h.Assignment.Rate(c.Context(), projectID, actor, req.Rating)
	if err != nil {
		return workflowError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toProjectResponse(project),
	})
}
