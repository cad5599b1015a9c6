package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandaputra/bidlance_be/internal/models"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to fetch categories",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
	})
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(s, " ", "-")
}

// Create adds a category. Admin only.
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Name is required",
		})
	}

	cat := models.Category{
		Name:        name,
		Slug:        slugify(name),
		Description: req.Description,
	}

	if err := h.DB.Create(&cat).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create category (duplicate name?)",
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    cat,
	})
}

// Update renames a category. Admin only.
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	catID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid category ID",
		})
	}

	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	var cat models.Category
	if err := h.DB.First(&cat, "id = ?", catID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Category not found",
		})
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		cat.Name = name
		cat.Slug = slugify(name)
	}
	cat.Description = req.Description

	if err := h.DB.Save(&cat).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update category",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    cat,
	})
}

// Delete removes a category that no project references. Admin only.
func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	catID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid category ID",
		})
	}

	var inUse int64
	h.DB.Model(&models.Project{}).Where("category_id = ?", catID).Count(&inUse)
	if inUse > 0 {
		return c.Status(409).JSON(fiber.Map{
			"success": false,
			"message": "Category is still used by projects",
		})
	}

	res := h.DB.Delete(&models.Category{}, "id = ?", catID)
	if res.Error != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"message": "Failed to delete category",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"message": "Category not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Category deleted",
	})
}
