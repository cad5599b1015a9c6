package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nandaputra/bidlance_be/internal/middleware"
	"github.com/nandaputra/bidlance_be/internal/models"
	"github.com/nandaputra/bidlance_be/internal/services/assignment"
	"github.com/nandaputra/bidlance_be/internal/utils"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Project{},
		&models.Bid{},
	))

	svc := assignment.NewService(gdb, nil)
	projectH := NewProjectHandler(gdb, svc)
	bidH := NewBidHandler(gdb, svc)

	app := fiber.New()
	api := app.Group("/api")
	api.Get("/projects", projectH.ListPublic)
	api.Get("/projects/:id", projectH.GetDetail)

	protected := api.Group("/",
		middleware.JWTFromCookie(testSecret),
		middleware.AttachJWTLocals(),
	)
	protected.Post("/client/projects", middleware.RequireRoles("client"), projectH.Create)
	protected.Get("/freelancers/:id/rateable-projects", middleware.RequireRoles("client"), bidH.RateableProjects)
	protected.Post("/projects/:id/bids", middleware.RequireRoles("freelancer"), bidH.Submit)
	protected.Get("/projects/:id/bids", bidH.List)
	protected.Post("/projects/:id/assign", bidH.Assign)
	protected.Put("/projects/:id", projectH.Update)
	protected.Post("/projects/:id/rating", projectH.Rate)

	return app, gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, role models.Role) *models.User {
	t.Helper()
	u := models.User{
		Name:     "user-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

func seedProject(t *testing.T, gdb *gorm.DB, clientID uuid.UUID) *models.Project {
	t.Helper()
	p := models.Project{
		Title:    "API integration",
		Budget:   800,
		Deadline: time.Now().AddDate(0, 1, 0),
		Status:   models.ProjectStatusOpen,
		ClientID: clientID,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return &p
}

func doJSON(t *testing.T, app *fiber.App, user *models.User, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		token, err := utils.SignJWT(testSecret, user.ID.String(), string(user.Role), 60)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func TestBidEndpoints(t *testing.T) {
	app, gdb := newTestApp(t)

	client := seedUser(t, gdb, models.RoleClient)
	freelancer := seedUser(t, gdb, models.RoleFreelancer)
	stranger := seedUser(t, gdb, models.RoleClient)
	project := seedProject(t, gdb, client.ID)

	bidURL := "/api/projects/" + project.ID.String() + "/bids"

	t.Run("requires auth", func(t *testing.T) {
		resp, _ := doJSON(t, app, nil, "POST", bidURL, SubmitBidRequest{Amount: 100})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("clients cannot bid", func(t *testing.T) {
		resp, _ := doJSON(t, app, client, "POST", bidURL, SubmitBidRequest{Amount: 100})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("freelancer submits a bid", func(t *testing.T) {
		resp, body := doJSON(t, app, freelancer, "POST", bidURL, SubmitBidRequest{Amount: 100, Proposal: "hello"})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "pending", data["status"])
	})

	t.Run("duplicate bid is a conflict", func(t *testing.T) {
		resp, body := doJSON(t, app, freelancer, "POST", bidURL, SubmitBidRequest{Amount: 90})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "conflict", body["error"])
	})

	t.Run("only owner or admin lists bids", func(t *testing.T) {
		resp, _ := doJSON(t, app, stranger, "GET", bidURL, nil)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		resp, body := doJSON(t, app, client, "GET", bidURL, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Len(t, body["data"].([]interface{}), 1)
	})
}

func TestAssignAndCompleteEndpoints(t *testing.T) {
	app, gdb := newTestApp(t)

	client := seedUser(t, gdb, models.RoleClient)
	freelancer := seedUser(t, gdb, models.RoleFreelancer)
	project := seedProject(t, gdb, client.ID)

	_, body := doJSON(t, app, freelancer, "POST", "/api/projects/"+project.ID.String()+"/bids",
		SubmitBidRequest{Amount: 250, Proposal: "pick me"})
	bidID := body["data"].(map[string]interface{})["id"].(string)

	assignURL := "/api/projects/" + project.ID.String() + "/assign"
	projectURL := "/api/projects/" + project.ID.String()

	t.Run("freelancer cannot assign", func(t *testing.T) {
		resp, _ := doJSON(t, app, freelancer, "POST", assignURL, AssignRequest{BidID: bidID})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner assigns by bid id", func(t *testing.T) {
		resp, body := doJSON(t, app, client, "POST", assignURL, AssignRequest{BidID: bidID})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		data := body["data"].(map[string]interface{})
		assert.Equal(t, "in_progress", data["status"])
		assert.Equal(t, freelancer.ID.String(), data["assigned_freelancer_id"])
	})

	t.Run("second assign conflicts", func(t *testing.T) {
		resp, body := doJSON(t, app, client, "POST", assignURL, AssignRequest{FreelancerID: freelancer.ID.String()})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "invalid_state", body["error"])
	})

	t.Run("rating out of range on completion", func(t *testing.T) {
		six := 6
		resp, _ := doJSON(t, app, client, "PUT", projectURL, UpdateProjectRequest{Status: "COMPLETED", FreelancerRating: &six})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("owner completes with rating", func(t *testing.T) {
		five := 5
		resp, body := doJSON(t, app, client, "PUT", projectURL, UpdateProjectRequest{Status: "COMPLETED", FreelancerRating: &five})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		data := body["data"].(map[string]interface{})
		assert.Equal(t, "completed", data["status"])
		assert.Equal(t, float64(5), data["freelancer_rating"])
	})

	t.Run("rated project is no longer rateable", func(t *testing.T) {
		resp, body := doJSON(t, app, client, "GET", "/api/freelancers/"+freelancer.ID.String()+"/rateable-projects", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, body["data"])
	})
}

func TestDeferredRatingEndpoint(t *testing.T) {
	app, gdb := newTestApp(t)

	client := seedUser(t, gdb, models.RoleClient)
	freelancer := seedUser(t, gdb, models.RoleFreelancer)
	project := seedProject(t, gdb, client.ID)

	doJSON(t, app, freelancer, "POST", "/api/projects/"+project.ID.String()+"/bids", SubmitBidRequest{Amount: 100})
	doJSON(t, app, client, "POST", "/api/projects/"+project.ID.String()+"/assign", AssignRequest{FreelancerID: freelancer.ID.String()})
	doJSON(t, app, client, "PUT", "/api/projects/"+project.ID.String(), UpdateProjectRequest{Status: "COMPLETED"})

	t.Run("project shows up as rateable", func(t *testing.T) {
		resp, body := doJSON(t, app, client, "GET", "/api/freelancers/"+freelancer.ID.String()+"/rateable-projects", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Len(t, body["data"].([]interface{}), 1)
	})

	t.Run("rating is stored once", func(t *testing.T) {
		resp, _ := doJSON(t, app, client, "POST", "/api/projects/"+project.ID.String()+"/rating", RateProjectRequest{Rating: 4})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, body := doJSON(t, app, client, "POST", "/api/projects/"+project.ID.String()+"/rating", RateProjectRequest{Rating: 2})
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, "invalid_state", body["error"])
	})
}

func TestPublicProjectEndpoints(t *testing.T) {
	app, gdb := newTestApp(t)

	client := seedUser(t, gdb, models.RoleClient)
	seedProject(t, gdb, client.ID)

	t.Run("lists open projects without auth", func(t *testing.T) {
		resp, body := doJSON(t, app, nil, "GET", "/api/projects", nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Len(t, body["data"].([]interface{}), 1)
	})

	t.Run("unknown project detail is 404", func(t *testing.T) {
		resp, _ := doJSON(t, app, nil, "GET", "/api/projects/"+uuid.NewString(), nil)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}
