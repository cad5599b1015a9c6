package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/nandaputra/bidlance_be/internal/config"
	"github.com/nandaputra/bidlance_be/internal/db"
	"github.com/nandaputra/bidlance_be/internal/handlers"
	"github.com/nandaputra/bidlance_be/internal/middleware"
	"github.com/nandaputra/bidlance_be/internal/models"
	"github.com/nandaputra/bidlance_be/internal/realtime"
	"github.com/nandaputra/bidlance_be/internal/services/assignment"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Project{},
		&models.Bid{},
	); err != nil {
		log.Fatal(err)
	}

	broadcaster := realtime.NewBroadcaster(hub, rdb)
	assignSvc := assignment.NewService(gdb, broadcaster)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}

	projectH := handlers.NewProjectHandler(gdb, assignSvc)
	bidH := handlers.NewBidHandler(gdb, assignSvc)
	categoryH := handlers.NewCategoryHandler(gdb)
	adminH := handlers.NewAdminHandler(gdb)
	dashH := handlers.NewFreelancerDashboardHandler(gdb)
	wsH := handlers.NewNotificationSocketHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/categories", categoryH.GetCategories)
	api.Get("/projects", projectH.ListPublic)
	api.Get("/projects/:id", projectH.GetDetail)

	// protected (JWT cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", authH.Me)

	// client
	protected.Post("/client/projects",
		middleware.RequireRoles("client"),
		projectH.Create,
	)
	protected.Get("/client/projects",
		middleware.RequireRoles("client"),
		projectH.ListMine,
	)
	protected.Get("/freelancers/:id/rateable-projects",
		middleware.RequireRoles("client"),
		bidH.RateableProjects,
	)

	// freelancer
	protected.Post("/projects/:id/bids",
		middleware.RequireRoles("freelancer"),
		bidH.Submit,
	)
	protected.Get("/freelancer/bids",
		middleware.RequireRoles("freelancer"),
		bidH.ListMine,
	)
	protected.Get("/freelancer/dashboard/stats",
		middleware.RequireRoles("freelancer"),
		dashH.GetDashboardStats,
	)
	protected.Get("/freelancer/assignments",
		middleware.RequireRoles("freelancer"),
		dashH.GetAssignments,
	)

	// owner or admin (checked inside the workflow)
	protected.Get("/projects/:id/bids", bidH.List)
	protected.Post("/projects/:id/assign", bidH.Assign)
	protected.Put("/projects/:id", projectH.Update)
	protected.Post("/projects/:id/rating", projectH.Rate)

	// admin
	protected.Get("/admin/users",
		middleware.RequireRoles("admin"),
		adminH.ListUsers,
	)
	protected.Patch("/admin/users/:id/active",
		middleware.RequireRoles("admin"),
		adminH.SetUserActive,
	)
	protected.Post("/admin/categories",
		middleware.RequireRoles("admin"),
		categoryH.Create,
	)
	protected.Put("/admin/categories/:id",
		middleware.RequireRoles("admin"),
		categoryH.Update,
	)
	protected.Delete("/admin/categories/:id",
		middleware.RequireRoles("admin"),
		categoryH.Delete,
	)

	// WebSocket endpoint (auth via token query param)
	app.Get("/ws/notifications", websocket.New(wsH.Serve))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
