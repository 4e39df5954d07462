package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/teamflow/internal/config"
	"github.com/yukikurage/teamflow/internal/constants"
	"github.com/yukikurage/teamflow/internal/database"
	"github.com/yukikurage/teamflow/internal/handlers"
	"github.com/yukikurage/teamflow/internal/middleware"
	"github.com/yukikurage/teamflow/internal/models"
	"github.com/yukikurage/teamflow/internal/repository"
	"github.com/yukikurage/teamflow/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())

	// Sessions live in Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // pool size
		"tcp",     // network type
		redisAddr, // address
		"",        // username
		"",        // password
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		log.Println("OPENAI_API_KEY not set, AI ranking and generation are disabled")
	}

	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)

	authService := services.NewAuthService(userRepo)
	orgService := services.NewOrganizationService(orgRepo)
	taskService := services.NewTaskService(taskRepo, orgRepo, aiService, loc)
	calendarService := services.NewCalendarService(taskRepo, orgRepo, loc)

	authHandler := handlers.NewAuthHandler(authService)
	orgHandler := handlers.NewOrganizationHandler(orgService)
	taskHandler := handlers.NewTaskHandler(taskService)
	calendarHandler := handlers.NewCalendarHandler(calendarService, loc)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
			auth.PUT("/organization", middleware.RequireAuth(), authHandler.SwitchOrganization)
		}

		orgs := api.Group("/organizations")
		orgs.Use(middleware.RequireAuth())
		{
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.POST("/join", orgHandler.JoinOrganization)

			org := orgs.Group("/:id", middleware.RequireOrganizationAccess())
			org.GET("", orgHandler.GetOrganization)
			org.GET("/tree", orgHandler.GetOrgChart)
			org.GET("/scope", orgHandler.GetMemberScope)
			org.PUT("", middleware.RequireOrganizationOwner(), orgHandler.UpdateOrganization)
			org.DELETE("", middleware.RequireOrganizationOwner(), orgHandler.DeleteOrganization)
			org.POST("/regenerate-code", middleware.RequireOrganizationOwner(), orgHandler.RegenerateInviteCode)

			// Leads and above manage members below them; the service checks the exact pair
			members := org.Group("/members/:user_id", middleware.RequireOrganizationRole(models.RoleLead))
			members.DELETE("", orgHandler.RemoveMember)
			members.PUT("/reports-to", orgHandler.SetReportsTo)
			members.PUT("/role", orgHandler.SetRole)
		}

		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/clear-completed", taskHandler.ClearCompleted)
			tasks.POST("/rank", taskHandler.RankTasks)
			tasks.POST("/generate", taskHandler.GenerateTasks)

			task := tasks.Group("/:id", middleware.RequireTaskAccess())
			task.GET("", taskHandler.GetTask)
			task.PATCH("", taskHandler.UpdateTask)
			task.DELETE("", taskHandler.DeleteTask)
			task.POST("/toggle", taskHandler.ToggleTask)
			task.POST("/assign", taskHandler.AssignTask)
			task.POST("/unassign", taskHandler.UnassignTask)
		}

		calendar := api.Group("/calendar")
		calendar.Use(middleware.RequireAuth())
		{
			calendar.GET("/week", calendarHandler.Week)
			calendar.GET("/day/export", calendarHandler.ExportDay)
		}
	}

	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
