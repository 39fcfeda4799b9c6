package routes

import (
	"opsboard/internal/api/handlers"
	"opsboard/internal/api/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine          *gin.Engine
	wsHandler       *handlers.WSHandler
	authHandler     *handlers.AuthHandler
	projectHandler  *handlers.ProjectHandler
	newsHandler     *handlers.NewsHandler
	artifactHandler *handlers.ArtifactHandler
	authMW          *middleware.AuthMiddleware
	wsAuth          gin.HandlerFunc
}

func NewRouter(
	wsHandler *handlers.WSHandler,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	newsHandler *handlers.NewsHandler,
	artifactHandler *handlers.ArtifactHandler,
	authMW *middleware.AuthMiddleware,
	wsAuth gin.HandlerFunc,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	return &Router{
		engine:          engine,
		wsHandler:       wsHandler,
		authHandler:     authHandler,
		projectHandler:  projectHandler,
		newsHandler:     newsHandler,
		artifactHandler: artifactHandler,
		authMW:          authMW,
		wsAuth:          wsAuth,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// The relay gateway: token verified during handshake, before any relay
	// state can be created.
	api.GET("/ws", r.wsAuth, r.wsHandler.HandleWebSocket)

	// Public routes
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	// Authenticated routes
	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	{
		projects := authed.Group("/projects")
		{
			projects.GET("/", r.projectHandler.List)
			projects.GET("/:id", r.projectHandler.Get)
			projects.GET("/:id/viewers", r.projectHandler.Viewers)
			projects.PUT("/:id/enabled", r.authMW.RequireAdmin(), r.projectHandler.SetEnabled)
		}

		news := authed.Group("/news")
		{
			news.GET("/", r.newsHandler.List)
			news.POST("/", r.authMW.RequireAdmin(), r.newsHandler.Create)
		}

		artifacts := authed.Group("/artifacts")
		{
			artifacts.GET("/logs/:owner/:name/:number/:job", r.artifactHandler.ArchivedLog)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
