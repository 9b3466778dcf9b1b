package httpapi

import (
	"net/http"

	"github.com/cinebot/cinebot/internal/common"
	"github.com/cinebot/cinebot/internal/config"
	"github.com/cinebot/cinebot/internal/httpapi/handlers"
	"github.com/cinebot/cinebot/internal/httpapi/middleware"
	"github.com/cinebot/cinebot/internal/recommend"
	"github.com/cinebot/cinebot/internal/store/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, cache recommend.GenreCache, pub *rabbitmq.Publisher, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, cache, pub, log)

	r.GET("/ping", h.Ping)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.POST("/recommendations", h.CreateRecommendation)
	authGroup.POST("/recommendations/jobs", h.CreateRecommendationJob)
	authGroup.GET("/recommendations/jobs/:job_id", h.GetRecommendationJob)
	return r
}
