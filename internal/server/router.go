package server

import (
	"net/http"
	"time"

	"gearrent/internal/events"
	"gearrent/internal/idempotency"
	"gearrent/internal/middleware"
	"gearrent/internal/modules/auth"
	"gearrent/internal/modules/catalog"
	"gearrent/internal/modules/realtime"
	"gearrent/internal/modules/rental"
	"gearrent/internal/pkg/jwt"
	"gearrent/internal/pkg/response"
	"gearrent/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Deps struct {
	DB  *gorm.DB
	JWT *jwt.Service

	// Hub receives every rental event; Publishers are extra sinks such as Kafka.
	Hub        *realtime.Hub
	Publishers []events.Publisher

	// Idempotency may be nil to ignore Idempotency-Key headers.
	Idempotency idempotency.Store

	StrictTransitions bool
	RentalNamePrefix  string
	CORSOrigins       []string
	Now               func() time.Time
}

func NewRouter(d Deps) *gin.Engine {
	if d.Hub == nil {
		d.Hub = realtime.NewHub()
	}
	publisher := events.Multi(append([]events.Publisher{d.Hub}, d.Publishers...))

	authService := auth.NewService(repository.NewUserRepository(d.DB), d.JWT, d.JWT.TTL())
	authHandler := auth.NewHandler(authService)

	catalogHandler := catalog.NewHandler(catalog.NewService(catalog.NewStore(d.DB)))

	rentalService := rental.NewService(rental.NewStore(d.DB), publisher, rental.Options{
		Strict:     d.StrictTransitions,
		NamePrefix: d.RentalNamePrefix,
		Now:        d.Now,
	})
	rentalHandler := rental.NewHandler(rentalService, d.Idempotency)

	feedHandler := realtime.NewHandler(d.Hub)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorLogger(), middleware.AccessLog(), middleware.CORS(d.CORSOrigins))

	r.GET("/healthz", healthz(d.DB))

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(d.JWT))
		{
			authHandler.RegisterProtectedRoutes(protected)
			catalogHandler.RegisterRoutes(protected, middleware.AdminOnly())
			rentalHandler.RegisterRoutes(protected, middleware.AdminOnly())
			feedHandler.RegisterRoutes(protected)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Route not found")
	})

	return r
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			response.Error(c, http.StatusServiceUnavailable, "INTERNAL_ERROR", "database unreachable")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
