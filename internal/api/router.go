package api

import (
	"parking_reservation/internal/api/handler"
	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(as *service.AuthService, ps *service.ParkingService, rs *service.ReservationService,
	reportService *service.ReportService, ns *service.NotificationService, wsTokenService *service.WSTokenService,
	authMw *middleware.AuthMiddleware, hub *handler.NotificationHub) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint: auth qua ?token= (ws token hoặc access token)
	r.GET("/ws", hub.HandleConnection)

	authHandler := handler.NewAuthHandler(as, wsTokenService)
	rateLimiter := middleware.NewRateLimiter(10, 5)
	authRoutes := r.Group("/auth")
	authRoutes.Use(rateLimiter.Limit())
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.Refresh)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		v1.GET("/users/me", authHandler.Me)
		v1.PUT("/users/me", authHandler.UpdateMe)
		v1.POST("/auth/ws-token", authHandler.WSToken)

		lotH := handler.NewParkingLotHandler(ps)
		spaceH := handler.NewParkingSpaceHandler(ps)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.RequireAction(service.ActionLotWrite), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.GET("/:id/occupancy-rate", lotH.GetOccupancyRate)
			lotRoutes.GET("/:id/available-spaces", spaceH.GetAvailableSpacesByLot)
			lotRoutes.GET("/:id/spaces", spaceH.GetSpacesByLot)
			lotRoutes.PUT("/:id", authMw.RequireAction(service.ActionLotWrite), lotH.UpdateParkingLot)
			lotRoutes.DELETE("/:id", authMw.RequireAction(service.ActionLotWrite), lotH.DeleteParkingLot)
		}

		spaceRoutes := v1.Group("/parking-spaces")
		{
			spaceRoutes.POST("", authMw.RequireAction(service.ActionSpaceWrite), spaceH.CreateParkingSpace)
			spaceRoutes.GET("/:id", spaceH.GetParkingSpaceByID)
			spaceRoutes.PUT("/:id", authMw.RequireAction(service.ActionSpaceWrite), spaceH.UpdateParkingSpace)
			spaceRoutes.DELETE("/:id", authMw.RequireAction(service.ActionSpaceWrite), spaceH.DeleteParkingSpace)
			spaceRoutes.POST("/:id/reserve", authMw.RequireAction(service.ActionSpaceTransition), spaceH.ReserveSpace)
			spaceRoutes.POST("/:id/occupy", authMw.RequireAction(service.ActionSpaceTransition), spaceH.OccupySpace)
			spaceRoutes.POST("/:id/vacate", authMw.RequireAction(service.ActionSpaceTransition), spaceH.VacateSpace)
		}

		resH := handler.NewReservationHandler(rs)
		resRoutes := v1.Group("/reservations")
		{
			resRoutes.POST("", authMw.RequireAction(service.ActionReservationCreate), resH.CreateReservation)
			resRoutes.GET("", resH.ListReservations)
			resRoutes.GET("/my/active", resH.MyActive)
			resRoutes.GET("/my/pending", resH.MyPending)
			resRoutes.GET("/my/expired", resH.MyExpired)
			resRoutes.GET("/my/cancelled", resH.MyCancelled)
			resRoutes.GET("/:id", resH.GetReservationByID)
			resRoutes.POST("/:id/cancel", resH.CancelReservation)
			resRoutes.POST("/:id/complete", resH.CompleteReservation)
			resRoutes.PUT("/:id/status", authMw.RequireAction(service.ActionReservationListAll), resH.UpdateReservationStatus)
		}

		notifH := handler.NewNotificationHandler(ns)
		v1.GET("/notifications", notifH.ListMyNotifications)

		reportH := handler.NewReportHandler(reportService)
		reportRoutes := v1.Group("/reports")
		reportRoutes.Use(authMw.RequireAction(service.ActionReportView))
		{
			reportRoutes.GET("/summary", reportH.Summary)
			reportRoutes.GET("/users", reportH.UserStats)
			reportRoutes.GET("/daily-reservations", reportH.DailyReservations)
			reportRoutes.GET("/revenue", reportH.Revenue)
			reportRoutes.GET("/peak-hours", reportH.PeakHours)
			reportRoutes.POST("/daily", reportH.GenerateDaily)
			reportRoutes.POST("/monthly", reportH.GenerateMonthly)
			reportRoutes.POST("/parking-lot/:id", reportH.GenerateForLot)
			reportRoutes.GET("/date-range", reportH.DateRange)
			reportRoutes.GET("/export", reportH.Export)
		}
	}
	return r
}
