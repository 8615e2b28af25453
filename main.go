package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking_reservation/internal/api"
	"parking_reservation/internal/api/handler"
	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/config"
	"parking_reservation/internal/repository/postgresql"
	"parking_reservation/internal/service"
	"parking_reservation/internal/tokenstore"

	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()
	log.Println("Đã kết nối database thành công!")

	// 3. Setup Redis cho kho ws token
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	var wsTokenStore tokenstore.Store
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("CẢNH BÁO: Không kết nối được Redis (%v), dùng kho token in-memory.", err)
		wsTokenStore = tokenstore.NewMemoryStore()
	} else {
		log.Println("Đã kết nối Redis thành công!")
		wsTokenStore = tokenstore.NewRedisStore(redisClient)
	}
	cancelPing()

	// 4. Initialize Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	parkingLotRepo := postgresql.NewPgParkingLotRepository(db)
	parkingSpaceRepo := postgresql.NewPgParkingSpaceRepository(db)
	reservationRepo := postgresql.NewPgReservationRepository(db)
	notificationRepo := postgresql.NewPgNotificationRepository(db)
	reportRepo := postgresql.NewPgReportRepository(db)

	// 5. Initialize Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours, cfg.RefreshExpirationHrs)
	wsTokenService := service.NewWSTokenService(wsTokenStore, cfg.JWTSecret, cfg.WSTokenLifetime)

	hub := handler.NewNotificationHub(wsTokenService, authService)
	go hub.Start()
	log.Println("Notification hub đã được khởi động.")

	notificationService := service.NewNotificationService(notificationRepo, hub)
	parkingService := service.NewParkingService(parkingLotRepo, parkingSpaceRepo)
	reservationService := service.NewReservationService(reservationRepo, parkingLotRepo, notificationService)
	reportService := service.NewReportService(reportRepo, parkingLotRepo, userRepo)

	// 6. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 7. Background scanner: quét hết hạn và nhắc nhở sắp bắt đầu
	scannerCtx, cancelScanner := context.WithCancel(context.Background())
	scannerService := service.NewScannerService(reservationRepo, notificationService, cfg.UpcomingWindow)
	scannerService.Start(scannerCtx, cfg.ExpiryScanInterval, cfg.UpcomingScanInterval)
	log.Printf("Scanner đã chạy (hết hạn mỗi %v, sắp bắt đầu mỗi %v).", cfg.ExpiryScanInterval, cfg.UpcomingScanInterval)

	// 8. Setup HTTP Router
	router := api.SetupRouter(authService, parkingService, reservationService,
		reportService, notificationService, wsTokenService, authMiddleware, hub)

	// 9. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	cancelScanner()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	log.Println("Server đã tắt.")
}
