package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret            string        // Secret key cho JWT
	JWTExpirationHours   time.Duration // Thời gian hết hạn của access token
	RefreshExpirationHrs time.Duration // Thời gian hết hạn của refresh token
	WSTokenLifetime      time.Duration // Token ngắn hạn cho kênh WebSocket

	ExpiryScanInterval   time.Duration // Chu kỳ quét reservation hết hạn
	UpcomingScanInterval time.Duration // Chu kỳ quét reservation sắp bắt đầu
	UpcomingWindow       time.Duration // Báo trước bao lâu (mặc định 30 phút)
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExpHours, _ := strconv.Atoi(getEnv("REFRESH_EXPIRATION_HOURS", "168")) // Mặc định 7 ngày
	wsTokenMinutes, _ := strconv.Atoi(getEnv("WS_TOKEN_LIFETIME_MINUTES", "30"))

	expiryScanSec, _ := strconv.Atoi(getEnv("EXPIRY_SCAN_INTERVAL_SECONDS", "60"))
	upcomingScanSec, _ := strconv.Atoi(getEnv("UPCOMING_SCAN_INTERVAL_SECONDS", "300"))
	upcomingWindowMin, _ := strconv.Atoi(getEnv("UPCOMING_WINDOW_MINUTES", "30"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "youruser"),
		DBPassword: getEnv("DB_PASSWORD", "yourpassword"),
		DBName:     getEnv("DB_NAME", "parking_reservation_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		JWTSecret:            getEnv("JWT_SECRET", "your-very-secret-key-for-jwt-!@#$"),
		JWTExpirationHours:   time.Duration(jwtExpHours) * time.Hour,
		RefreshExpirationHrs: time.Duration(refreshExpHours) * time.Hour,
		WSTokenLifetime:      time.Duration(wsTokenMinutes) * time.Minute,

		ExpiryScanInterval:   time.Duration(expiryScanSec) * time.Second,
		UpcomingScanInterval: time.Duration(upcomingScanSec) * time.Second,
		UpcomingWindow:       time.Duration(upcomingWindowMin) * time.Minute,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}
