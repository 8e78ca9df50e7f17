package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Checkout CheckoutConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	// File là đường dẫn tới document JSON (tương thích lowdb).
	File string
	// DatabaseURL khác rỗng thì dùng Postgres thay cho file store.
	DatabaseURL string
}

type CheckoutConfig struct {
	// PrivateKey là khóa bí mật chia sẻ với Checkout SDK, dùng làm khóa HMAC.
	PrivateKey string
	// StatusEndpoint là API truy vấn trạng thái giao dịch phía cổng thanh toán.
	StatusEndpoint string
	// CheckDelay là khoảng chờ trước khi tự truy vấn trạng thái một đơn đã
	// liên kết mà chưa nhận được callback.
	CheckDelay time.Duration
}

type LogConfig struct {
	File string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "10000"),
			Env:          getEnv("ENV", "development"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Store: StoreConfig{
			File:        getEnv("DB_FILE", "db.json"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Checkout: CheckoutConfig{
			PrivateKey:     os.Getenv("CHECKOUT_SDK_PRIVATE_KEY"),
			StatusEndpoint: getEnv("CHECKOUT_SDK_STATUS_ENDPOINT", "https://payment-mini.zalo.me/api/transaction/get-status"),
			CheckDelay:     getDuration("PAYMENT_CHECK_DELAY", 20*time.Minute),
		},
		Log: LogConfig{
			File: os.Getenv("LOG_FILE"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// chấp nhận số giây trần cho tiện cấu hình
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
