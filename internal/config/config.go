package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

const (
	BackendMongo  = "mongo"
	BackendCRDB   = "crdb"
	BackendMemory = "memory"
)

type Config struct {
	HTTPAddr          string
	StoreBackend      string
	MongoURI          string
	MongoDB           string
	MongoTransactions bool
	CRDBDSN           string
	RedisAddr         string
	RabbitURL         string
	JWTSecret         string
	AdminEmail        string
	OTLPEndpoint      string
	LogLevel          string
	EventLocation     *time.Location
	CatalogCacheTTL   time.Duration
	IdempotencyTTL    time.Duration
	UserRateLimit     int
	IPRateLimit       int
	BrandName         string
	CurrencySymbol    string
	UploadDir         string
	PublicBaseURL     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		StoreBackend:      strings.ToLower(getenv("STORE_BACKEND", BackendMongo)),
		MongoURI:          getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getenv("MONGO_DB", "eventhub"),
		MongoTransactions: getbool("MONGO_TRANSACTIONS", false),
		CRDBDSN:           os.Getenv("CRDB_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RabbitURL:         os.Getenv("RABBIT_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminEmail:        strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		CatalogCacheTTL:   getdur("CATALOG_CACHE_TTL", 30*time.Second),
		IdempotencyTTL:    getdur("IDEMPOTENCY_TTL", time.Hour),
		UserRateLimit:     getint("RATE_LIMIT_PER_MINUTE", 10),
		IPRateLimit:       getint("IP_RATE_LIMIT_PER_MINUTE", 100),
		BrandName:         getenv("BRAND_NAME", "EventHub"),
		CurrencySymbol:    getenv("CURRENCY_SYMBOL", "Rs."),
		UploadDir:         getenv("UPLOAD_DIR", "./public/uploads"),
		PublicBaseURL:     strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080/uploads"), "/"),
	}

	loc, err := time.LoadLocation(getenv("EVENT_TIMEZONE", "UTC"))
	if err != nil {
		return nil, errors.Wrap(err, "EVENT_TIMEZONE")
	}
	cfg.EventLocation = loc

	switch cfg.StoreBackend {
	case BackendMongo, BackendCRDB, BackendMemory:
	default:
		return nil, errors.Newf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendCRDB && cfg.CRDBDSN == "" {
		return nil, errors.New("CRDB_DSN is required for the crdb backend")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getint(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getbool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}
