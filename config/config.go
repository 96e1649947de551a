package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	AppPort string
	AppMode string
	AppEnv  string
	// LogLevel overrides the level implied by AppEnv when set.
	LogLevel string

	StoreDriver string
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string
	MongoURL    string
	MongoDB     string

	JWTSecret    string
	JWTExpiryMin int
	BcryptCost   int

	RedisEnabled      bool
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisPoolSize     int
	RateLimitMessages int
	RateLimitAuth     int

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PresignTTL time.Duration

	AcceptGrantsMembership bool
	StrictMessageRemoval   bool
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:                getEnv("APP_PORT", "8080"),
		AppMode:                getEnv("APP_MODE", "debug"),
		AppEnv:                 getEnv("APP_ENV", "development"),
		LogLevel:               getEnv("LOG_LEVEL", ""),
		StoreDriver:            getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPassword:             getEnv("DB_PASSWORD", "postgres"),
		DBName:                 getEnv("DB_NAME", "rancho_chat"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		MongoURL:               getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:                getEnv("MONGO_DB", "rancho_chat"),
		JWTSecret:              getEnv("JWT_SECRET", "secret"),
		JWTExpiryMin:           getEnvAsInt("JWT_EXPIRY_MIN", 60*24),
		BcryptCost:             getEnvAsInt("BCRYPT_COST", 12),
		RedisEnabled:           getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:              getEnv("REDIS_HOST", "localhost"),
		RedisPort:              getEnv("REDIS_PORT", "6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		RedisPoolSize:          getEnvAsInt("REDIS_POOL_SIZE", 20),
		RateLimitMessages:      getEnvAsInt("RATE_LIMIT_MESSAGES", 60),
		RateLimitAuth:          getEnvAsInt("RATE_LIMIT_AUTH", 5),
		S3Region:               getEnv("S3_REGION", ""),
		S3Bucket:               getEnv("S3_BUCKET", ""),
		S3AccessKey:            getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:            getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:             getEnv("S3_ENDPOINT", ""),
		S3PresignTTL:           getEnvAsDuration("S3_PRESIGN_TTL", 15*time.Minute),
		AcceptGrantsMembership: getEnvAsBool("ACCEPT_GRANTS_MEMBERSHIP", false),
		StrictMessageRemoval:   getEnvAsBool("STRICT_MESSAGE_REMOVAL", false),
	}
}

// S3Enabled reports whether transcript export has somewhere to write.
func (c *Config) S3Enabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
