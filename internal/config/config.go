package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	Server    ServerConfig
	CORS      CORSConfig
	Deploy    DeployConfig
	Ephemeral EphemeralConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type JWTConfig struct {
	AccessSecret      string
	AccessTokenExpiry time.Duration
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// DeployConfig locates firmware artifacts and build logs on disk.
// The layout below Root is {owner}/{udid}/{build_id}.
type DeployConfig struct {
	Root             string
	MQTTPasswordFile string
	Platforms        map[string]PlatformDescriptor
}

// PlatformDescriptor describes which files make up a multi-file
// firmware artifact for a given platform: one mandatory header file
// plus every file matching one of the extensions.
type PlatformDescriptor struct {
	Header     string
	Extensions []string
}

type EphemeralConfig struct {
	OTTExpiry         time.Duration
	OTTRedeemedExpiry time.Duration
	ConflictRetries   uint64
}

func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "iot_fleet"),
		},
		JWT: JWTConfig{
			AccessSecret:      getEnv("JWT_ACCESS_SECRET", "your-access-secret-key"),
			AccessTokenExpiry: parseDuration(getEnv("ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Deploy: DeployConfig{
			Root:             getEnv("DEPLOY_ROOT", "./data"),
			MQTTPasswordFile: getEnv("MQTT_PASSWORD_FILE", "./mqtt_passwords"),
			Platforms:        defaultPlatforms(),
		},
		Ephemeral: EphemeralConfig{
			OTTExpiry:         parseDuration(getEnv("OTT_EXPIRY", "24h"), 24*time.Hour),
			OTTRedeemedExpiry: parseDuration(getEnv("OTT_REDEEMED_EXPIRY", "1h"), time.Hour),
			ConflictRetries:   5,
		},
	}

	return config
}

// defaultPlatforms returns the built-in multi-file artifact
// descriptors. Platforms with single-binary artifacts (arduino,
// platformio) are deliberately absent; their updates ship one file.
func defaultPlatforms() map[string]PlatformDescriptor {
	return map[string]PlatformDescriptor{
		"nodemcu": {
			Header:     "thinx.lua",
			Extensions: []string{".lua"},
		},
		"micropython": {
			Header:     "thinx.json",
			Extensions: []string{".py"},
		},
		"mongoose": {
			Header:     "mos.yml",
			Extensions: []string{".bin", ".hex"},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		fmt.Printf("Warning: Invalid duration format '%s', using default\n", s)
		return fallback
	}
	return duration
}

func parseOrigins(s string) []string {
	if s == "" {
		return []string{}
	}

	origins := []string{}
	for _, origin := range strings.Split(s, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	return origins
}
