package main

import (
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pixelwar/internal/canvas"
	"pixelwar/internal/pixelwar"
)

func loadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("error loading .env file")
	}
}

type config struct {
	Address       string
	Environment   string
	AllowedOrigin string

	Dimensions canvas.Dimensions
	Cooldown   time.Duration
	Active     bool

	Storage       string
	PixelFile     string
	RedisAddress  string
	RedisPassword string
	RedisKey      string

	AdminHashedPassword string
	CookieHashKey       []byte
	CookieBlockKey      []byte
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadConfig() (config, error) {
	cfg := config{
		Address:             getenv("ADDRESS", "127.0.0.1:3000"),
		Environment:         getenv("ENVIRONMENT", "production"),
		Storage:             getenv("STORAGE", "file"),
		PixelFile:           getenv("PIXEL_FILE", "state/pixels.bin"),
		RedisAddress:        getenv("REDIS_ADDRESS", "127.0.0.1:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisKey:            getenv("REDIS_KEY", "pixels"),
		AdminHashedPassword: os.Getenv("ADMIN_HASHED_PASSWORD"),
	}

	cfg.AllowedOrigin = os.Getenv("ALLOWED_ORIGIN")
	if cfg.AllowedOrigin == "" {
		if cfg.Environment == "development" {
			cfg.AllowedOrigin = "http://127.0.0.1:5173"
		} else {
			cfg.AllowedOrigin = "http://" + cfg.Address
		}
	}

	width, err := strconv.ParseUint(getenv("CANVAS_WIDTH", "80"), 10, 32)
	if err != nil {
		return config{}, fmt.Errorf("invalid CANVAS_WIDTH: %v", err)
	}
	height, err := strconv.ParseUint(getenv("CANVAS_HEIGHT", "80"), 10, 32)
	if err != nil {
		return config{}, fmt.Errorf("invalid CANVAS_HEIGHT: %v", err)
	}
	if width == 0 || height == 0 || width%2 != 0 || height%2 != 0 {
		return config{}, fmt.Errorf("canvas dimensions must be even and positive, got %dx%d", width, height)
	}
	cfg.Dimensions = canvas.Dimensions{Width: uint32(width), Height: uint32(height)}

	seconds, err := strconv.ParseInt(getenv("COOLDOWN_SECONDS", "5"), 10, 64)
	if err != nil {
		return config{}, fmt.Errorf("invalid COOLDOWN_SECONDS: %v", err)
	}
	if cfg.Cooldown, err = pixelwar.CooldownFromSeconds(seconds); err != nil {
		return config{}, fmt.Errorf("invalid COOLDOWN_SECONDS: %v", err)
	}

	cfg.Active, err = strconv.ParseBool(getenv("CANVAS_ACTIVE", "true"))
	if err != nil {
		return config{}, fmt.Errorf("invalid CANVAS_ACTIVE: %v", err)
	}

	if cfg.Storage != "file" && cfg.Storage != "redis" {
		return config{}, fmt.Errorf("invalid STORAGE: %q, want file or redis", cfg.Storage)
	}

	if cfg.CookieHashKey, err = decodeKey("COOKIE_HASH_KEY"); err != nil {
		return config{}, err
	}
	if cfg.CookieBlockKey, err = decodeKey("COOKIE_BLOCK_KEY"); err != nil {
		return config{}, err
	}

	return cfg, nil
}

func decodeKey(name string) ([]byte, error) {
	v := os.Getenv(name)
	if v == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", name, err)
	}
	return key, nil
}

// identityHeaders are consulted in order to find who is behind a request.
var identityHeaders = []string{"Client-Ip", "X-Real-Ip", "X-Forwarded-For"}

// getIP returns the client identity used for throttling. Requests carrying
// none of the proxy headers all share the "unknown" identity.
func getIP(r *http.Request) string {
	for _, h := range identityHeaders {
		if ip := r.Header.Get(h); ip != "" {
			return strings.TrimSpace(strings.Split(ip, ",")[0])
		}
	}
	return "unknown"
}
