package middleware

import (
	"log"
	"strings"
	"time"

	"conference-abstracts-api/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the origins listed in CORS_ALLOWED_ORIGINS.
func CORSMiddleware() gin.HandlerFunc {
	return CORSMiddlewareFor(config.AllowedOrigins())
}

// CORSMiddlewareFor builds the CORS handler for origins. "*" allows every origin
// without credentials; entries lacking an http(s) scheme are skipped.
func CORSMiddlewareFor(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "Accept", "Origin"},
		MaxAge:       10 * time.Minute,
	}

	for _, origin := range origins {
		switch {
		case origin == "*":
			cfg.AllowAllOrigins = true
		case strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://"):
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		default:
			log.Printf("cors: ignoring origin without scheme %q", origin)
		}
	}

	if cfg.AllowAllOrigins {
		cfg.AllowOrigins = nil
	} else {
		cfg.AllowCredentials = true
		if len(cfg.AllowOrigins) == 0 {
			cfg.AllowOrigins = []string{"http://localhost:3000"}
		}
	}

	return cors.New(cfg)
}
