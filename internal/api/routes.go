// routes.go - Route registration helpers
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// APIPrefix is the path prefix of every versioned route.
const APIPrefix = "/api/v1"

// Dependencies holds all handler dependencies
type Dependencies struct {
	Service       Service
	Name          string
	Version       string
	MaxUploadSize int64
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Upload   UploadHandler
	Analysis AnalysisHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	name := deps.Name
	if name == "" {
		name = "ML Results Explainer"
	}
	return &Handlers{
		Health:   NewHealthHandler(name, deps.Version),
		Upload:   NewUploadHandler(deps.Service, deps.MaxUploadSize),
		Analysis: NewAnalysisHandler(deps.Service),
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
// The root banner is registered only when includeRoot is set, so an
// embedded frontend can own "/" instead.
func RegisterRoutes(e *echo.Echo, handlers *Handlers, includeRoot bool) {
	if includeRoot {
		e.GET("/", handlers.Health.HandleRoot)
	}

	v1 := e.Group(APIPrefix)
	v1.GET("/health", handlers.Health.HandleHealth)

	v1.POST("/upload", handlers.Upload.HandleUpload)
	v1.GET("/upload", handlers.Upload.HandleListUploads)
	v1.GET("/upload/:id", handlers.Upload.HandleGetUpload)

	v1.POST("/analyze/:id", handlers.Analysis.HandleAnalyze)
	v1.GET("/analyze/:id", handlers.Analysis.HandleListAnalyses)
	v1.GET("/analysis/:id", handlers.Analysis.HandleGetAnalysis)
	v1.GET("/analysis/:id/msgpack", handlers.Analysis.HandleGetAnalysisMsgpack)
}

// MiddlewareOptions configures SetupMiddleware.
type MiddlewareOptions struct {
	RequestLogging bool
	EnableCORS     bool
	AllowOrigins   string
	// BodyLimit is the maximum request body in bytes; zero disables it.
	BodyLimit int64
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return !opts.RequestLogging || c.Request().URL.Path == APIPrefix+"/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.BodyLimit > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(opts.BodyLimit, 10) + "B"))
	}

	if opts.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: splitOrigins(opts.AllowOrigins),
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
