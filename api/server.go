package api

import (
	"context"
	"net/http"

	"github.com/kataras/golog"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tcsec/vulncases/push"
	"github.com/tcsec/vulncases/schema"
)

// Store enumerates the storage operations the handlers consume. The
// underlying connection never leaves the store package.
type Store interface {
	FindByPlatform(ctx context.Context, platform string) ([]schema.TestCase, error)
	InsertOne(ctx context.Context, tc *schema.TestCase) error
	InsertMany(ctx context.Context, tcs []*schema.TestCase) (int, error)
	UpdateOne(ctx context.Context, vulnID string, fields map[string]any) (bool, error)
	DeleteMany(ctx context.Context, vulnIDs []string) (int64, error)
	Ping(ctx context.Context) error
}

// Generator synthesizes metadata for a validated generate request.
type Generator interface {
	GenerateMetadata(ctx context.Context, req *schema.GenerateRequest) (map[string]any, error)
}

type Server struct {
	echo      *echo.Echo
	store     Store
	generator Generator
	pusher    push.RawPusher
	log       *golog.Logger
}

// NewServer wires the routes. pusher may be nil, in which case insert
// notifications are disabled.
func NewServer(store Store, generator Generator, pusher push.RawPusher) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		store:     store,
		generator: generator,
		pusher:    pusher,
		log:       golog.Child("[api]"),
	}
	e.HTTPErrorHandler = s.errorHandler

	v1 := e.Group("/api/v1")
	v1.GET("/test_cases", s.listTestCases)
	v1.POST("/test_cases", s.createTestCases)
	v1.PUT("/test_cases", s.updateTestCases)
	v1.DELETE("/test_cases", s.deleteTestCases)
	v1.POST("/generate_metadata", s.generateMetadata)
	e.GET("/health", s.health)
	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// errorHandler catches everything the handlers did not map themselves:
// echo routing errors and panics from the recover middleware. Internals are
// logged, never echoed back.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if he, ok := err.(*echo.HTTPError); ok {
		_ = c.JSON(he.Code, echo.Map{"error": he.Message})
		return
	}
	s.log.Errorf("unhandled error on %s %s: %s", c.Request().Method, c.Request().URL.Path, err)
	_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
