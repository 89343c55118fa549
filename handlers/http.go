package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"rift/helpers"
	"rift/interfaces"
	"rift/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// ServerInterface lists the HTTP admin operations described by api/rift.openapi.yaml.
type ServerInterface interface {
	// (GET /v1/services)
	ListServices(ctx echo.Context) error
	// (POST /v1/services)
	RegisterService(ctx echo.Context) error
	// (GET /about)
	GetAbout(ctx echo.Context) error
	// (GET /healthz)
	GetHealth(ctx echo.Context) error
}

// EchoRouter is the part of *echo.Echo and *echo.Group used for route registration.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlers binds si to the API paths.
func RegisterHandlers(router EchoRouter, si ServerInterface) {
	router.GET("/v1/services", si.ListServices)
	router.POST("/v1/services", si.RegisterService)
	router.GET("/about", si.GetAbout)
	router.GET("/healthz", si.GetHealth)
}

// About is the JSON-LD SoftwareApplication served on /about.
type About struct {
	Context         string `json:"@context"`
	Type            string `json:"@type"`
	Name            string `json:"name"`
	URL             string `json:"url,omitempty"`
	Description     string `json:"description"`
	SoftwareVersion string `json:"softwareVersion,omitempty"`
}

// DefaultAbout describes this node.
func DefaultAbout(version string) About {
	return About{
		Context:         "http://schema.org",
		Type:            "SoftwareApplication",
		Name:            "Rift",
		URL:             "https://github.com/jerluc/rift",
		Description:     "A protocol for decentralized service distribution",
		SoftwareVersion: version,
	}
}

// HTTPServer implements ServerInterface over the registry store.
type HTTPServer struct {
	store  interfaces.RegistryStore
	about  About
	logger log.Logger
}

// NewHTTPServer creates a new HTTPServer. Panics on nil store or logger.
func NewHTTPServer(store interfaces.RegistryStore, about About, logger log.Logger) *HTTPServer {
	logger = log.WithPrefix(helpers.NilPanic(logger, "handlers.http.go: logger is required"), "component", "HTTPServer")
	return &HTTPServer{
		store:  helpers.NilPanic(store, "handlers.http.go: store is required"),
		about:  about,
		logger: logger,
	}
}

// ListServices (GET /v1/services) returns the registry snapshot as a JSON array.
func (h *HTTPServer) ListServices(ectx echo.Context) error {
	payload, err := service.EncodeDescriptors(h.store.Snapshot())
	if err != nil {
		return fmt.Errorf("listServices failed to encode registry, err: %w", err)
	}
	return ectx.JSONBlob(http.StatusOK, payload)
}

// RegisterService (POST /v1/services) appends the body descriptor. Returns 201 with the stored descriptor,
// 400 when the body is not a valid descriptor.
func (h *HTTPServer) RegisterService(ectx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ectx.Request().Body, DefaultRegistryMaxPayload+1))
	if err != nil {
		return service.NewBadParameterError("can't read request body", err)
	}
	if len(body) > DefaultRegistryMaxPayload {
		return service.NewValidationError(fmt.Sprintf("payload exceeds %d bytes", DefaultRegistryMaxPayload), nil)
	}

	d, err := service.DecodeDescriptor(body)
	if err != nil {
		return fmt.Errorf("registerService failed to decode descriptor, err: %w", err)
	}
	if err := h.store.Append(d); err != nil {
		return fmt.Errorf("registerService failed to append descriptor, err: %w", err)
	}

	level.Info(h.logger).Log("msg", "added service", "name", d.Name, "type", d.Type, "target", d.Target.URLTemplate)
	return ectx.JSON(http.StatusCreated, d)
}

// GetAbout (GET /about) describes this node as JSON-LD.
func (h *HTTPServer) GetAbout(ectx echo.Context) error {
	payload, err := json.Marshal(h.about)
	if err != nil {
		return service.NewInternalServerError("can't marshal about", err)
	}
	return ectx.Blob(http.StatusOK, "application/ld+json", payload)
}

// GetHealth (GET /healthz) reports that the process is serving.
func (h *HTTPServer) GetHealth(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// NewEcho assembles the admin HTTP server: error handler, request validation and routes.
func NewEcho(ctx context.Context, si ServerInterface, logger log.Logger) (*echo.Echo, error) {
	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	validator, err := OpenAPIValidator(doc)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	service.RegisterErrorHandler(e, logger)
	e.Use(validator)
	RegisterHandlers(e, si)
	return e, nil
}
