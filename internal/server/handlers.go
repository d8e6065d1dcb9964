package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"infometis/internal/api"
	"infometis/pkg/logging"
)

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.getHealth)

	components := s.router.Group("/components")
	components.GET("", s.listComponents)
	components.POST("/:name", s.deployComponent)
	components.DELETE("/:name", s.cleanupComponent)
	components.GET("/:name/status", s.componentStatus)

	stacks := s.router.Group("/stacks")
	stacks.GET("", s.listStacks)
	stacks.GET("/:name", s.stackStatus)
	stacks.POST("/:name", s.deployStack)
	stacks.DELETE("/:name", s.cleanupStack)

	images := s.router.Group("/cache/images")
	images.GET("", s.listImages)
	images.POST("", s.cacheImages)
	images.PUT("", s.transferImages)

	s.router.NoRoute(func(c *gin.Context) {
		respond(c, http.StatusNotFound, gin.H{"error": "route not found: " + c.Request.Method + " " + c.Request.URL.Path})
	})
}

// componentRequest is the optional body of the component routes.
type componentRequest struct {
	Environment api.Environment `json:"environment,omitempty"`
	Config      map[string]any  `json:"config,omitempty"`
}

// respond writes body with the success flag and timestamp every response
// carries.
func respond(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = status < http.StatusBadRequest
	body["timestamp"] = time.Now().UTC()
	c.JSON(status, body)
}

func respondError(c *gin.Context, err error, extra gin.H) {
	status := http.StatusInternalServerError
	var reqErr *requestError
	switch {
	case api.IsNotFound(err):
		status = http.StatusNotFound
	case errors.As(err, &reqErr):
		status = http.StatusBadRequest
	}
	_ = c.Error(err)

	body := gin.H{"error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	respond(c, status, body)
}

type requestError struct{ err error }

func (e *requestError) Error() string { return "invalid request body: " + e.err.Error() }

// bindOptional decodes a JSON body when one is present.
func bindOptional(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return &requestError{err: err}
	}
	return nil
}

func (s *Server) getHealth(c *gin.Context) {
	status, err := s.cfg.Platform.Status(c.Request.Context())
	if err != nil {
		respondError(c, err, gin.H{"status": "unhealthy"})
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "healthy", "orchestrator": status})
}

func (s *Server) listComponents(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"components": s.cfg.Platform.Components()})
}

func (s *Server) deployComponent(c *gin.Context) {
	var req componentRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, err, nil)
		return
	}
	spec := api.ComponentSpec{Name: c.Param("name"), Environment: req.Environment, Config: req.Config}

	logging.Info(subsystem, "Deploying component %s", spec.Name)
	record, err := s.cfg.Platform.DeployComponent(c.Request.Context(), spec)
	if err != nil {
		respondError(c, err, gin.H{"deployment": record})
		return
	}
	respond(c, http.StatusOK, gin.H{"deployment": record})
}

func (s *Server) cleanupComponent(c *gin.Context) {
	var req componentRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, err, nil)
		return
	}
	name := c.Param("name")
	if err := s.cfg.Platform.CleanupComponent(c.Request.Context(), name, req.Environment, req.Config); err != nil {
		respondError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, gin.H{"component": name, "removed": true})
}

func (s *Server) componentStatus(c *gin.Context) {
	env, err := api.ParseEnvironment(c.Query("environment"))
	if err != nil {
		respondError(c, &requestError{err: err}, nil)
		return
	}
	report, err := s.cfg.Platform.ComponentStatus(c.Request.Context(), c.Param("name"), env, nil)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": report})
}

func (s *Server) listStacks(c *gin.Context) {
	stacks, err := s.cfg.Platform.ListStacks(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, gin.H{"stacks": stacks})
}

func (s *Server) stackStatus(c *gin.Context) {
	ctx := c.Request.Context()
	stack, err := s.cfg.Platform.FindStack(ctx, c.Param("name"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	status, err := s.cfg.Platform.GetStackStatus(ctx, stack.ID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, gin.H{"status": status})
}

// deployStack deploys the stack in the request body. Without a body the
// stored definition with the same name is used.
func (s *Server) deployStack(c *gin.Context) {
	name := c.Param("name")
	var spec api.StackSpec
	if err := bindOptional(c, &spec); err != nil {
		respondError(c, err, nil)
		return
	}
	if len(spec.Components) == 0 {
		if s.cfg.Stacks == nil {
			respondError(c, &requestError{err: errors.New("stack has no components")}, nil)
			return
		}
		stored, err := s.cfg.Stacks.Load(name)
		if err != nil {
			respondError(c, &api.StackNotFoundError{ID: name}, nil)
			return
		}
		spec = stored
	}
	spec.Name = name

	stack, err := s.cfg.Platform.DeployStack(c.Request.Context(), spec)
	if err != nil {
		respondError(c, err, gin.H{"stack": stack})
		return
	}
	respond(c, http.StatusOK, gin.H{"stack": stack})
}

func (s *Server) cleanupStack(c *gin.Context) {
	ctx := c.Request.Context()
	stack, err := s.cfg.Platform.FindStack(ctx, c.Param("name"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if err := s.cfg.Platform.CleanupStack(ctx, stack.ID); err != nil {
		respondError(c, err, gin.H{"stackId": stack.ID})
		return
	}
	respond(c, http.StatusOK, gin.H{"stackId": stack.ID, "removed": true})
}

func (s *Server) listImages(c *gin.Context) {
	if s.cfg.Images == nil {
		respondError(c, errors.New("image cache not configured"), nil)
		return
	}
	entries, err := s.cfg.Images.List()
	if err != nil {
		respondError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, gin.H{"images": entries})
}

// imagesRequest optionally narrows POST /cache/images to specific images.
type imagesRequest struct {
	Images []string `json:"images,omitempty"`
}

func (s *Server) cacheImages(c *gin.Context) {
	if s.cfg.Images == nil {
		respondError(c, errors.New("image cache not configured"), nil)
		return
	}
	var req imagesRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, err, nil)
		return
	}
	images := req.Images
	if len(images) == 0 {
		images = s.cfg.CacheImages
	}
	if err := s.cfg.Images.CacheAll(c.Request.Context(), images); err != nil {
		respondError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, gin.H{"cached": images})
}

func (s *Server) transferImages(c *gin.Context) {
	if s.cfg.Images == nil {
		respondError(c, errors.New("image cache not configured"), nil)
		return
	}
	if err := s.cfg.Images.TransferAll(c.Request.Context()); err != nil {
		respondError(c, err, nil)
		return
	}
	respond(c, http.StatusOK, gin.H{"transferred": true})
}
