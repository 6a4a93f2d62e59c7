package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/ksuid"

	"fitroom/internal/acquire"
	"fitroom/internal/compositor"
	"fitroom/internal/garment"
	"fitroom/internal/models"
	"fitroom/internal/outfit"
	"fitroom/internal/removal"
	"fitroom/internal/storage"
)

type Server struct {
	cfg      *models.Config
	router   *gin.Engine
	db       *storage.Storage
	producer *kafka.Writer
	session  *outfit.Session
	registry *garment.Registry
	comp     *compositor.Compositor
	acq      *acquire.Acquirer
	orch     *removal.Orchestrator
}

func NewServer(cfg *models.Config, db *storage.Storage, producer *kafka.Writer,
	session *outfit.Session, registry *garment.Registry, comp *compositor.Compositor,
	acq *acquire.Acquirer, orch *removal.Orchestrator) *Server {
	r := gin.Default()
	r.Static("/files", cfg.StoragePath)

	s := &Server{
		cfg: cfg, router: r, db: db, producer: producer,
		session: session, registry: registry, comp: comp, acq: acq, orch: orch,
	}

	r.POST("/upload", s.handleUpload)
	r.GET("/image", s.handleGetImage)
	r.POST("/garments", s.handleAddGarment)
	r.PATCH("/garments/:id", s.handleUpdateGarment)
	r.DELETE("/garments/:id", s.handleRemoveGarment)
	r.GET("/outfit", s.handleGetOutfit)
	r.POST("/outfit/clear", s.handleClearOutfit)
	r.POST("/session", s.handleNewSession)
	r.GET("/snapshot", s.handleSnapshot)
	r.POST("/save", s.handleSave)
	r.GET("/results/:id", s.handleGetResult)
	r.GET("/results", s.handleListResults)
	r.POST("/cache/clear", s.handleClearCache)

	return s
}

func (s *Server) Start() error {
	return s.router.Run(s.cfg.ServerAddr)
}

// Handler exposes the route tree for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleUpload(c *gin.Context) {
	const op = "server.handleUpload"

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.New()
	originalPath := filepath.Join(s.cfg.StoragePath, "original", id.String()+filepath.Ext(file.Filename))
	if err := os.MkdirAll(filepath.Dir(originalPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	f, err := os.Create(originalPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer f.Close()

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer src.Close()

	if _, err := io.Copy(f, src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	decoded, err := s.acq.Decode(originalPath)
	if err != nil {
		os.Remove(originalPath)
		var de *acquire.DecodeError
		if errors.As(err, &de) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	// A fresh upload replaces the record wholesale; any in-flight removal
	// for the previous image becomes stale.
	img := &models.UserImageInfo{
		ID:               id,
		URL:              originalPath,
		Dimensions:       decoded.Dimensions,
		ProcessingStatus: models.StatusIdle,
	}
	s.session.SetUserImage(img)

	if s.producer != nil {
		err = s.producer.WriteMessages(c.Request.Context(), kafka.Message{Value: []byte(id.String())})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
			return
		}
	} else {
		go s.orch.Process(context.Background(), id)
	}

	c.JSON(http.StatusOK, gin.H{"id": id.String(), "status": img.ProcessingStatus})
}

func (s *Server) handleGetImage(c *gin.Context) {
	img, ok := s.session.ImageSnapshot()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no user image uploaded"})
		return
	}
	c.JSON(http.StatusOK, img)
}

type addGarmentRequest struct {
	Source      string             `json:"source" binding:"required"`
	Type        models.GarmentType `json:"type"`
	ProductType string             `json:"product_type"`
}

func (s *Server) handleAddGarment(c *gin.Context) {
	const op = "server.handleAddGarment"

	var req addGarmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	typ := req.Type
	if typ == "" {
		typ = garment.InferType(req.ProductType)
	}

	g, err := s.registry.Register(req.Source, typ)
	if err != nil {
		var de *acquire.DecodeError
		if errors.As(err, &de) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	if err := s.session.AddGarment(g); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleUpdateGarment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var patch outfit.GarmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, ok := s.session.UpdateGarment(id, patch)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "garment not found"})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleRemoveGarment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Removal is idempotent; a missing id still answers 204.
	s.session.RemoveGarment(id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetOutfit(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.OutfitSnapshot())
}

func (s *Server) handleClearOutfit(c *gin.Context) {
	s.session.ClearOutfit()
	c.JSON(http.StatusOK, s.session.OutfitSnapshot())
}

func (s *Server) handleNewSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.StartNewSession())
}

func (s *Server) renderCurrent() ([]byte, error) {
	var userImage *models.UserImageInfo
	if img, ok := s.session.ImageSnapshot(); ok {
		userImage = &img
	}
	if _, err := s.comp.Render(userImage, s.session.OutfitSnapshot()); err != nil {
		return nil, err
	}
	return s.comp.Snapshot()
}

func (s *Server) handleSnapshot(c *gin.Context) {
	const op = "server.handleSnapshot"

	data, err := s.renderCurrent()
	if err != nil {
		if errors.Is(err, compositor.ErrNothingToSave) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) handleSave(c *gin.Context) {
	const op = "server.handleSave"

	img, ok := s.session.ImageSnapshot()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"saved": false, "error": compositor.ErrNothingToSave.Error()})
		return
	}

	data, err := s.renderCurrent()
	if err != nil {
		if errors.Is(err, compositor.ErrNothingToSave) {
			c.JSON(http.StatusConflict, gin.H{"saved": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	resultID := ksuid.New().String()
	resultPath := filepath.Join(s.cfg.StoragePath, "results", resultID+".png")
	if err := os.MkdirAll(filepath.Dir(resultPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	if err := os.WriteFile(resultPath, data, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	current := s.session.OutfitSnapshot()
	garmentIDs := make([]string, len(current.Garments))
	for i, g := range current.Garments {
		garmentIDs[i] = g.ID.String()
	}

	res := &models.SavedTryOnResult{
		ID:             resultID,
		OutfitID:       current.ID.String(),
		UserID:         c.DefaultQuery("user_id", "anonymous"),
		UserImageURL:   img.URL,
		ResultImageURL: resultPath,
		GarmentIDs:     garmentIDs,
		CreatedAt:      time.Now(),
	}
	if err := s.db.SaveResult(res); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": true, "result": res})
}

func (s *Server) handleGetResult(c *gin.Context) {
	const op = "server.handleGetResult"
	res, err := s.db.GetResult(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListResults(c *gin.Context) {
	const op = "server.handleListResults"
	results, err := s.db.ListResults(c.DefaultQuery("user_id", "anonymous"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleClearCache(c *gin.Context) {
	s.acq.ClearCache()
	c.Status(http.StatusNoContent)
}
