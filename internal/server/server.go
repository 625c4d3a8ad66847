package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/attendance/internal/config"
	"github.com/agenthands/attendance/internal/core"
	"github.com/agenthands/attendance/internal/core/dedupe"
	"github.com/agenthands/attendance/internal/core/model"
	"github.com/agenthands/attendance/internal/core/validation"
	"github.com/agenthands/attendance/internal/driver"
	"github.com/agenthands/attendance/internal/llm"
	"github.com/agenthands/attendance/internal/storage/sqlite"
)

const signatureField = "signature"

type Server struct {
	Attendance     *core.Attendance
	MaxUploadBytes int64

	closers []func() error
}

func New(attendance *core.Attendance, maxUploadBytes int64) *Server {
	return &Server{
		Attendance:     attendance,
		MaxUploadBytes: maxUploadBytes,
	}
}

// NewServer wires storage, validation, scanning and the optional graph
// recorder from cfg.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s := &Server{MaxUploadBytes: cfg.Server.MaxUploadBytes}
	s.closers = append(s.closers, store.Close)

	validator, err := newValidator(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	cache, err := validation.NewCache(validator, validation.Config{
		Capacity:      cfg.Cache.Capacity,
		Timeout:       cfg.Cache.Timeout.Duration,
		MaxConcurrent: cfg.Cache.MaxConcurrent,
		QueueTimeout:  cfg.Cache.QueueTimeout.Duration,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	scanner, err := dedupe.NewScanner(cfg.Scanner.Threshold, cfg.Scanner.Workers)
	if err != nil {
		s.Close()
		return nil, err
	}

	opts := core.ImagingOptions{
		Width:     cfg.Imaging.GridWidth,
		Height:    cfg.Imaging.GridHeight,
		Levels:    cfg.Imaging.Levels,
		Tolerance: cfg.Imaging.MonochromeTolerance,
		MaxPixels: cfg.Imaging.MaxPixels,
	}
	s.Attendance = core.NewAttendance(store, cache, scanner, opts, cfg.Storage.Dir)
	s.Attendance.SuspicionThreshold = cfg.Suspicion.Threshold

	if cfg.Memgraph.URI != "" {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to Memgraph: %w", err)
		}
		s.closers = append(s.closers, func() error { return d.Close(context.Background()) })
		if err := d.BuildIndices(ctx); err != nil {
			log.Printf("[GRAPH] Failed to build indices: %v", err)
		}
		s.Attendance.Recorder = driver.NewRecorder(d)
	} else {
		log.Println("[GRAPH] memgraph.uri not set, graph recording disabled")
	}

	return s, nil
}

func newValidator(ctx context.Context, cfg *config.Config) (validation.Validator, error) {
	switch cfg.Validator.Kind {
	case "model":
		client, err := llm.NewVisionClient(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vision client: %w", err)
		}
		return validation.NewModelValidator(client, cfg.Imaging.GridWidth, cfg.Imaging.GridHeight, cfg.Imaging.Levels), nil
	default:
		return &validation.InkValidator{
			Width:         cfg.Imaging.GridWidth,
			MinInk:        cfg.Validator.MinInk,
			MaxInk:        cfg.Validator.MaxInk,
			MinStrokeRows: cfg.Validator.MinStrokeRows,
		}, nil
	}
}

func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(requestID())

	r.GET("/course/:courseId/students", s.Roster)
	r.GET("/course/:courseId/duplicates", s.Duplicates)
	r.GET("/course/:courseId/suspicious", s.Suspicious)
	r.GET("/course/:courseId/rings", s.Rings)
	r.POST("/student/:studentId/present", s.MarkPresent)
	r.GET("/student/:studentId/shared-signers", s.SharedSigners)
	r.POST("/state", s.State)
	r.POST("/signature/validation", s.CheckSignature)
	r.GET("/signatures/:id/validation", s.Verdict)

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) Roster(c *gin.Context) {
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	roster, err := s.Attendance.Roster(c.Request.Context(), courseID)
	if err != nil {
		log.Printf("Failed to load roster: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load roster"})
		return
	}

	c.JSON(http.StatusOK, roster)
}

func (s *Server) MarkPresent(c *gin.Context) {
	studentID, ok := idParam(c, "studentId")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxUploadBytes)

	courseID, err := strconv.ParseInt(c.PostForm("courseId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid courseId"})
		return
	}

	upload, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file provided"})
		return
	}

	report, err := s.Attendance.MarkPresent(c.Request.Context(), studentID, courseID, upload)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, core.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid signature color"})
	case errors.Is(err, core.ErrInvalidFile):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file provided"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Student is not enrolled in this course"})
	default:
		log.Printf("Failed to mark student %d present: %v", studentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark presence"})
	}
}

type StateRequest struct {
	StudentID int64 `json:"studentId" binding:"required"`
	CourseID  int64 `json:"courseId" binding:"required"`
}

func (s *Server) State(c *gin.Context) {
	var req StateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	st, err := s.Attendance.State(c.Request.Context(), req.StudentID, req.CourseID)
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "State not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to load state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load state"})
		return
	}

	c.JSON(http.StatusOK, st)
}

func (s *Server) CheckSignature(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxUploadBytes)

	upload, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file provided"})
		return
	}

	res, err := s.Attendance.CheckSignature(c.Request.Context(), upload)
	if err != nil || !res.IsValid {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file provided"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Valid signature"})
}

func (s *Server) Verdict(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	res, err := s.Attendance.Verdict(c.Request.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Signature not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to validate signature %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate signature"})
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) Duplicates(c *gin.Context) {
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	dups, err := s.Attendance.Duplicates(c.Request.Context(), courseID)
	if err != nil {
		log.Printf("Failed to scan course %d: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan signatures"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"duplicates": dups})
}

func (s *Server) Rings(c *gin.Context) {
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	rings, err := s.Attendance.Rings(c.Request.Context(), courseID)
	if err != nil {
		log.Printf("Failed to group rings for course %d: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to group signatures"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rings": rings})
}

func (s *Server) Suspicious(c *gin.Context) {
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	threshold := s.Attendance.SuspicionThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid threshold"})
			return
		}
		threshold = parsed
	}

	sigs, err := s.Attendance.Suspicious(c.Request.Context(), courseID, threshold)
	if err != nil {
		log.Printf("Failed to filter course %d: %v", courseID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to filter signatures"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signatures": sigs})
}

func (s *Server) SharedSigners(c *gin.Context) {
	studentID, ok := idParam(c, "studentId")
	if !ok {
		return
	}

	signers, err := s.Attendance.SharedSigners(c.Request.Context(), studentID)
	if errors.Is(err, core.ErrGraphDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Graph recording is disabled"})
		return
	}
	if err != nil {
		log.Printf("Failed to query shared signers for %d: %v", studentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query graph"})
		return
	}
	if signers == nil {
		signers = []driver.SharedSigner{}
	}

	c.JSON(http.StatusOK, gin.H{"students": signers})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func readUpload(c *gin.Context) (model.Upload, error) {
	fh, err := c.FormFile(signatureField)
	if err != nil {
		return model.Upload{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return model.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.Upload{}, err
	}
	return model.Upload{Filename: fh.Filename, Data: data}, nil
}
