// Package server is the HTTP surface of the copilot: query processing,
// voice transcription, and health.
package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	commonerrors "cctns-copilot/internal/common/errors"
	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/pipeline"
	"cctns-copilot/internal/speech"
	"cctns-copilot/internal/translate"
)

// Options wires the router's collaborators. HealthCheck reports dependency
// states by name ("ok" or an error string).
type Options struct {
	Pipeline      *pipeline.Pipeline
	Transcriber   speech.Transcriber
	Translator    translate.Translator
	Logger        logger.Logger
	QueryLanguage string
	STTThreshold  float64
	HealthCheck   func() map[string]string
}

func Router(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(opts.Logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	h := &Handler{
		pipeline:      opts.Pipeline,
		transcriber:   opts.Transcriber,
		translator:    opts.Translator,
		errors:        commonerrors.NewErrorHandler(opts.Logger),
		logger:        opts.Logger,
		queryLanguage: opts.QueryLanguage,
		sttThreshold:  opts.STTThreshold,
		health:        opts.HealthCheck,
	}

	api := r.Group("/api")
	{
		api.POST("/query/process", h.ProcessQuery)
		api.POST("/voice/transcribe", h.TranscribeAndProcess)
		api.GET("/health", h.Health)
	}

	return r
}
