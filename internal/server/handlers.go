package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	commonerrors "cctns-copilot/internal/common/errors"
	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/pipeline"
	"cctns-copilot/internal/speech"
	"cctns-copilot/internal/translate"
)

type Handler struct {
	pipeline    *pipeline.Pipeline
	transcriber speech.Transcriber
	translator  translate.Translator
	errors      *commonerrors.ErrorHandler
	logger      logger.Logger

	queryLanguage string
	sttThreshold  float64
	health        func() map[string]string
}

type queryRequest struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

type voiceRequest struct {
	AudioBase64 string `json:"audio" binding:"required"`
	Format      string `json:"format"`
	Language    string `json:"language"`
	Locale      string `json:"locale"`
}

// ProcessQuery answers a typed natural-language question.
func (h *Handler) ProcessQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	rid := c.GetString(RequestIDHeader)
	resp, err := h.runPipeline(c, rid, req.Text, req.Language, req.Locale, 1)
	if err != nil {
		status, apiErr := h.errors.HandleRequestError(rid, err)
		c.JSON(status, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TranscribeAndProcess answers a voice question: transcribe, translate to
// the query language when needed, then run the text pipeline.
func (h *Handler) TranscribeAndProcess(c *gin.Context) {
	var req voiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio is required"})
		return
	}

	rid := c.GetString(RequestIDHeader)

	transcript, err := h.transcriber.Transcribe(c.Request.Context(), speech.Request{
		AudioBase64: req.AudioBase64,
		Format:      req.Format,
		Language:    req.Language,
	})
	if err != nil {
		status, apiErr := h.errors.HandleRequestError(rid, commonerrors.NewTranscriptionFailedError(err))
		c.JSON(status, apiErr)
		return
	}
	if transcript.Confidence < h.sttThreshold {
		h.logger.Warn("low-confidence transcript, proceeding best-effort", map[string]interface{}{
			"requestId":  rid,
			"confidence": transcript.Confidence,
		})
	}

	text := transcript.Text
	if transcript.Language != "" && transcript.Language != h.queryLanguage {
		text, err = h.translator.Translate(c.Request.Context(), text, transcript.Language, h.queryLanguage)
		if err != nil {
			status, apiErr := h.errors.HandleRequestError(rid,
				commonerrors.NewTranslationFailedError(transcript.Language+"->"+h.queryLanguage, err))
			c.JSON(status, apiErr)
			return
		}
	}

	resp, err := h.runPipeline(c, rid, text, transcript.Language, req.Locale, transcript.Confidence)
	if err != nil {
		status, apiErr := h.errors.HandleRequestError(rid, err)
		c.JSON(status, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transcript": transcript,
		"response":   resp,
	})
}

// Health reports the service and its dependency states.
func (h *Handler) Health(c *gin.Context) {
	deps := map[string]string{}
	if h.health != nil {
		deps = h.health()
	}

	status := http.StatusOK
	overall := "ok"
	for _, state := range deps {
		if state != "ok" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			break
		}
	}
	c.JSON(status, gin.H{"status": overall, "dependencies": deps})
}

func (h *Handler) runPipeline(c *gin.Context, rid, text, language, locale string, confidence float64) (*pipeline.Response, error) {
	return h.pipeline.Process(c.Request.Context(), &pipeline.Request{
		RequestID:  rid,
		Text:       text,
		Language:   language,
		Locale:     locale,
		Confidence: confidence,
	})
}
