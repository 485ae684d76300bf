// Package speech adapts speech-to-text services for voice queries. The
// pipeline itself only sees the Transcriber interface.
package speech

import (
	"context"
	"errors"
)

var ErrTranscriptionFailed = errors.New("TRANSCRIPTION_FAILED")

// Request carries one utterance recording.
type Request struct {
	AudioBase64 string `json:"audio"`
	Format      string `json:"format"`
	Language    string `json:"language"`
}

// Transcript is the recognizer output. Confidence is in [0, 1].
type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}
