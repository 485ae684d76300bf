package speech

import "context"

// MockTranscriber returns a fixed transcript, for tests and local runs
// without an STT service.
type MockTranscriber struct {
	Transcript Transcript
	Err        error
}

func (m MockTranscriber) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := m.Transcript
	if out.Language == "" {
		out.Language = req.Language
	}
	return &out, nil
}
