package pipeline

import (
	"context"

	"dualsub/internal/audio"
)

// Segment is one transcribed and translated sentence. Start and End are
// seconds; the JSON names match the transcription service's schema.
type Segment struct {
	ID             string  `json:"id"`
	Start          float64 `json:"startTime"`
	End            float64 `json:"endTime"`
	OriginalText   string  `json:"originalText"`
	TranslatedText string  `json:"translatedText"`
}

// Transcriber sends one audio payload to the transcription service and returns
// its segments with times relative to the start of that payload.
type Transcriber interface {
	Transcribe(ctx context.Context, blob audio.Blob) ([]Segment, error)
}

// TranscriberFunc adapts a function to the Transcriber interface.
type TranscriberFunc func(ctx context.Context, blob audio.Blob) ([]Segment, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, blob audio.Blob) ([]Segment, error) {
	return f(ctx, blob)
}

// Input is the user-supplied media file.
type Input struct {
	Name     string
	MIMEType string
	Data     []byte
}
