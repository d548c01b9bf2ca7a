package audit

import (
	"context"

	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

// AnalysisRequest grounds one expert answer in a section's raw text.
// Question carries either a follow-up question or a steering directive.
type AnalysisRequest struct {
	DocumentID string
	Topic      catalog.Topic
	BaseText   string
	Question   string
}

// TextAnalyzer returns analysis markup. ErrMissingCredential signals that no
// call was attempted; any other error is a total failure.
type TextAnalyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
}

// SpeechSynthesizer narrates plain text. A nil buffer means no narration and
// is never an error for callers.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, plainText string) *playback.Buffer
}
