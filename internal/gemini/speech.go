package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/cliniquerisimed-lab/jongwane/internal/playback"
)

var errNoAudio = errors.New("no inline audio in response")

// Synthesize narrates plain text. Every failure, a missing credential
// included, yields nil.
func (c *Client) Synthesize(ctx context.Context, plain string) *playback.Buffer {
	if c.gen == nil || strings.TrimSpace(plain) == "" {
		return nil
	}
	pcm, err := c.synthesize(ctx, plain)
	if err != nil {
		c.log.Warn("gemini", "speech synthesis failed", map[string]any{
			"model": c.opts.SpeechModel,
			"error": err.Error(),
		})
		return nil
	}
	return playback.NewNarrationBuffer(pcm)
}

func (c *Client) synthesize(ctx context.Context, plain string) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.opts.Voice},
			},
		},
	}
	resp, err := c.gen.GenerateContent(ctx, c.opts.SpeechModel, genai.Text(narrationPrompt(plain, c.opts.SpeechMaxChars)), cfg)
	if err != nil {
		return nil, err
	}
	return inlineAudio(resp)
}

func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errNoAudio
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, errNoAudio
}
