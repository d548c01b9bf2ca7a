package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
)

func (c *Client) analysisConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.5),
		TopP:              genai.Ptr[float32](0.9),
	}
}

// Analyze asks the analysis model, then the fallback model once, for an
// audit of the request's section. The result is cleaned of markdown markers.
func (c *Client) Analyze(ctx context.Context, req audit.AnalysisRequest) (string, error) {
	if c.gen == nil {
		return "", audit.ErrMissingCredential
	}
	prompt := analysisPrompt(req)
	details := map[string]any{"document": req.DocumentID, "topic": req.Topic, "model": c.opts.AnalysisModel}

	text, err := c.generateText(ctx, c.opts.AnalysisModel, prompt)
	if err != nil {
		details["error"] = err.Error()
		c.log.Warn("gemini", "primary model failed, retrying on fallback", details)

		details["model"] = c.opts.FallbackModel
		text, err = c.generateText(ctx, c.opts.FallbackModel, prompt)
		if err != nil {
			details["error"] = err.Error()
			c.log.Error("gemini", "fallback model failed", details)
			return "", fmt.Errorf("%w: %v", audit.ErrAnalysisFailed, err)
		}
	}
	return cleanResponse(text), nil
}

func (c *Client) generateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.gen.GenerateContent(ctx, model, genai.Text(prompt), c.analysisConfig())
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response")
	}
	return resp.Text(), nil
}
