package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
)

// Generator is the part of the genai models API used here. *genai.Models
// satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	APIKey         string
	AnalysisModel  string
	FallbackModel  string
	SpeechModel    string
	Voice          string
	SpeechMaxChars int
}

// Client implements text analysis and speech synthesis on Gemini. A Client
// without a generator reports a missing credential on every call.
type Client struct {
	gen  Generator
	opts Options
	log  logger.Logger
}

// New connects to the Gemini API. An empty APIKey is not an error: the
// returned client simply has no generator.
func New(ctx context.Context, opts Options, log logger.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return NewWithGenerator(nil, opts, log), nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewWithGenerator(client.Models, opts, log), nil
}

func NewWithGenerator(gen Generator, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.AnalysisModel == "" {
		opts.AnalysisModel = "gemini-3-pro-preview"
	}
	if opts.FallbackModel == "" {
		opts.FallbackModel = "gemini-3-flash-preview"
	}
	if opts.SpeechModel == "" {
		opts.SpeechModel = "gemini-2.5-flash-preview-tts"
	}
	if opts.Voice == "" {
		opts.Voice = "Zephyr"
	}
	if opts.SpeechMaxChars <= 0 {
		opts.SpeechMaxChars = 5000
	}
	return &Client{gen: gen, opts: opts, log: log}
}

func (c *Client) Configured() bool {
	return c.gen != nil
}
