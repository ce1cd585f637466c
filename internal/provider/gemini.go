package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ClientSource is a TTL-scoped handle to a genai client.
//
// The underlying client embeds an API key whose rotation window is bounded
// upstream, so the client is rebuilt once the TTL elapses. The handle is
// owned by the caller and passed into consumers explicitly; nothing in this
// package reaches for ambient globals.
//
// Safe for concurrent use.
type ClientSource struct {
	apiKey string
	ttl    time.Duration
	now    func() time.Time // injectable for tests

	mu      sync.Mutex
	client  *genai.Client
	expires time.Time
}

// NewClientSource creates a TTL-scoped client handle.
// ttl <= 0 defaults to one hour.
func NewClientSource(apiKey string, ttl time.Duration) *ClientSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ClientSource{
		apiKey: apiKey,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Client returns a live client, rebuilding it when the TTL has elapsed.
func (s *ClientSource) Client(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil && s.now().Before(s.expires) {
		return s.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	s.client = client
	s.expires = s.now().Add(s.ttl)
	return s.client, nil
}

// GeminiConfig contains required parameters for the Gemini provider.
type GeminiConfig struct {
	Source    *ClientSource
	ModelName string
	Logger    *slog.Logger

	// Limiter throttles provider calls (nil = default 10 req/s, burst 30).
	Limiter *rate.Limiter
}

// Gemini implements Provider against the Gemini API.
type Gemini struct {
	source    *ClientSource
	modelName string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(cfg GeminiConfig) (*Gemini, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("client source is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	return &Gemini{
		source:    cfg.Source,
		modelName: cfg.ModelName,
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Generate sends the transcript plus tool declarations to Gemini and
// returns the first candidate's content parts.
func (g *Gemini) Generate(ctx context.Context, transcript []Entry, decls []Declaration) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	client, err := g.source.Client(ctx)
	if err != nil {
		return nil, err
	}

	contents := toGenaiContents(transcript)
	cfg := &genai.GenerateContentConfig{}
	if len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toGenaiDeclarations(decls)}}
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	g.logger.Debug("provider exchange",
		"model", g.modelName,
		"entries", len(transcript),
		"elapsed", time.Since(start),
	)

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}

	return &Response{Parts: fromGenaiParts(resp.Candidates[0].Content.Parts)}, nil
}

// toGenaiContents converts the domain transcript to SDK content.
// The tool role maps to "user" on the wire: Gemini expects function
// responses inside a user turn.
func toGenaiContents(transcript []Entry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(transcript))
	for _, e := range transcript {
		role := genai.RoleUser
		if e.Role == RoleModel {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(e.Parts))
		for _, p := range e.Parts {
			parts = append(parts, toGenaiPart(p))
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

func toGenaiPart(p Part) *genai.Part {
	out := &genai.Part{ThoughtSignature: p.Signature}
	switch {
	case p.Call != nil:
		out.FunctionCall = &genai.FunctionCall{
			Name: p.Call.Name,
			Args: p.Call.Args,
		}
	case p.Result != nil:
		out.FunctionResponse = &genai.FunctionResponse{
			Name:     p.Result.Name,
			Response: p.Result.Response,
		}
	default:
		out.Text = p.Text
	}
	return out
}

func fromGenaiParts(parts []*genai.Part) []Part {
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		dp := Part{Signature: p.ThoughtSignature}
		switch {
		case p.FunctionCall != nil:
			dp.Call = &FunctionCall{
				Name: p.FunctionCall.Name,
				Args: p.FunctionCall.Args,
			}
		case p.FunctionResponse != nil:
			dp.Result = &FunctionResult{
				Name:     p.FunctionResponse.Name,
				Response: p.FunctionResponse.Response,
			}
		case p.Thought:
			// Internal reasoning text is not part of the transcript.
			continue
		default:
			dp.Text = p.Text
		}
		out = append(out, dp)
	}
	return out
}

func toGenaiDeclarations(decls []Declaration) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toGenaiSchema(d.Parameters),
		})
	}
	return out
}

// toGenaiSchema converts the JSON Schema subset used by tool declarations
// (object/string types, enums, descriptions, required) to the SDK schema.
func toGenaiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Description: s.Description}

	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
		if len(s.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(s.Properties))
			for name, prop := range s.Properties {
				out.Properties[name] = toGenaiSchema(prop)
			}
		}
		out.Required = s.Required
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}

	for _, v := range s.Enum {
		if str, ok := v.(string); ok {
			out.Enum = append(out.Enum, str)
		}
	}
	return out
}
