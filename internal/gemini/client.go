package gemini

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	genai "google.golang.org/genai"
)

// Client implements Service on top of the Gemini Files and Models APIs.
type Client struct {
	client *genai.Client
}

// NewClient builds a Gemini-backed Service. The API key is an explicit
// precondition; callers must not construct a client and hope.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: c}, nil
}

func (c *Client) Stage(ctx context.Context, path, mimeType string) (FileHandle, error) {
	f, err := c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return FileHandle{}, fmt.Errorf("upload to gemini: %w", err)
	}
	log.Debug().Str("file", f.Name).Str("state", string(f.State)).Msg("staged document")
	return toHandle(f), nil
}

func (c *Client) Status(ctx context.Context, name string) (FileHandle, error) {
	f, err := c.client.Files.Get(ctx, name, nil)
	if err != nil {
		return FileHandle{}, fmt.Errorf("fetch file status: %w", err)
	}
	return toHandle(f), nil
}

func (c *Client) Generate(ctx context.Context, model string, file FileHandle, prompt string) (Generation, error) {
	content := genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromURI(file.URI, file.MIMEType),
		genai.NewPartFromText(prompt),
	}, genai.RoleUser)

	resp, err := c.client.Models.GenerateContent(ctx, model, []*genai.Content{content},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return Generation{}, err
	}

	gen := Generation{Text: resp.Text()}
	if gen.Text == "" && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		gen.BlockReason = string(resp.PromptFeedback.BlockReason)
	}
	return gen, nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	if _, err := c.client.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("delete staged file %s: %w", name, err)
	}
	return nil
}

// ListModels returns the model identifiers reachable with the configured
// credentials. Used only as a diagnostic when every candidate is rejected.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return names, err
		}
		names = append(names, m.Name)
	}
	return names, nil
}

func toHandle(f *genai.File) FileHandle {
	h := FileHandle{Name: f.Name, URI: f.URI, MIMEType: f.MIMEType}
	switch f.State {
	case genai.FileStateProcessing:
		h.State = StateProcessing
	case genai.FileStateActive:
		h.State = StateActive
	case genai.FileStateFailed:
		h.State = StateFailed
	default:
		h.State = FileState(f.State)
	}
	return h
}
