package insight

import "context"

// Client is a minimal text-generation interface. The insight generator only
// needs single-shot completion — no history, no tools.
type Client interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}
