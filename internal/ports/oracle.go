package ports

import "context"

type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
}

// Completer is the external text-completion capability. Its answers are untrusted
// and must be parsed strictly by callers.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
