package api

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ensemble-cli/ensemble/internal/claude"
)

// Runner executes agent requests through the Anthropic API instead of
// the claude CLI. It performs a single Messages call per request, so
// unlike the CLI executor it cannot create files in the workspace;
// results carry the response text only.
type Runner struct {
	client *Client
}

var _ claude.Runner = (*Runner)(nil)

// NewRunner creates an API-backed runner.
func NewRunner(client *Client) *Runner {
	return &Runner{client: client}
}

// Run sends the request as one Messages call and returns the response text.
func (r *Runner) Run(ctx context.Context, req claude.RunRequest) (*claude.RunResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := r.client.Model()
	if req.Model != "" {
		model = r.client.translate(resolveModel(req.Model))
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}

	start := time.Now()
	resp, err := r.client.inner.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("execution timed out after %s", req.Timeout)
		}
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	r.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text string
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += variant.Text
		}
	}

	return &claude.RunResult{
		Output:     text,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Cost:       EstimateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Duration:   time.Since(start),
	}, nil
}
