package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/usecase/search"
)

const rerankSystemPrompt = "You are a documentation search reranker. " +
	"Given a query and a numbered list of candidate documents, reply with a JSON array " +
	"of the candidate indices ordered from most to least relevant. Include every index " +
	"exactly once. Reply with the JSON array only."

// Reranker is a chat-style relevance oracle on an OpenAI-compatible API. It
// returns the raw index order the model produced; validating it as a
// permutation is the search service's job.
type Reranker struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// RerankerConfig holds the reranking oracle settings.
type RerankerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewReranker creates a chat-based reranker.
func NewReranker(cfg *RerankerConfig) *Reranker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reranker{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

var _ search.Reranker = (*Reranker)(nil)

// Rerank asks the oracle for a relevance ordering of the candidates.
func (r *Reranker) Rerank(
	ctx context.Context, query string, candidates []search.Candidate,
) ([]int, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rerankSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: rerankUserMessage(query, candidates)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("rerank completion: empty response")
	}

	perm, err := extractIndexArray(resp.Choices[0].Message.Content)
	if err != nil {
		r.logger.Debug("Unparseable rerank response",
			zap.String("content", resp.Choices[0].Message.Content), zap.Error(err))
		return nil, err
	}
	return perm, nil
}

// rerankUserMessage enumerates the candidates under the query.
func rerankUserMessage(query string, candidates []search.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i, c.Title, c.Content)
	}
	return b.String()
}

// extractIndexArray pulls the first JSON array of integers out of free text.
// Models wrap answers in prose or code fences often enough that a plain
// json.Unmarshal of the whole content is not good enough.
func extractIndexArray(content string) ([]int, error) {
	start := strings.IndexByte(content, '[')
	if start < 0 {
		return nil, fmt.Errorf("no JSON array in rerank response")
	}
	end := strings.IndexByte(content[start:], ']')
	if end < 0 {
		return nil, fmt.Errorf("unterminated JSON array in rerank response")
	}

	var perm []int
	if err := json.Unmarshal([]byte(content[start:start+end+1]), &perm); err != nil {
		return nil, fmt.Errorf("parse rerank response: %w", err)
	}
	if len(perm) == 0 {
		return nil, fmt.Errorf("empty index array in rerank response")
	}
	return perm, nil
}
