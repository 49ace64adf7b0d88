// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// scoringPrompt asks the model to rate each candidate against the topic.
// The response contract is strict JSON so parsing stays mechanical.
const scoringPrompt = `You are a relevance scoring engine for an academic literature survey.
Rate how relevant each candidate paper is to the research topic on a scale from 0.0 (unrelated) to 1.0 (directly on-topic).

TOPIC: %s
%s
CANDIDATES (JSON array; judge from title and abstract):
%s

Return a JSON object with exactly one key:
  "scores" : array of {"index": int, "score": float}, one entry per candidate, in input order.

Rules:
- "index" is the candidate's zero-based position in the input array.
- "score" must be between 0.0 and 1.0.
- Do NOT include any text outside the JSON object.`

// OpenAIScorer scores candidate batches through the OpenAI chat API.
type OpenAIScorer struct {
	client *openai.Client
	model  string
}

// NewOpenAIScorer builds a scorer from scoring configuration.
func NewOpenAIScorer(cfg types.ScoringConfig) *OpenAIScorer {
	return &OpenAIScorer{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

// scoringCandidate is the trimmed candidate view sent to the model.
type scoringCandidate struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Abstract string `json:"abstract,omitempty"`
	Year     int    `json:"year,omitempty"`
}

// scoringResponse mirrors the model's JSON contract.
type scoringResponse struct {
	Scores []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"scores"`
}

// ScoreBatch sends one batch to the chat API and reassociates scores by
// index. A response missing entries fails the whole batch; the caller's
// degradation ladder handles it.
func (s *OpenAIScorer) ScoreBatch(ctx context.Context, cands []types.Candidate, topic string, questions []string) ([]Score, error) {
	if len(cands) == 0 {
		return nil, nil
	}

	view := make([]scoringCandidate, len(cands))
	for i, c := range cands {
		abstract := c.Abstract
		if len(abstract) > 1200 {
			abstract = abstract[:1200]
		}
		view[i] = scoringCandidate{Index: i, Title: c.Title, Abstract: abstract, Year: c.Year}
	}
	candJSON, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("encoding candidates: %w", err)
	}

	var questionBlock string
	if len(questions) > 0 {
		questionBlock = "CONTEXT QUESTIONS the survey must answer:\n- " + strings.Join(questions, "\n- ") + "\n"
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(scoringPrompt, topic, questionBlock, candJSON),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scoring API request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("scoring API returned no choices")
	}

	var parsed scoringResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing scoring response: %w", err)
	}

	// Reassociate by index; unseen indexes stay negative and degrade to
	// rejected per the failure ladder.
	scores := make([]Score, len(cands))
	for i, c := range cands {
		scores[i] = Score{ID: c.ID, Value: -1}
	}
	for _, entry := range parsed.Scores {
		if entry.Index < 0 || entry.Index >= len(cands) {
			continue
		}
		scores[entry.Index] = Score{ID: cands[entry.Index].ID, Value: entry.Score}
	}
	return scores, nil
}
