package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/ai"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/auth"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

const collDrafts = "drafts"

// GenerateQuestionsRequest asks for a batch of draft questions.
type GenerateQuestionsRequest struct {
	Topic      string                 `json:"topic" validate:"notblank,max=200"`
	Count      int                    `json:"count" validate:"min=1,max=20"`
	Difficulty education.Difficulty   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Type       education.QuestionType `json:"type" validate:"omitempty,oneof=multiple_choice true_false short_answer"`
}

// GenerateContentRequest asks for a draft text item. Kind is one of
// lesson, summary or outline.
type GenerateContentRequest struct {
	Topic  string `json:"topic" validate:"notblank,max=200"`
	Kind   string `json:"type" validate:"required,oneof=lesson summary outline"`
	Module string `json:"module" validate:"max=200"`
}

// QuestionDrafts are generated questions ready to be added to a quiz. They
// are not persisted. TokensRemaining is what is left of the caller's daily
// allowance, nil when the budget is unlimited.
type QuestionDrafts struct {
	Questions       []education.NewQuestion `json:"questions"`
	Rejected        int                     `json:"rejected"`
	Provider        string                  `json:"provider"`
	Tokens          int                     `json:"tokens"`
	TokensRemaining *int64                  `json:"tokens_remaining,omitempty"`
}

// ContentDraft is a generated content form. It is not persisted.
type ContentDraft struct {
	Item            education.NewContentItem `json:"item"`
	Provider        string                   `json:"provider"`
	Tokens          int                      `json:"tokens"`
	TokensRemaining *int64                   `json:"tokens_remaining,omitempty"`
}

const questionDraftSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type", "text", "correct_answer"],
        "properties": {
          "type": {"enum": ["multiple_choice", "true_false", "short_answer"]},
          "text": {"type": "string", "minLength": 1},
          "options": {"type": "array", "maxItems": 6, "items": {"type": "string"}},
          "correct_answer": {"type": "string"},
          "explanation": {"type": "string"},
          "points": {"type": "integer", "minimum": 1},
          "difficulty": {"enum": ["easy", "medium", "hard"]}
        }
      }
    }
  }
}`

const contentDraftSchema = `{
  "type": "object",
  "required": ["title", "body"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "body": {"type": "string", "minLength": 1},
    "duration_minutes": {"type": "integer", "minimum": 0},
    "tags": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	questionSchema = mustSchema(questionDraftSchema)
	contentSchema  = mustSchema(contentDraftSchema)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile draft schema: %v", err))
	}
	return schema
}

const questionSystemPrompt = `You write quiz questions for course instructors.
Answer with one JSON object of the form {"questions": [...]}.
Each question has: type (multiple_choice, true_false or short_answer), text,
options (multiple_choice only, 2 to 6 distinct strings), correct_answer
(for multiple_choice it must equal one of the options, for true_false it is
"True" or "False"), explanation, points (integer >= 1) and difficulty
(easy, medium or hard). Do not add any text outside the JSON.`

const contentSystemPrompt = `You write course material for instructors.
Answer with one JSON object with the fields title, body (markdown),
duration_minutes (estimated reading time, integer) and tags (up to five
short lowercase keywords). Do not add any text outside the JSON.`

// GenerateQuestions asks the AI gateway for draft questions. Drafts that
// fail the question rules are dropped and counted in Rejected.
func (s *Service) GenerateQuestions(ctx context.Context, actor auth.Actor, req GenerateQuestionsRequest) (QuestionDrafts, error) {
	if err := requireAuthor(actor); err != nil {
		return QuestionDrafts{}, err
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if err := s.validator.Struct(req); err != nil {
		return QuestionDrafts{}, err
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Write %d quiz questions about: %s.", req.Count, req.Topic)
	if req.Type != "" {
		fmt.Fprintf(&prompt, "\nEvery question must be of type %s.", req.Type)
	}
	if req.Difficulty != "" {
		fmt.Fprintf(&prompt, "\nDifficulty: %s.", req.Difficulty)
	}

	resp, raw, err := s.draft(ctx, actor, ai.TaskQuestionDraft, questionSystemPrompt, prompt.String(), questionSchema)
	if err != nil {
		return QuestionDrafts{}, err
	}

	var doc struct {
		Questions []education.NewQuestion `json:"questions"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return QuestionDrafts{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	out := QuestionDrafts{
		Questions: []education.NewQuestion{},
		Provider:  resp.Provider,
		Tokens:    resp.TotalTokens(),
	}
	for _, q := range doc.Questions {
		if len(out.Questions) == req.Count {
			break
		}
		if req.Type != "" && q.Type != req.Type {
			out.Rejected++
			continue
		}
		if q.Difficulty == "" {
			q.Difficulty = req.Difficulty
		}
		q = q.Normalize()
		if err := s.validator.Struct(q); err != nil {
			slog.Debug("dropping generated question", "topic", req.Topic, "error", err)
			out.Rejected++
			continue
		}
		out.Questions = append(out.Questions, q)
	}
	if len(out.Questions) == 0 {
		return QuestionDrafts{}, fmt.Errorf("%w: none of %d questions passed validation", ErrInvalidDraft, len(doc.Questions))
	}

	out.TokensRemaining = s.tokensRemaining(ctx, actor)

	s.emit(ctx, actor, EventDraftGenerated, collDrafts, s.newID(), map[string]any{
		"task":     ai.TaskQuestionDraft.String(),
		"topic":    req.Topic,
		"count":    len(out.Questions),
		"rejected": out.Rejected,
		"provider": out.Provider,
		"tokens":   out.Tokens,
	})
	return out, nil
}

// GenerateContent asks the AI gateway for a draft text content item.
func (s *Service) GenerateContent(ctx context.Context, actor auth.Actor, req GenerateContentRequest) (ContentDraft, error) {
	if err := requireAuthor(actor); err != nil {
		return ContentDraft{}, err
	}
	req.Topic = strings.TrimSpace(req.Topic)
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	if err := s.validator.Struct(req); err != nil {
		return ContentDraft{}, err
	}

	var prompt string
	switch req.Kind {
	case "summary":
		prompt = "Write a concise summary (at most 300 words) of: " + req.Topic
	case "outline":
		prompt = "Write a lesson outline as a nested markdown list for: " + req.Topic
	default:
		prompt = "Write a complete lesson with headings and examples about: " + req.Topic
	}

	resp, raw, err := s.draft(ctx, actor, ai.TaskContentDraft, contentSystemPrompt, prompt, contentSchema)
	if err != nil {
		return ContentDraft{}, err
	}

	var doc struct {
		Title           string   `json:"title"`
		Body            string   `json:"body"`
		DurationMinutes int      `json:"duration_minutes"`
		Tags            []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ContentDraft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	item := normalizeContent(education.NewContentItem{
		Module:          strings.TrimSpace(req.Module),
		Title:           doc.Title,
		Type:            education.ContentText,
		Body:            strings.TrimSpace(doc.Body),
		DurationMinutes: doc.DurationMinutes,
		Tags:            doc.Tags,
	})
	if len(item.Tags) > 20 {
		item.Tags = item.Tags[:20]
	}
	if err := s.validator.Struct(item); err != nil {
		return ContentDraft{}, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}

	out := ContentDraft{
		Item:            item,
		Provider:        resp.Provider,
		Tokens:          resp.TotalTokens(),
		TokensRemaining: s.tokensRemaining(ctx, actor),
	}
	s.emit(ctx, actor, EventDraftGenerated, collDrafts, s.newID(), map[string]any{
		"task":     ai.TaskContentDraft.String(),
		"topic":    req.Topic,
		"kind":     req.Kind,
		"provider": out.Provider,
		"tokens":   out.Tokens,
	})
	return out, nil
}

// draft runs one budgeted JSON completion and returns the answer once it
// matches schema.
func (s *Service) draft(ctx context.Context, actor auth.Actor, task ai.TaskType, system, prompt string, schema *gojsonschema.Schema) (ai.CompletionResponse, []byte, error) {
	if s.ai == nil {
		return ai.CompletionResponse{}, nil, ErrGenerationUnavailable
	}
	if err := s.budget.Check(ctx, actor.ID); err != nil {
		return ai.CompletionResponse{}, nil, err
	}

	resp, err := s.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   4096,
		Temperature: 0.4,
		Task:        task,
		JSON:        true,
	})
	if err != nil {
		if errors.Is(err, ai.ErrNoProvider) {
			return ai.CompletionResponse{}, nil, ErrGenerationUnavailable
		}
		return ai.CompletionResponse{}, nil, fmt.Errorf("generate %s: %w", task, err)
	}

	if err := s.budget.Record(ctx, actor.ID, resp.TotalTokens()); err != nil {
		slog.Warn("failed to record token usage",
			"user_id", actor.ID,
			"tokens", resp.TotalTokens(),
			"error", err,
		)
	}

	raw := []byte(extractJSON(resp.Content))
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return ai.CompletionResponse{}, nil, fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return ai.CompletionResponse{}, nil, fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(msgs, "; "))
	}

	slog.Info("draft generated",
		"task", task.String(),
		"user_id", actor.ID,
		"provider", resp.Provider,
		"model", resp.Model,
		"tokens", resp.TotalTokens(),
	)
	return resp, raw, nil
}

// tokensRemaining reads the actor's allowance left for today.
func (s *Service) tokensRemaining(ctx context.Context, actor auth.Actor) *int64 {
	used, limit, err := s.budget.Usage(ctx, actor.ID)
	if err != nil {
		slog.Warn("failed to read token usage", "user_id", actor.ID, "error", err)
		return nil
	}
	if limit <= 0 {
		return nil
	}
	left := max(limit-used, 0)
	return &left
}

// extractJSON strips markdown code fences and any prose around the
// outermost JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}
