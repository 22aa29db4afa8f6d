package authoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Shyboy443/EduflexKotlin-sub004/internal/ai"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/authoring"
	"github.com/Shyboy443/EduflexKotlin-sub004/internal/education"
)

const questionsJSON = "```json\n" + `{
  "questions": [
    {"type": "multiple_choice", "text": "2 + 2?", "options": ["3", "4", "5"], "correct_answer": "4", "points": 1, "difficulty": "easy"},
    {"type": "multiple_choice", "text": "Broken", "options": ["3"], "correct_answer": "3"},
    {"type": "true_false", "text": "Zero is even.", "correct_answer": "true"},
    {"type": "short_answer", "text": "Name a prime.", "correct_answer": "2"}
  ]
}` + "\n```"

func newRouter(p ai.Provider) *ai.Router {
	r := ai.NewRouter()
	r.Register(p)
	return r
}

func TestGenerateQuestions(t *testing.T) {
	mock := ai.NewMockProvider(questionsJSON)
	h := newHarness(t, withAI(newRouter(mock)))
	ctx := context.Background()

	drafts, err := h.svc.GenerateQuestions(ctx, instructor, authoring.GenerateQuestionsRequest{
		Topic: "arithmetic",
		Count: 2,
	})
	if err != nil {
		t.Fatalf("GenerateQuestions() error = %v", err)
	}
	if len(drafts.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(drafts.Questions))
	}
	if drafts.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", drafts.Rejected)
	}
	if drafts.Questions[1].CorrectAnswer != "True" {
		t.Errorf("true/false draft not normalised: %+v", drafts.Questions[1])
	}
	if drafts.Provider != "mock" || drafts.Tokens == 0 {
		t.Errorf("drafts = %+v", drafts)
	}
	if drafts.TokensRemaining != nil {
		t.Errorf("TokensRemaining = %d, want nil for an unlimited budget", *drafts.TokensRemaining)
	}

	req := mock.LastRequest()
	if req == nil || !req.JSON || req.Task != ai.TaskQuestionDraft {
		t.Errorf("request = %+v", req)
	}

	// Drafts are not persisted.
	if types := h.events.Types(); len(types) != 1 || types[0] != authoring.EventDraftGenerated {
		t.Errorf("events = %v", types)
	}
}

func TestGenerateQuestions_TypeFilter(t *testing.T) {
	h := newHarness(t, withAI(newRouter(ai.NewMockProvider(questionsJSON))))

	drafts, err := h.svc.GenerateQuestions(context.Background(), instructor, authoring.GenerateQuestionsRequest{
		Topic: "arithmetic",
		Count: 5,
		Type:  education.ShortAnswer,
	})
	if err != nil {
		t.Fatalf("GenerateQuestions() error = %v", err)
	}
	if len(drafts.Questions) != 1 || drafts.Questions[0].Type != education.ShortAnswer {
		t.Errorf("questions = %+v", drafts.Questions)
	}
}

func TestGenerateQuestions_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.GenerateQuestions(ctx, instructor, authoring.GenerateQuestionsRequest{Topic: "x", Count: 1})
		if !errors.Is(err, authoring.ErrGenerationUnavailable) {
			t.Errorf("error = %v, want ErrGenerationUnavailable", err)
		}
	})

	t.Run("bad request", func(t *testing.T) {
		h := newHarness(t, withAI(newRouter(ai.NewMockProvider(questionsJSON))))
		_, err := h.svc.GenerateQuestions(ctx, instructor, authoring.GenerateQuestionsRequest{Topic: "x", Count: 21})
		wantValidation(t, err, "count")
	})

	t.Run("student", func(t *testing.T) {
		h := newHarness(t, withAI(newRouter(ai.NewMockProvider(questionsJSON))))
		_, err := h.svc.GenerateQuestions(ctx, student, authoring.GenerateQuestionsRequest{Topic: "x", Count: 1})
		if !errors.Is(err, authoring.ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
	})

	t.Run("schema mismatch", func(t *testing.T) {
		h := newHarness(t, withAI(newRouter(ai.NewMockProvider(`{"items": []}`))))
		_, err := h.svc.GenerateQuestions(ctx, instructor, authoring.GenerateQuestionsRequest{Topic: "x", Count: 1})
		if !errors.Is(err, authoring.ErrInvalidDraft) {
			t.Errorf("error = %v, want ErrInvalidDraft", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		h := newHarness(t, withAI(newRouter(ai.NewMockProvider("Sure! Here are some questions."))))
		_, err := h.svc.GenerateQuestions(ctx, instructor, authoring.GenerateQuestionsRequest{Topic: "x", Count: 1})
		if !errors.Is(err, authoring.ErrInvalidDraft) {
			t.Errorf("error = %v, want ErrInvalidDraft", err)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		mock := ai.NewMockProvider()
		mock.Err = errors.New("upstream 500")
		h := newHarness(t, withAI(newRouter(mock)))
		_, err := h.svc.GenerateQuestions(ctx, instructor, authoring.GenerateQuestionsRequest{Topic: "x", Count: 1})
		if err == nil || errors.Is(err, authoring.ErrInvalidDraft) {
			t.Errorf("error = %v, want provider error", err)
		}
	})
}

func TestGenerateQuestions_Budget(t *testing.T) {
	h := newHarness(t,
		withAI(newRouter(ai.NewMockProvider(questionsJSON))),
		withBudget(ai.NewMemoryBudget(50)),
	)
	ctx := context.Background()
	req := authoring.GenerateQuestionsRequest{Topic: "arithmetic", Count: 1}

	// The mock reports more than 50 tokens, so the first call spends the day's budget.
	if _, err := h.svc.GenerateQuestions(ctx, instructor, req); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	if _, err := h.svc.GenerateQuestions(ctx, instructor, req); !errors.Is(err, ai.ErrBudgetExceeded) {
		t.Errorf("second call error = %v, want ErrBudgetExceeded", err)
	}
	if _, err := h.svc.GenerateQuestions(ctx, admin, req); err != nil {
		t.Errorf("other users keep their budget, error = %v", err)
	}
}

func TestGenerate_TokensRemaining(t *testing.T) {
	h := newHarness(t,
		withAI(newRouter(ai.NewMockProvider(`{"title": "Sets", "body": "A set is a collection."}`))),
		withBudget(ai.NewMemoryBudget(10000)),
	)
	ctx := context.Background()

	first, err := h.svc.GenerateContent(ctx, instructor, authoring.GenerateContentRequest{Topic: "sets", Kind: "lesson"})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if first.TokensRemaining == nil || *first.TokensRemaining != int64(10000-first.Tokens) {
		t.Fatalf("TokensRemaining = %v, want %d", first.TokensRemaining, 10000-first.Tokens)
	}

	second, err := h.svc.GenerateContent(ctx, instructor, authoring.GenerateContentRequest{Topic: "sets", Kind: "summary"})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if want := int64(10000 - first.Tokens - second.Tokens); second.TokensRemaining == nil || *second.TokensRemaining != want {
		t.Errorf("TokensRemaining = %v, want %d", second.TokensRemaining, want)
	}
}

func TestGenerateContent(t *testing.T) {
	mock := ai.NewMockProvider(`Here you go: {"title": "Fractions", "body": "# Fractions\n\nA fraction is a part of a whole.", "duration_minutes": 12, "tags": ["Math", "fractions", "math"]}`)
	h := newHarness(t, withAI(newRouter(mock)))

	draft, err := h.svc.GenerateContent(context.Background(), instructor, authoring.GenerateContentRequest{
		Topic:  "fractions",
		Kind:   "Summary",
		Module: "Unit 2",
	})
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	item := draft.Item
	if item.Type != education.ContentText || item.IsPublished {
		t.Errorf("item = %+v", item)
	}
	if item.Title != "Fractions" || item.Module != "Unit 2" || item.DurationMinutes != 12 {
		t.Errorf("item = %+v", item)
	}
	if len(item.Tags) != 2 {
		t.Errorf("tags = %v, want [math fractions]", item.Tags)
	}

	_, err = h.svc.GenerateContent(context.Background(), instructor, authoring.GenerateContentRequest{Topic: "x", Kind: "poem"})
	wantValidation(t, err, "type")
}
