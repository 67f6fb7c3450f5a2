package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edvance/edvance-lms/internal/config"
	"github.com/edvance/edvance-lms/internal/course"
)

func engineDefaults() config.EngineConfig {
	return config.EngineConfig{
		AttemptLimit:       3,
		PassThreshold:      0.5,
		QuizSize:           10,
		ViolationThreshold: 3,
	}
}

func TestUpsertCourseAppliesEngineDefaults(t *testing.T) {
	store := course.NewInMemoryStore()
	h := UpsertCourseHandler(store, engineDefaults())

	req := httptest.NewRequest("POST", "/courses", strings.NewReader(`{"id":"c1","title":"Networks"}`))
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var got course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.AttemptLimit != 3 || got.PassThreshold != 0.5 || got.QuizSize != 10 {
		t.Fatalf("engine defaults not applied: %+v", got)
	}
	if got.Rule != course.RuleBoth {
		t.Fatalf("completion rule default missing: %q", got.Rule)
	}

	stored, err := store.GetCourse(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if stored.QuizSize != 10 {
		t.Fatalf("stored quiz size %d, want the default 10 (0 would serve the whole pool)", stored.QuizSize)
	}
	if stored.AttemptLimit != 3 || stored.PassThreshold != 0.5 {
		t.Fatalf("stored knobs %+v", stored)
	}
}

func TestUpsertCourseKeepsExplicitKnobs(t *testing.T) {
	store := course.NewInMemoryStore()
	h := UpsertCourseHandler(store, engineDefaults())

	body := `{"id":"c2","title":"Algorithms","attempt_limit":5,"pass_threshold":0.7,"quiz_size":15,"completion_rule":"quiz"}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/courses", strings.NewReader(body)))
	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := store.GetCourse(context.Background(), "c2")
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if stored.AttemptLimit != 5 || stored.PassThreshold != 0.7 || stored.QuizSize != 15 {
		t.Fatalf("explicit knobs overwritten: %+v", stored)
	}
	if stored.Rule != course.RuleQuiz {
		t.Fatalf("rule %q, want quiz", stored.Rule)
	}
}
