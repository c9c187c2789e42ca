package category

import (
	"context"
	"testing"
)

func testRouter() *Router {
	return NewRouter(
		Sets{
			Assignment: Set{"Homeworks", "Projects"},
			Content:    Set{"Lectures"},
			Logistics:  Set{"Exams", "Grading"},
			Worksheet:  Set{"Discussions"},
		},
		Indexes{
			Content:   IndexParams{Name: "content-index", TopK: 1},
			Logistics: IndexParams{Name: "logistics-index", TopK: 2},
			Worksheet: IndexParams{Name: "worksheet-index", TopK: 1},
		},
	)
}

func TestResolve_DecisionTable(t *testing.T) {
	router := testRouter()

	testCases := []struct {
		name           string
		label          string
		expectedRoute  Route
		expectHybrid   bool
		expectedIndex  string
		expectedRerank bool
		expectManual   bool
	}{
		{
			name:          "assignment category",
			label:         "Homeworks",
			expectedRoute: RouteAssignment,
			expectHybrid:  false,
			expectManual:  true,
		},
		{
			name:           "content category reranks",
			label:          "Lectures",
			expectedRoute:  RouteContent,
			expectHybrid:   true,
			expectedIndex:  "content-index",
			expectedRerank: true,
			expectManual:   false,
		},
		{
			name:           "logistics category does not rerank",
			label:          "Exams",
			expectedRoute:  RouteLogistics,
			expectHybrid:   true,
			expectedIndex:  "logistics-index",
			expectedRerank: false,
			expectManual:   false,
		},
		{
			name:           "worksheet category uses both paths",
			label:          "Discussions",
			expectedRoute:  RouteWorksheet,
			expectHybrid:   true,
			expectedIndex:  "worksheet-index",
			expectedRerank: true,
			expectManual:   true,
		},
		{
			name:          "unknown category",
			label:         "Off Topic",
			expectedRoute: RouteNone,
			expectHybrid:  false,
			expectManual:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := router.Resolve(tc.label)

			if d.Route != tc.expectedRoute {
				t.Errorf("Expected route %s, got %s", tc.expectedRoute, d.Route)
			}
			if tc.expectHybrid {
				if d.Hybrid == nil {
					t.Fatal("Expected a hybrid plan")
				}
				if d.Hybrid.Index != tc.expectedIndex {
					t.Errorf("Expected index %q, got %q", tc.expectedIndex, d.Hybrid.Index)
				}
				if d.Hybrid.SemanticReranking != tc.expectedRerank {
					t.Errorf("Expected semantic reranking %v, got %v", tc.expectedRerank, d.Hybrid.SemanticReranking)
				}
			} else if d.Hybrid != nil {
				t.Errorf("Expected no hybrid plan, got %+v", d.Hybrid)
			}
			if d.Manual != tc.expectManual {
				t.Errorf("Expected manual=%v, got %v", tc.expectManual, d.Manual)
			}
		})
	}
}

func TestResolve_PriorityOrderOnAmbiguousLabel(t *testing.T) {
	// The same label in every set must resolve as assignment: the check
	// order is assignment, content, logistics, worksheet.
	router := NewRouter(
		Sets{
			Assignment: Set{"Everything"},
			Content:    Set{"Everything"},
			Logistics:  Set{"Everything"},
			Worksheet:  Set{"Everything"},
		},
		Indexes{},
	)

	d := router.Resolve("Everything")
	if d.Route != RouteAssignment {
		t.Errorf("Ambiguous label should resolve to assignment, got %s", d.Route)
	}
	if !d.Manual {
		t.Error("Ambiguous label in worksheet set should still trigger manual retrieval")
	}

	// Content beats logistics and worksheet.
	router = NewRouter(
		Sets{
			Content:   Set{"Shared"},
			Logistics: Set{"Shared"},
			Worksheet: Set{"Shared"},
		},
		Indexes{Content: IndexParams{Name: "content-index", TopK: 1}},
	)
	if d := router.Resolve("Shared"); d.Route != RouteContent {
		t.Errorf("Expected content route, got %s", d.Route)
	}
}

func TestResolve_ManualIndependentOfRoute(t *testing.T) {
	// A label in both logistics and worksheet sets takes the logistics
	// generation branch but still runs manual retrieval via the union check.
	router := NewRouter(
		Sets{
			Logistics: Set{"Mixed"},
			Worksheet: Set{"Mixed"},
		},
		Indexes{Logistics: IndexParams{Name: "logistics-index", TopK: 1}},
	)

	d := router.Resolve("Mixed")
	if d.Route != RouteLogistics {
		t.Errorf("Expected logistics route, got %s", d.Route)
	}
	if !d.Manual {
		t.Error("Expected manual retrieval for worksheet-set member")
	}
	if d.Hybrid == nil || d.Hybrid.SemanticReranking {
		t.Error("Logistics branch must run hybrid retrieval without reranking")
	}
}

func TestStaticClassifier(t *testing.T) {
	c := StaticClassifier{Label: "Homeworks"}

	label, err := c.Classify(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if label != "Homeworks" {
		t.Errorf("Expected Homeworks, got %q", label)
	}
}

func TestKeywordClassifier(t *testing.T) {
	c := KeywordClassifier{
		Keywords: map[string][]string{
			"Exams":    {"midterm", "final", "exam"},
			"Lectures": {"lecture", "slides"},
		},
		Fallback: "Homeworks",
	}

	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "exam question", text: "When is the midterm exam?", expected: "Exams"},
		{name: "lecture question", text: "Where are the lecture slides?", expected: "Lectures"},
		{name: "no match falls back", text: "I am stuck on part b", expected: "Homeworks"},
		{name: "empty falls back", text: "   ", expected: "Homeworks"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			label, err := c.Classify(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if label != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, label)
			}
		})
	}
}
