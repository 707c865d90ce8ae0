package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"geoguidego/pkg/cache"
	"geoguidego/pkg/request"
	"geoguidego/pkg/tracker"
)

func newTestClient(ts *httptest.Server) *Client {
	reqClient := request.New(&cache.Null{}, tracker.New(), 5*time.Second)
	c := NewClient(reqClient)
	c.APIEndpoint = ts.URL
	return c
}

func TestGetExtract(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "query" || q.Get("prop") != "extracts" {
			t.Errorf("unexpected query params: %v", q)
		}
		if q.Get("explaintext") != "1" {
			t.Error("explaintext not requested")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"pages":{"123":{"extract":"Красная площадь — главная площадь Москвы. Расположена в центре города."}}}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	extract, err := c.GetExtract(context.Background(), "Красная площадь", "ru")
	if err != nil {
		t.Fatalf("GetExtract failed: %v", err)
	}
	if extract == "" {
		t.Fatal("expected non-empty extract")
	}
}

func TestGetExtractMissingArticle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"missing":""}}}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	extract, err := c.GetExtract(context.Background(), "Nonexistent", "en")
	if err != nil {
		t.Fatalf("GetExtract failed: %v", err)
	}
	if extract != "" {
		t.Errorf("expected empty extract for missing article, got %q", extract)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		extract string
		max     int
		want    string
	}{
		{
			"two sentences",
			"First sentence. Second sentence. Third sentence.",
			2,
			"First sentence. Second sentence.",
		},
		{
			"fewer than max",
			"Only one sentence.",
			3,
			"Only one sentence.",
		},
		{
			"decimal not a boundary",
			"Tower is 3.5 meters tall. Built long ago. Extra.",
			1,
			"Tower is 3.5 meters tall.",
		},
		{
			"empty",
			"",
			2,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.extract, tt.max); got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnrichDescriptionFallsBack(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	got := c.EnrichDescription(context.Background(), "Anything", "original", "en")
	if got != "original" {
		t.Errorf("expected fallback to current description, got %q", got)
	}
}
