package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=5000", MaxLimit, 0},
		{"?limit=-1&offset=-5", DefaultLimit, 0},
		{"?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := paramsFor(tt.query)
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("%q: got %+v, want limit %d offset %d", tt.query, p, tt.limit, tt.offset)
		}
	}
}

func TestPage(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	r := Page(items, Params{Limit: 2, Offset: 0})
	if got := r.Data.([]string); len(got) != 2 || got[0] != "a" || !r.HasMore || r.Total != 5 {
		t.Errorf("first page: %+v", r)
	}

	r = Page(items, Params{Limit: 2, Offset: 4})
	if got := r.Data.([]string); len(got) != 1 || got[0] != "e" || r.HasMore {
		t.Errorf("last page: %+v", r)
	}

	r = Page(items, Params{Limit: 2, Offset: 10})
	if got := r.Data.([]string); len(got) != 0 || r.Total != 5 {
		t.Errorf("past the end: %+v", r)
	}
}

func TestPage_EmptyIsNotNull(t *testing.T) {
	r := Page([]int{}, Params{Limit: DefaultLimit})
	if got, ok := r.Data.([]int); !ok || got == nil {
		t.Errorf("expected empty slice, got %#v", r.Data)
	}
}

func TestOffsets(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if p.NextOffset() != 15 {
		t.Errorf("NextOffset = %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("PreviousOffset = %d", p.PreviousOffset())
	}
	if !p.HasNext(16) || p.HasNext(15) {
		t.Error("HasNext boundary wrong")
	}
}
