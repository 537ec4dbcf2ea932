package humastar

import (
	"reflect"
	"testing"
)

func TestPage(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	p := Page(items, 3, 3)
	if p.Total != 7 || !reflect.DeepEqual(p.Data, []int{3, 4, 5}) {
		t.Fatalf("page = %+v", p)
	}
	want := []string{
		`</x?offset=0&limit=3>; rel="first"`,
		`</x?offset=0&limit=3>; rel="prev"`,
		`</x?offset=6&limit=3>; rel="next"`,
		`</x?offset=6&limit=3>; rel="last"`,
	}
	if got := p.PaginationLinks("/x"); !reflect.DeepEqual(got, want) {
		t.Fatalf("links = %q", got)
	}

	if p := Page(items, 20, 3); len(p.Data) != 0 || p.Offset != 7 {
		t.Fatalf("past-the-end page = %+v", p)
	}
	if p := Page([]int{}, 0, 10); p.PaginationLinks("/x")[1] != `</x?offset=0&limit=10>; rel="last"` {
		t.Fatalf("empty links = %q", p.PaginationLinks("/x"))
	}
}

func TestActionsFor(t *testing.T) {
	got := ActionsFor("my region.json", []ActionDef{
		{Rel: "load", Pattern: "/api/v1/regions/%s/load", Method: "POST", Title: "Load region"},
	})
	want := `</api/v1/regions/my%20region.json/load>; rel="load"; method="POST"; title="Load region"`
	if len(got) != 1 || got[0].LinkHeader() != want {
		t.Fatalf("actions = %+v", got)
	}
}

func TestParseLinkHeader(t *testing.T) {
	rel, href := parseLinkHeader(`</api/v1/regions>; rel="collection"`)
	if rel != "collection" || href != "/api/v1/regions" {
		t.Fatalf("rel=%q href=%q", rel, href)
	}
	if rel, _ := parseLinkHeader("garbage"); rel != "" {
		t.Fatalf("rel=%q, want empty", rel)
	}
}

func TestSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"bucketsize": 4, "reducer": "max", "scale": 1.5}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Int("bucketsize") != 4 || s.String("reducer") != "max" || s.Float("scale") != 1.5 {
		t.Fatalf("signals = %v", s)
	}
	if s.Has("missing") || s.Int("reducer") != 0 {
		t.Fatal("missing or mistyped signals should read as zero")
	}
	if _, err := (&SignalsInput{RawBody: []byte("{")}).MustParse(); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSignalsWholeInt(t *testing.T) {
	s, err := ParseSignals([]byte(`{"whole": 4, "fraction": 2.5, "text": "4", "huge": 1e300}`))
	if err != nil {
		t.Fatal(err)
	}
	if n, err := s.WholeInt("whole"); err != nil || n != 4 {
		t.Fatalf("whole = %d, %v", n, err)
	}
	for _, key := range []string{"fraction", "text", "huge", "missing"} {
		if _, err := s.WholeInt(key); err == nil {
			t.Errorf("%s: expected error", key)
		}
	}
}
