package pagination

import "testing"

func TestNormalize(t *testing.T) {
	p := Params{Page: 0, Limit: 0}.Normalize()
	if p.Page != 1 || p.Limit != DefaultLimit {
		t.Fatalf("unexpected defaults: %+v", p)
	}

	p = Params{Page: 3, Limit: 500}.Normalize()
	if p.Limit != MaxLimit {
		t.Fatalf("limit should be capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("Offset = %d, want 20", got)
	}
}

func TestBuildMeta(t *testing.T) {
	meta := BuildMeta(Params{Page: 2, Limit: 10}, 25)
	if meta.TotalPages != 3 {
		t.Fatalf("TotalPages = %d, want 3", meta.TotalPages)
	}
	if meta.Page != 2 || meta.Total != 25 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}
