package scanindex

import (
	"fmt"
	"testing"
)

// testIndex builds an in-memory index from (name, category) pairs with
// synthetic offsets 1000 bytes apart.
func testIndex(entries ...[2]string) *Index {
	var sections []*Section
	for i, e := range entries {
		cat, _ := ParseCategory(e[1])
		sections = append(sections, &Section{
			Name:        e[0],
			Type:        cat,
			StartOffset: int64(i * 1000),
			EndOffset:   int64((i + 1) * 1000),
			Priority:    PriorityTop,
			Metadata:    map[string]string{MetaPatternType: "banner"},
		})
	}
	return newIndex("test-bundle", int64(len(entries)*1000), sections, nil)
}

func TestSearchSectionsPagination(t *testing.T) {
	entries := make([][2]string, 0, 25)
	for i := 0; i < 25; i++ {
		entries = append(entries, [2]string{fmt.Sprintf("interface eth%d stats", i), "network"})
	}
	ix := testIndex(entries...)

	t.Run("first page", func(t *testing.T) {
		res := ix.SearchSections("interface", nil, 1, 10)
		if res.TotalCount != 25 || res.TotalPages != 3 {
			t.Errorf("got total=%d pages=%d, want 25/3", res.TotalCount, res.TotalPages)
		}
		if len(res.Sections) != 10 {
			t.Errorf("page 1 size %d, want 10", len(res.Sections))
		}
		if !res.HasNext || res.HasPrev {
			t.Errorf("page 1 flags next=%v prev=%v", res.HasNext, res.HasPrev)
		}
	})

	t.Run("last page", func(t *testing.T) {
		res := ix.SearchSections("interface", nil, 3, 10)
		if len(res.Sections) != 5 {
			t.Errorf("page 3 size %d, want 5", len(res.Sections))
		}
		if res.HasNext || !res.HasPrev {
			t.Errorf("page 3 flags next=%v prev=%v", res.HasNext, res.HasPrev)
		}
	})

	t.Run("beyond last page", func(t *testing.T) {
		res := ix.SearchSections("interface", nil, 9, 10)
		if len(res.Sections) != 0 {
			t.Errorf("expected empty page, got %d hits", len(res.Sections))
		}
		if res.TotalCount != 25 {
			t.Errorf("total should still be 25, got %d", res.TotalCount)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		cat := Security
		res := ix.SearchSections("interface", &cat, 1, 10)
		if res.TotalCount != 0 {
			t.Errorf("expected no security hits, got %d", res.TotalCount)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		res := ix.SearchSections("INTERFACE", nil, 1, 10)
		if res.TotalCount != 25 {
			t.Errorf("search should be case-insensitive, got %d hits", res.TotalCount)
		}
	})

	t.Run("defaults for bad paging args", func(t *testing.T) {
		res := ix.SearchSections("interface", nil, 0, 0)
		if res.Page != 1 || res.PageSize != DefaultPageSize {
			t.Errorf("got page=%d size=%d, want 1/%d", res.Page, res.PageSize, DefaultPageSize)
		}
	})
}

func TestFindSectionsContaining(t *testing.T) {
	ix := testIndex(
		[2]string{"VPN Tunnel Status", "vpn"},
		[2]string{"vpn daemon log", "logs"},
		[2]string{"route table", "network"},
	)

	if got := len(ix.FindSectionsContaining("vpn", false)); got != 2 {
		t.Errorf("case-insensitive: got %d, want 2", got)
	}
	if got := len(ix.FindSectionsContaining("vpn", true)); got != 1 {
		t.Errorf("case-sensitive: got %d, want 1", got)
	}
	if got := len(ix.FindSectionsContaining("VPN", true)); got != 1 {
		t.Errorf("case-sensitive upper: got %d, want 1", got)
	}
}

func TestReclassifyRoundTrip(t *testing.T) {
	ix := testIndex(
		[2]string{"mystery dump", "unknown"},
		[2]string{"cpu report", "performance"},
	)
	before := ix.Stats()

	if !ix.ReclassifySection("mystery dump", Diagnostics) {
		t.Fatal("reclassify to diagnostics failed")
	}
	mid := ix.Stats()
	if mid.PerCategory[Diagnostics] != 1 || mid.PerCategory[Unknown] != 0 {
		t.Errorf("counts after reclassify: %v", mid.PerCategory)
	}
	if got := len(ix.SectionsByType(Diagnostics)); got != 1 {
		t.Errorf("diagnostics list has %d entries, want 1", got)
	}

	sec := ix.SectionsByType(Diagnostics)[0]
	if sec.Metadata[MetaReclassified] != "true" {
		t.Error("reclassified flag not recorded")
	}
	if sec.Metadata[MetaPreviousType] != "unknown" {
		t.Errorf("previous type %q, want unknown", sec.Metadata[MetaPreviousType])
	}

	if !ix.ReclassifySection("mystery dump", Unknown) {
		t.Fatal("reclassify back failed")
	}
	after := ix.Stats()
	for cat, n := range before.PerCategory {
		if after.PerCategory[cat] != n {
			t.Errorf("category %v count %d, want %d after round trip", cat, after.PerCategory[cat], n)
		}
	}
	if after.TotalSections != before.TotalSections {
		t.Errorf("total changed: %d -> %d", before.TotalSections, after.TotalSections)
	}
}

func TestReclassifyMissingSection(t *testing.T) {
	ix := testIndex([2]string{"cpu report", "performance"})
	if ix.ReclassifySection("no such section", Logs) {
		t.Error("expected false for unknown section name")
	}
}

func TestReclassifySameTypeIsNoop(t *testing.T) {
	ix := testIndex([2]string{"cpu report", "performance"})
	if !ix.ReclassifySection("cpu report", Performance) {
		t.Error("same-type reclassify should return true")
	}
	sec := ix.SectionsByType(Performance)[0]
	if _, marked := sec.Metadata[MetaReclassified]; marked {
		t.Error("no-op reclassify must not mark metadata")
	}
}

func TestBulkReclassifyUnknown(t *testing.T) {
	ix := testIndex(
		[2]string{"fwx connection blob", "unknown"},
		[2]string{"vpn tunnel blob", "unknown"},
		[2]string{"opaque qqq blob", "unknown"},
		[2]string{"cpu report", "performance"},
	)

	res := ix.BulkReclassifyUnknown([]PatternMapping{
		{Substring: "FWX", Category: "firewall"},
		{Substring: "nonmatching", Category: "logs"},
	})

	if res.Total != 3 {
		t.Errorf("total %d, want 3 unknown sections processed", res.Total)
	}
	// "fwx connection blob" matches the explicit mapping; "vpn tunnel blob"
	// has no mapping but its top suggestion (vpn, confidence 3) auto-applies;
	// "opaque qqq blob" stays unknown.
	if res.Reclassified != 2 {
		t.Errorf("reclassified %d, want 2 (details: %+v)", res.Reclassified, res.Details)
	}
	if res.Failed != 0 {
		t.Errorf("failed %d, want 0", res.Failed)
	}
	if got := len(ix.SectionsByType(Firewall)); got != 1 {
		t.Errorf("firewall sections %d, want 1", got)
	}
	if got := len(ix.SectionsByType(VPN)); got != 1 {
		t.Errorf("vpn sections %d, want 1", got)
	}
	if got := len(ix.UnknownSections()); got != 1 {
		t.Errorf("unknown sections %d, want 1", got)
	}
	if len(res.Details) != 3 {
		t.Errorf("detail trail has %d entries, want 3", len(res.Details))
	}
}

func TestBulkReclassifyBadCategoryName(t *testing.T) {
	ix := testIndex([2]string{"fwx connection blob", "unknown"})

	res := ix.BulkReclassifyUnknown([]PatternMapping{
		{Substring: "fwx", Category: "not-a-category"},
	})
	if res.Failed != 1 || res.Reclassified != 0 {
		t.Errorf("failed=%d reclassified=%d, want 1/0", res.Failed, res.Reclassified)
	}
	if len(ix.UnknownSections()) != 1 {
		t.Error("section must stay unknown when the mapping category is invalid")
	}
}

func TestSemanticCategories(t *testing.T) {
	ix := testIndex(
		[2]string{"route table", "network"},
		[2]string{"arp cache", "network"},
		[2]string{"cpu report", "performance"},
	)

	cats := ix.SemanticCategories()
	if len(cats[Network]) != 2 {
		t.Errorf("network names %v, want 2 entries", cats[Network])
	}
	if cats[Network][0] != "route table" {
		t.Errorf("expected offset order, got %v", cats[Network])
	}
	if _, present := cats[Security]; present {
		t.Error("empty categories must be omitted")
	}
}
