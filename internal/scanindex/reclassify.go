package scanindex

import "strings"

// ReclassifySection moves the named section to a new category. Returns true
// on success or when the section already carries that type; returns false
// (with a warning log) when no section has that exact name, since "not
// found" is an expected condition for interactive callers.
func (ix *Index) ReclassifySection(name string, to Category) bool {
	return ix.reclassify(name, to, "manual")
}

func (ix *Index) reclassify(name string, to Category, reason string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var target *Section
	for _, s := range ix.sections {
		if s.Name == name {
			target = s
			break
		}
	}
	if target == nil {
		ix.logger.Warn("reclassify: section not found", "name", name)
		return false
	}
	if target.Type == to {
		return true
	}

	from := target.Type
	target.Metadata[MetaReclassified] = "true"
	target.Metadata[MetaPreviousType] = from.String()
	target.Metadata[MetaReclassifyCause] = reason
	target.Type = to

	// Drop from the old category list, append to the new one.
	old := ix.byCategory[from]
	for i, s := range old {
		if s == target {
			ix.byCategory[from] = append(old[:i:i], old[i+1:]...)
			break
		}
	}
	ix.byCategory[to] = append(ix.byCategory[to], target)

	ix.stats.PerCategory[from]--
	if ix.stats.PerCategory[from] == 0 {
		delete(ix.stats.PerCategory, from)
	}
	ix.stats.PerCategory[to]++
	return true
}

// PatternMapping pairs a name substring with a target category name for
// bulk reclassification.
type PatternMapping struct {
	Substring string
	Category  string
}

// BulkDetail records the outcome for one section in a bulk reclassification.
type BulkDetail struct {
	Name     string
	Pattern  string
	Target   Category
	Applied  bool
	ErrorMsg string
}

// BulkResult summarizes a bulk reclassification run.
type BulkResult struct {
	Total        int
	Reclassified int
	Failed       int
	Details      []BulkDetail
}

// autoApplyConfidence is the suggestion score at or above which a section
// with no explicit mapping is reclassified automatically.
const autoApplyConfidence = 2

// BulkReclassifyUnknown walks every Unknown section. Each mapping's
// substring is tried case-insensitively in order and the first hit wins;
// sections matching no mapping fall back to categorization suggestions and
// the top suggestion is applied when its confidence reaches the auto-apply
// threshold. Category names are validated up front, so a bad mapping fails
// the sections it matches rather than panicking mid-run.
func (ix *Index) BulkReclassifyUnknown(mappings []PatternMapping) BulkResult {
	var result BulkResult

	for _, sec := range ix.UnknownSections() {
		result.Total++
		lower := strings.ToLower(sec.Name)

		matched := false
		for _, m := range mappings {
			if !strings.Contains(lower, strings.ToLower(m.Substring)) {
				continue
			}
			matched = true
			cat, err := ParseCategory(m.Category)
			if err != nil {
				result.Failed++
				result.Details = append(result.Details, BulkDetail{
					Name:     sec.Name,
					Pattern:  m.Substring,
					ErrorMsg: err.Error(),
				})
				break
			}
			if ix.reclassify(sec.Name, cat, "bulk_pattern_match") {
				result.Reclassified++
				result.Details = append(result.Details, BulkDetail{
					Name:    sec.Name,
					Pattern: m.Substring,
					Target:  cat,
					Applied: true,
				})
			} else {
				result.Failed++
				result.Details = append(result.Details, BulkDetail{
					Name:     sec.Name,
					Pattern:  m.Substring,
					Target:   cat,
					ErrorMsg: "section not found",
				})
			}
			break
		}
		if matched {
			continue
		}

		suggestions := CategorizationSuggestions(sec)
		if len(suggestions) == 0 || suggestions[0].Confidence < autoApplyConfidence {
			result.Details = append(result.Details, BulkDetail{Name: sec.Name})
			continue
		}
		top := suggestions[0]
		if ix.reclassify(sec.Name, top.Category, "suggestion") {
			result.Reclassified++
			result.Details = append(result.Details, BulkDetail{
				Name:    sec.Name,
				Pattern: strings.Join(top.Matches, ","),
				Target:  top.Category,
				Applied: true,
			})
		} else {
			result.Failed++
			result.Details = append(result.Details, BulkDetail{
				Name:     sec.Name,
				Target:   top.Category,
				ErrorMsg: "section not found",
			})
		}
	}

	return result
}
