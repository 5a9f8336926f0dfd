package classify

import (
	"strings"

	"github.com/riguy5000/ebay-hunter-worker/internal/extract"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

// PassesWatchFilters runs the watch post-filters: year range (reject
// out-of-range, tolerate unknown year) and case material (reject only when
// both the filter and the extracted material are known and disagree).
func PassesWatchFilters(f *store.WatchFilters, a extract.WatchAttributes) (bool, string) {
	if f.YearMin != nil && a.Year != 0 && a.Year < *f.YearMin {
		return false, "year below minimum"
	}
	if f.YearMax != nil && a.Year != 0 && a.Year > *f.YearMax {
		return false, "year above maximum"
	}
	if len(f.CaseMaterials) > 0 && a.CaseMaterial != "" {
		matched := false
		for _, m := range f.CaseMaterials {
			if strings.EqualFold(m, a.CaseMaterial) {
				matched = true
				break
			}
		}
		if !matched {
			return false, "case material not matched"
		}
	}
	return true, ""
}
