package match

import "github.com/datallboy/dltool/internal/domain"

// Reconcile splits wanted into the items the listing has and the names it
// lacks. Both results follow the order of wanted.
func Reconcile(wanted []string, available map[string]domain.AvailableItem) ([]domain.MatchedItem, []string) {
	matched := make([]domain.MatchedItem, 0, len(wanted))
	var missing []string

	for i, name := range wanted {
		item, ok := available[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		matched = append(matched, domain.MatchedItem{AvailableItem: item, Index: i})
	}

	return matched, missing
}
