package auth

import "github.com/beamhq/beam-core/internal/model"

// HasPermission reports whether a held role satisfies a required set.
// The check compares against the minimum of the set, so requiring
// ["admin", "member"] means "member or higher".
func HasPermission(held model.Role, required []model.Role) bool {
	if len(required) == 0 {
		return true
	}
	min := model.Role("")
	for _, r := range required {
		if !r.Valid() {
			continue
		}
		if min == "" || r.Rank() < min.Rank() {
			min = r
		}
	}
	if min == "" {
		return false
	}
	return held.AtLeast(min)
}
