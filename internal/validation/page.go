package validation

import (
	"strconv"

	"quiz-share-service/internal/domain"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// ClampPage parses raw limit/skip query values into a Page with
// limit in [0, MaxPageLimit] and skip >= 0. Unparseable values fall back to defaults.
func ClampPage(rawLimit, rawSkip string) domain.Page {
	limit, err := strconv.Atoi(rawLimit)
	if err != nil {
		limit = DefaultPageLimit
	}
	skip, err := strconv.Atoi(rawSkip)
	if err != nil {
		skip = 0
	}
	return domain.Page{
		Limit: min(max(limit, 0), MaxPageLimit),
		Skip:  max(skip, 0),
	}
}

// HasMore reports whether a list has entries beyond the page.
func HasMore(p domain.Page, total int) bool {
	return p.Skip+p.Limit < total
}
