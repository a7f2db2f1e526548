package service

import (
	"strings"

	"fsaeinventory/internal/models"
)

// Filter returns the items whose search text contains term, case-insensitively,
// in their original order. An empty term returns a copy of the whole list.
func Filter(items []models.Item, term string) []models.Item {
	out := make([]models.Item, 0, len(items))
	if term == "" {
		return append(out, items...)
	}
	needle := strings.ToLower(term)
	for _, item := range items {
		if strings.Contains(item.SearchText(), needle) {
			out = append(out, item)
		}
	}
	return out
}
