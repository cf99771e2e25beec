package providers

import (
	"context"
	"fmt"

	"newscast/internal/production"
	"newscast/internal/services"
)

// BriefSelector honors explicit story ids from the brief and otherwise keeps the first
// MaxItems stories in source order.
type BriefSelector struct {
	DefaultMax int
}

// Select implements NewsSelector.
func (s BriefSelector) Select(_ context.Context, items []production.NewsItem, brief production.Brief) ([]production.NewsItem, error) {
	if len(brief.SelectedIDs) > 0 {
		byID := make(map[string]production.NewsItem, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}
		selected := make([]production.NewsItem, 0, len(brief.SelectedIDs))
		for _, id := range brief.SelectedIDs {
			item, ok := byID[id]
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "selector", "select", fmt.Sprintf("story %q not in fetched news", id), nil)
			}
			selected = append(selected, item)
		}
		return selected, nil
	}

	limit := brief.MaxItems
	if limit <= 0 {
		limit = s.DefaultMax
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	if limit == 0 {
		return nil, services.Wrap(services.ErrValidation, "selector", "select", "no stories to select from", nil)
	}
	return append([]production.NewsItem(nil), items[:limit]...), nil
}
