package notes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/kuitang/colornote/internal/errs"
)

const (
	// maxSuggestDistance is the largest edit distance a suggested title may
	// have from the query.
	maxSuggestDistance = 2

	maxSuggestions = 3
)

// Search runs a full-text search over titles and bodies. When nothing
// matches, close note titles are offered as suggestions.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.New(errs.InvalidArgument, "search query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.store.SearchNotes(ctx, query, int64(limit), int64(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}

	res := &SearchResults{Query: query, Hits: make([]SearchHit, 0, len(rows))}
	for _, r := range rows {
		res.Hits = append(res.Hits, SearchHit{
			ID:        r.ID,
			Title:     r.Title,
			Snippet:   r.Snippet,
			UpdatedAt: fromMillis(r.UpdatedAt),
		})
	}
	if len(res.Hits) > 0 || offset > 0 {
		return res, nil
	}

	summaries, err := s.store.ListNotes(ctx, MaxLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles for suggestions: %w", err)
	}
	titles := make([]string, 0, len(summaries))
	for _, n := range summaries {
		titles = append(titles, n.Title)
	}
	res.Suggestions = suggestTitles(query, titles)
	return res, nil
}

// suggestTitles returns up to maxSuggestions distinct titles within
// maxSuggestDistance edits of query, closest first, compared case-insensitively.
func suggestTitles(query string, titles []string) []string {
	type candidate struct {
		title string
		dist  int
	}
	q := strings.ToLower(query)
	seen := make(map[string]bool)
	var candidates []candidate
	for _, title := range titles {
		trimmed := strings.TrimSpace(title)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		if d := levenshtein.ComputeDistance(q, strings.ToLower(trimmed)); d <= maxSuggestDistance {
			candidates = append(candidates, candidate{title: trimmed, dist: d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist == candidates[j].dist {
			return candidates[i].title < candidates[j].title
		}
		return candidates[i].dist < candidates[j].dist
	})

	out := make([]string, 0, min(len(candidates), maxSuggestions))
	for i := 0; i < len(candidates) && i < maxSuggestions; i++ {
		out = append(out, candidates[i].title)
	}
	return out
}
