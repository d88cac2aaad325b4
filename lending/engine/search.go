package engine

import (
	"context"
	"strings"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

// SearchBooks returns all books whose title, author, or category contains
// the keyword as a case-insensitive substring.
//
// The keyword is trimmed first; an empty or whitespace-only keyword yields
// an empty result, not an error. Fields are scanned in the order title,
// author, category, and a book matching on several fields appears exactly
// once, at the position of its first match.
func (s *Service) SearchBooks(ctx context.Context, keyword string) ([]lending.Book, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []lending.Book{}, nil
	}

	seen := make(map[int64]struct{})
	results := make([]lending.Book, 0)

	for _, field := range lending.SearchFieldScanOrder() {
		books, err := s.store.SearchBooksByField(ctx, field, keyword)
		if err != nil {
			return nil, err
		}

		for _, book := range books {
			if _, ok := seen[book.ID]; ok {
				continue
			}

			seen[book.ID] = struct{}{}
			results = append(results, book)
		}
	}

	return results, nil
}
