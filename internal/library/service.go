package library

import (
	"context"
	"strings"
)

// Service provides catalog lookups and mutations on top of a Repository.
type Service struct {
	repo  Repository
	locks *entityLocks
}

// NewService creates a new library service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, locks: newEntityLocks()}
}

// Ping checks that the underlying store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ListAuthors returns every author, or those whose name contains query.
func (s *Service) ListAuthors(ctx context.Context, query string) ([]Author, error) {
	authors, err := s.repo.ListAuthors(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	if authors == nil {
		authors = []Author{}
	}
	return authors, nil
}

// GetAuthor returns an author by id.
func (s *Service) GetAuthor(ctx context.Context, id int64) (Author, error) {
	return s.repo.GetAuthor(ctx, id)
}

// ListBooks returns every book, or those whose title contains query.
func (s *Service) ListBooks(ctx context.Context, query string) ([]Book, error) {
	books, err := s.repo.ListBooks(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// GetBook returns a book by id.
func (s *Service) GetBook(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetBook(ctx, id)
}

// ListBooksForAuthor returns the books of an existing author.
func (s *Service) ListBooksForAuthor(ctx context.Context, authorID int64) ([]Book, error) {
	books, err := s.repo.ListBooksByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// CreateAuthor stores a new author, linked to the pre-existing books listed
// in the draft.
func (s *Service) CreateAuthor(ctx context.Context, draft AuthorDraft) (Author, error) {
	if err := validateDraft(draft); err != nil {
		return Author{}, err
	}

	bookIDs := dedupeIDs(draft.BookIDs)
	keys := make([]string, 0, len(bookIDs))
	for _, id := range bookIDs {
		keys = append(keys, bookKey(id))
	}
	unlock := s.locks.lock(keys...)
	defer unlock()

	for _, id := range bookIDs {
		if _, err := s.repo.GetBook(ctx, id); err != nil {
			return Author{}, err
		}
	}

	author := Author{Name: strings.TrimSpace(draft.Name)}
	if err := s.repo.CreateAuthor(ctx, &author, bookIDs); err != nil {
		return Author{}, err
	}
	return author, nil
}

// UpdateAuthor renames the author addressed by id. The author's books are
// left untouched.
func (s *Service) UpdateAuthor(ctx context.Context, id int64, draft AuthorDraft) (Author, error) {
	if err := CheckIdentifier(id, draft.ID); err != nil {
		return Author{}, err
	}
	if err := validateDraft(draft); err != nil {
		return Author{}, err
	}

	unlock := s.locks.lock(authorKey(id))
	defer unlock()

	author, err := s.repo.GetAuthor(ctx, id)
	if err != nil {
		return Author{}, err
	}
	author.Name = strings.TrimSpace(draft.Name)
	if err := s.repo.UpdateAuthor(ctx, &author); err != nil {
		return Author{}, err
	}
	return author, nil
}

// DeleteAuthor removes an author. Their books survive without them.
func (s *Service) DeleteAuthor(ctx context.Context, id int64) error {
	unlock := s.locks.lock(authorKey(id))
	defer unlock()

	return s.repo.DeleteAuthor(ctx, id)
}

// UpdateBook replaces the mutable fields of the book addressed by id.
func (s *Service) UpdateBook(ctx context.Context, id int64, draft BookDraft) (Book, error) {
	if err := CheckIdentifier(id, draft.ID); err != nil {
		return Book{}, err
	}
	if err := validateDraft(draft); err != nil {
		return Book{}, err
	}

	var authorIDs []int64
	if draft.AuthorIDs != nil {
		authorIDs = dedupeIDs(draft.AuthorIDs)
		if len(authorIDs) == 0 {
			return Book{}, &ValidationError{Field: "authorIds", Reason: "must contain at least one author"}
		}
	}

	keys := []string{bookKey(id)}
	for _, authorID := range authorIDs {
		keys = append(keys, authorKey(authorID))
	}
	unlock := s.locks.lock(keys...)
	defer unlock()

	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if err := s.resolveAuthors(ctx, authorIDs); err != nil {
		return Book{}, err
	}

	applyBookDraft(&book, draft)
	if err := s.repo.UpdateBook(ctx, &book, authorIDs); err != nil {
		return Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book from the catalog and from every author's books.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	unlock := s.locks.lock(bookKey(id))
	defer unlock()

	return s.repo.DeleteBook(ctx, id)
}

func applyBookDraft(b *Book, draft BookDraft) {
	b.Title = strings.TrimSpace(draft.Title)
	b.ISBN = draft.ISBN
	b.Publisher = strings.TrimSpace(draft.Publisher)
	b.Year = draft.Year
	b.Language = Language(draft.Language)
}
