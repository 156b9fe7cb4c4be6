package library

import (
	"context"
	"fmt"
)

// CreateBookWithAuthor stores a new book written by authorID, plus any other
// existing authors listed in the draft.
func (s *Service) CreateBookWithAuthor(ctx context.Context, authorID int64, draft BookDraft) (Book, error) {
	if err := validateDraft(draft); err != nil {
		return Book{}, err
	}

	authorIDs := dedupeIDs([]int64{authorID}, draft.AuthorIDs)
	keys := make([]string, 0, len(authorIDs))
	for _, id := range authorIDs {
		keys = append(keys, authorKey(id))
	}
	unlock := s.locks.lock(keys...)
	defer unlock()

	if err := s.resolveAuthors(ctx, authorIDs); err != nil {
		return Book{}, err
	}

	var book Book
	applyBookDraft(&book, draft)
	if err := s.repo.CreateBook(ctx, &book, authorIDs); err != nil {
		return Book{}, err
	}
	return book, nil
}

// AddAuthorToBook links an existing author to an existing book. Linking an
// author twice is a *ConflictError.
func (s *Service) AddAuthorToBook(ctx context.Context, bookID, authorID int64) (Book, error) {
	unlock := s.locks.lock(bookKey(bookID), authorKey(authorID))
	defer unlock()

	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return Book{}, err
	}
	if _, err := s.repo.GetAuthor(ctx, authorID); err != nil {
		return Book{}, err
	}
	if book.HasAuthor(authorID) {
		return Book{}, &ConflictError{Reason: fmt.Sprintf("author %d is already an author of book %d", authorID, bookID)}
	}

	if err := s.repo.AddAuthor(ctx, bookID, authorID); err != nil {
		return Book{}, err
	}
	return s.repo.GetBook(ctx, bookID)
}

// resolveAuthors fails with the first author id that does not exist.
func (s *Service) resolveAuthors(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if _, err := s.repo.GetAuthor(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
