package library

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=library

// Repository defines the contract for author and book storage.
//
// Every method is atomic. Lookups by id return *NotFoundError when the entity
// is absent, and mutations that reference a missing author or book fail with
// *NotFoundError without writing anything.
type Repository interface {
	ListAuthors(ctx context.Context, q string) ([]Author, error)
	GetAuthor(ctx context.Context, id int64) (Author, error)
	// CreateAuthor assigns a.ID and links the author to bookIDs.
	CreateAuthor(ctx context.Context, a *Author, bookIDs []int64) error
	UpdateAuthor(ctx context.Context, a *Author) error
	// DeleteAuthor removes the author and every link to it. Books are kept.
	DeleteAuthor(ctx context.Context, id int64) error

	ListBooks(ctx context.Context, q string) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	ListBooksByAuthor(ctx context.Context, authorID int64) ([]Book, error)
	// CreateBook assigns b.ID and links the book to authorIDs in order.
	CreateBook(ctx context.Context, b *Book, authorIDs []int64) error
	// UpdateBook replaces the mutable fields of b. A non-nil authorIDs
	// replaces the book's author set.
	UpdateBook(ctx context.Context, b *Book, authorIDs []int64) error
	DeleteBook(ctx context.Context, id int64) error
	// AddAuthor links an author to a book and fails with *ConflictError when
	// the link already exists.
	AddAuthor(ctx context.Context, bookID, authorID int64) error

	Ping(ctx context.Context) error
}
