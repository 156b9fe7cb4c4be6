// Package ingest imports books and their authors from Open Library into the
// library catalog.
package ingest

import (
	"context"

	"libraryapi/internal/library"
	"libraryapi/internal/platform/openlibrary"
)

type Config struct {
	Subjects []string
	// Limit caps the search results requested per subject.
	Limit int
}

// Result counts what a run did.
type Result struct {
	BooksFetched   int
	BooksCreated   int
	AuthorsCreated int
	Skipped        int
}

type OpenLibraryClient interface {
	SearchBooks(ctx context.Context, subject string, limit int) (*openlibrary.SearchResponse, error)
}

// Catalog is the part of *library.Service the importer writes through.
type Catalog interface {
	ListAuthors(ctx context.Context, query string) ([]library.Author, error)
	CreateAuthor(ctx context.Context, draft library.AuthorDraft) (library.Author, error)
	ListBooks(ctx context.Context, query string) ([]library.Book, error)
	CreateBookWithAuthor(ctx context.Context, authorID int64, draft library.BookDraft) (library.Book, error)
}
