package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"libraryapi/internal/library"
	"libraryapi/internal/platform/openlibrary"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Service struct {
	olClient OpenLibraryClient
	catalog  Catalog
	cfg      Config
	logger   log.Logger
}

func NewService(olClient OpenLibraryClient, catalog Catalog, cfg Config, logger log.Logger) *Service {
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	return &Service{
		olClient: olClient,
		catalog:  catalog,
		cfg:      cfg,
		logger:   log.With(logger, "component", "ingest"),
	}
}

// Run searches every configured subject and creates the books that are not
// in the catalog yet. Documents that cannot be represented (no numeric ISBN,
// no author, no publish year, unsupported language) are skipped.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var res Result
	authorIDs := make(map[string]int64)

	known, err := s.knownISBNs(ctx)
	if err != nil {
		return res, err
	}

	for _, subject := range s.cfg.Subjects {
		searchRes, err := s.olClient.SearchBooks(ctx, subject, s.cfg.Limit)
		if err != nil {
			return res, fmt.Errorf("search failed for %s: %w", subject, err)
		}
		res.BooksFetched += len(searchRes.Docs)

		for _, doc := range searchRes.Docs {
			draft, names, ok := bookDraft(doc)
			if !ok {
				res.Skipped++
				continue
			}

			if _, ok := known[draft.ISBN]; ok {
				level.Debug(s.logger).Log("msg", "isbn already in catalog", "isbn", draft.ISBN, "title", draft.Title)
				res.Skipped++
				continue
			}

			ids := make([]int64, 0, len(names))
			for _, name := range names {
				id, created, err := s.resolveAuthor(ctx, authorIDs, name)
				if err != nil {
					return res, err
				}
				if created {
					res.AuthorsCreated++
				}
				ids = append(ids, id)
			}
			draft.AuthorIDs = ids[1:]

			book, err := s.catalog.CreateBookWithAuthor(ctx, ids[0], draft)
			if err != nil {
				var ve *library.ValidationError
				if errors.As(err, &ve) {
					level.Warn(s.logger).Log("msg", "skipping invalid book", "title", draft.Title, "err", err)
					res.Skipped++
					continue
				}
				return res, err
			}
			known[book.ISBN] = struct{}{}
			res.BooksCreated++
			level.Debug(s.logger).Log("msg", "book imported", "book_id", book.ID, "title", book.Title)
		}
	}

	level.Info(s.logger).Log(
		"msg", "ingest finished",
		"books_fetched", res.BooksFetched,
		"books_created", res.BooksCreated,
		"authors_created", res.AuthorsCreated,
		"skipped", res.Skipped,
	)
	return res, nil
}

func (s *Service) knownISBNs(ctx context.Context) (map[int64]struct{}, error) {
	books, err := s.catalog.ListBooks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	known := make(map[int64]struct{}, len(books))
	for _, b := range books {
		known[b.ISBN] = struct{}{}
	}
	return known, nil
}

// resolveAuthor reuses an author whose name matches exactly, ignoring case,
// and creates one otherwise.
func (s *Service) resolveAuthor(ctx context.Context, cache map[string]int64, name string) (int64, bool, error) {
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, false, nil
	}

	authors, err := s.catalog.ListAuthors(ctx, name)
	if err != nil {
		return 0, false, err
	}
	for _, a := range authors {
		if strings.EqualFold(a.Name, name) {
			cache[key] = a.ID
			return a.ID, false, nil
		}
	}

	author, err := s.catalog.CreateAuthor(ctx, library.AuthorDraft{Name: name})
	if err != nil {
		return 0, false, err
	}
	cache[key] = author.ID
	return author.ID, true, nil
}

func bookDraft(doc openlibrary.Doc) (library.BookDraft, []string, bool) {
	title := strings.TrimSpace(doc.Title)
	isbn, ok := pickISBN(doc.ISBN)
	if title == "" || !ok || doc.FirstPublishYear == 0 {
		return library.BookDraft{}, nil, false
	}
	lang, ok := languageOf(doc.Language)
	if !ok {
		return library.BookDraft{}, nil, false
	}

	var names []string
	seen := make(map[string]bool)
	for _, n := range doc.AuthorNames {
		n = strings.TrimSpace(n)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		names = append(names, n)
	}
	if len(names) == 0 {
		return library.BookDraft{}, nil, false
	}

	draft := library.BookDraft{
		Title:    title,
		ISBN:     isbn,
		Year:     doc.FirstPublishYear,
		Language: string(lang),
	}
	if len(doc.Publisher) > 0 {
		draft.Publisher = doc.Publisher[0]
	}
	return draft, names, true
}

// pickISBN prefers a 13 digit ISBN. ISBN-10 with an X check digit cannot be
// stored as a number and is ignored.
func pickISBN(isbns []string) (int64, bool) {
	var fallback string
	for _, s := range isbns {
		s = strings.ReplaceAll(s, "-", "")
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			continue
		}
		if len(s) == 13 {
			fallback = s
			break
		}
		if fallback == "" && len(s) == 10 {
			fallback = s
		}
	}
	if fallback == "" {
		return 0, false
	}
	n, _ := strconv.ParseInt(fallback, 10, 64)
	return n, n >= 1000000000
}

func languageOf(codes []string) (library.Language, bool) {
	for _, c := range codes {
		switch c {
		case "eng":
			return library.LanguageEnglish, true
		case "fre", "fra":
			return library.LanguageFrench, true
		}
	}
	return "", false
}
