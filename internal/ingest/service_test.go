package ingest

import (
	"context"
	"errors"
	"testing"

	"libraryapi/internal/library"
	"libraryapi/internal/platform/openlibrary"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOLClient struct {
	mock.Mock
}

func (m *mockOLClient) SearchBooks(ctx context.Context, subject string, limit int) (*openlibrary.SearchResponse, error) {
	args := m.Called(ctx, subject, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openlibrary.SearchResponse), args.Error(1)
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	catalog := library.NewService(library.NewMemoryRepo())
	_, err := catalog.CreateAuthor(ctx, library.AuthorDraft{Name: "Terry Pratchett"})
	require.NoError(t, err)

	olClient := new(mockOLClient)
	olClient.On("SearchBooks", mock.Anything, "fantasy", 10).Return(&openlibrary.SearchResponse{
		Docs: []openlibrary.Doc{
			{Title: "Good Omens", AuthorNames: []string{"terry pratchett", "Neil Gaiman"}, ISBN: []string{"0060853980", "9780060853983"}, FirstPublishYear: 1990, Language: []string{"eng"}, Publisher: []string{"Gollancz"}},
			{Title: "Le Petit Prince", AuthorNames: []string{"Antoine de Saint-Exupéry"}, ISBN: []string{"978-2070612758"}, FirstPublishYear: 1943, Language: []string{"ger", "fre"}},
			{Title: "No ISBN", AuthorNames: []string{"Someone"}, Language: []string{"eng"}},
			{Title: "Der Prozess", AuthorNames: []string{"Franz Kafka"}, ISBN: []string{"9783596294312"}, Language: []string{"ger"}},
			{Title: "Anonymous", ISBN: []string{"9780000000002"}, Language: []string{"eng"}},
		},
	}, nil).Once()

	svc := NewService(olClient, catalog, Config{Subjects: []string{"fantasy"}, Limit: 10}, log.NewNopLogger())
	res, err := svc.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, Result{BooksFetched: 5, BooksCreated: 2, AuthorsCreated: 2, Skipped: 3}, res)
	olClient.AssertExpectations(t)

	books, err := catalog.ListBooks(ctx, "good omens")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(9780060853983), books[0].ISBN)
	assert.Equal(t, "Gollancz", books[0].Publisher)
	require.Len(t, books[0].Authors, 2)
	assert.Equal(t, "Terry Pratchett", books[0].Authors[0].Name)
	assert.Equal(t, "Neil Gaiman", books[0].Authors[1].Name)

	french, err := catalog.ListBooks(ctx, "prince")
	require.NoError(t, err)
	require.Len(t, french, 1)
	assert.Equal(t, library.LanguageFrench, french[0].Language)
}

func TestService_RunSkipsExistingISBN(t *testing.T) {
	ctx := context.Background()
	catalog := library.NewService(library.NewMemoryRepo())
	doc := openlibrary.Doc{Title: "Dune", AuthorNames: []string{"Frank Herbert"}, ISBN: []string{"9780441013593"}, FirstPublishYear: 1965, Language: []string{"eng"}}

	olClient := new(mockOLClient)
	olClient.On("SearchBooks", mock.Anything, mock.Anything, 20).
		Return(&openlibrary.SearchResponse{Docs: []openlibrary.Doc{doc}}, nil).Twice()

	svc := NewService(olClient, catalog, Config{Subjects: []string{"sf", "classics"}}, log.NewNopLogger())
	res, err := svc.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.BooksCreated)
	assert.Equal(t, 1, res.AuthorsCreated)
	assert.Equal(t, 1, res.Skipped)

	authors, err := catalog.ListAuthors(ctx, "")
	require.NoError(t, err)
	assert.Len(t, authors, 1)
}

func TestService_RunSkipsExistingISBN_DifferentTitle(t *testing.T) {
	ctx := context.Background()
	catalog := library.NewService(library.NewMemoryRepo())
	orwell, err := catalog.CreateAuthor(ctx, library.AuthorDraft{Name: "George Orwell"})
	require.NoError(t, err)
	_, err = catalog.CreateBookWithAuthor(ctx, orwell.ID, library.BookDraft{Title: "1984", ISBN: 9780451524935, Year: 1949, Language: "english"})
	require.NoError(t, err)

	olClient := new(mockOLClient)
	olClient.On("SearchBooks", mock.Anything, "dystopia", 20).Return(&openlibrary.SearchResponse{
		Docs: []openlibrary.Doc{
			{Title: "Nineteen Eighty-Four", AuthorNames: []string{"George Orwell"}, ISBN: []string{"9780451524935"}, FirstPublishYear: 1949, Language: []string{"eng"}},
			{Title: "Brave New World", AuthorNames: []string{"Aldous Huxley"}, ISBN: []string{"9780060850524"}, FirstPublishYear: 1932, Language: []string{"eng"}},
			{Title: "Brave New World (Reissue)", AuthorNames: []string{"Aldous Huxley"}, ISBN: []string{"978-0-06-085052-4"}, FirstPublishYear: 1932, Language: []string{"eng"}},
		},
	}, nil).Once()

	svc := NewService(olClient, catalog, Config{Subjects: []string{"dystopia"}}, log.NewNopLogger())
	res, err := svc.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, Result{BooksFetched: 3, BooksCreated: 1, AuthorsCreated: 1, Skipped: 2}, res)

	books, err := catalog.ListBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "1984", books[0].Title)
	assert.Equal(t, "Brave New World", books[1].Title)
}

func TestService_RunSkipsMissingPublishYear(t *testing.T) {
	ctx := context.Background()
	catalog := library.NewService(library.NewMemoryRepo())

	olClient := new(mockOLClient)
	olClient.On("SearchBooks", mock.Anything, "sf", 20).Return(&openlibrary.SearchResponse{
		Docs: []openlibrary.Doc{
			{Title: "Solaris", AuthorNames: []string{"Stanislaw Lem"}, ISBN: []string{"9780156027601"}, Language: []string{"eng"}},
		},
	}, nil).Once()

	svc := NewService(olClient, catalog, Config{Subjects: []string{"sf"}}, log.NewNopLogger())
	res, err := svc.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, Result{BooksFetched: 1, Skipped: 1}, res)

	books, err := catalog.ListBooks(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, books)
	authors, err := catalog.ListAuthors(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestService_RunSearchError(t *testing.T) {
	olClient := new(mockOLClient)
	olClient.On("SearchBooks", mock.Anything, "sf", 20).Return(nil, errors.New("unavailable"))

	svc := NewService(olClient, library.NewService(library.NewMemoryRepo()), Config{Subjects: []string{"sf"}}, log.NewNopLogger())
	_, err := svc.Run(context.Background())

	assert.ErrorContains(t, err, "search failed for sf")
}

func TestPickISBN(t *testing.T) {
	n, ok := pickISBN([]string{"080442957X", "0804429575", "9780804429573"})
	assert.True(t, ok)
	assert.Equal(t, int64(9780804429573), n)

	n, ok = pickISBN([]string{"080442957X", "1853260843"})
	assert.True(t, ok)
	assert.Equal(t, int64(1853260843), n)

	_, ok = pickISBN([]string{"0804429575"})
	assert.False(t, ok)

	_, ok = pickISBN([]string{"080442957X"})
	assert.False(t, ok)
}
