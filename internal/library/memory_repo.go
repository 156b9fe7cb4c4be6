package library

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type authorRecord struct {
	id   int64
	name string
}

type bookRecord struct {
	id        int64
	title     string
	isbn      int64
	publisher string
	year      int
	language  Language
}

// MemoryRepo is an in-process Repository. The book/author relation is kept
// in two id indexes that are always updated together under mu.
type MemoryRepo struct {
	mu sync.RWMutex

	authors map[int64]*authorRecord
	books   map[int64]*bookRecord

	// bookAuthors keeps attachment order; authorBooks is the reverse index.
	bookAuthors map[int64][]int64
	authorBooks map[int64]map[int64]struct{}

	lastAuthorID int64
	lastBookID   int64
}

// NewMemoryRepo creates an empty in-memory store.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		authors:     make(map[int64]*authorRecord),
		books:       make(map[int64]*bookRecord),
		bookAuthors: make(map[int64][]int64),
		authorBooks: make(map[int64]map[int64]struct{}),
	}
}

func (m *MemoryRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryRepo) ListAuthors(ctx context.Context, q string) ([]Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(q)
	out := []Author{}
	for _, id := range sortedKeys(m.authors) {
		if !strings.Contains(strings.ToLower(m.authors[id].name), needle) {
			continue
		}
		out = append(out, m.authorView(id))
	}
	return out, nil
}

func (m *MemoryRepo) GetAuthor(ctx context.Context, id int64) (Author, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.authors[id]; !ok {
		return Author{}, authorNotFound(id)
	}
	return m.authorView(id), nil
}

func (m *MemoryRepo) CreateAuthor(ctx context.Context, a *Author, bookIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, bookID := range bookIDs {
		if _, ok := m.books[bookID]; !ok {
			return bookNotFound(bookID)
		}
	}

	m.lastAuthorID++
	id := m.lastAuthorID
	m.authors[id] = &authorRecord{id: id, name: a.Name}
	m.authorBooks[id] = make(map[int64]struct{})
	for _, bookID := range bookIDs {
		m.link(bookID, id)
	}

	*a = m.authorView(id)
	return nil
}

func (m *MemoryRepo) UpdateAuthor(ctx context.Context, a *Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.authors[a.ID]
	if !ok {
		return authorNotFound(a.ID)
	}
	rec.name = a.Name

	*a = m.authorView(a.ID)
	return nil
}

func (m *MemoryRepo) DeleteAuthor(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.authors[id]; !ok {
		return authorNotFound(id)
	}
	for bookID := range m.authorBooks[id] {
		m.unlink(bookID, id)
	}
	delete(m.authorBooks, id)
	delete(m.authors, id)
	return nil
}

func (m *MemoryRepo) ListBooks(ctx context.Context, q string) ([]Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(q)
	out := []Book{}
	for _, id := range sortedKeys(m.books) {
		if !strings.Contains(strings.ToLower(m.books[id].title), needle) {
			continue
		}
		out = append(out, m.bookView(id))
	}
	return out, nil
}

func (m *MemoryRepo) GetBook(ctx context.Context, id int64) (Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.books[id]; !ok {
		return Book{}, bookNotFound(id)
	}
	return m.bookView(id), nil
}

func (m *MemoryRepo) ListBooksByAuthor(ctx context.Context, authorID int64) ([]Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bookSet, ok := m.authorBooks[authorID]
	if !ok {
		return nil, authorNotFound(authorID)
	}
	out := make([]Book, 0, len(bookSet))
	for _, id := range sortedKeys(bookSet) {
		out = append(out, m.bookView(id))
	}
	return out, nil
}

func (m *MemoryRepo) CreateBook(ctx context.Context, b *Book, authorIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, authorID := range authorIDs {
		if _, ok := m.authors[authorID]; !ok {
			return authorNotFound(authorID)
		}
	}

	m.lastBookID++
	id := m.lastBookID
	m.books[id] = &bookRecord{
		id:        id,
		title:     b.Title,
		isbn:      b.ISBN,
		publisher: b.Publisher,
		year:      b.Year,
		language:  b.Language,
	}
	for _, authorID := range authorIDs {
		m.link(id, authorID)
	}

	*b = m.bookView(id)
	return nil
}

func (m *MemoryRepo) UpdateBook(ctx context.Context, b *Book, authorIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.books[b.ID]
	if !ok {
		return bookNotFound(b.ID)
	}
	for _, authorID := range authorIDs {
		if _, ok := m.authors[authorID]; !ok {
			return authorNotFound(authorID)
		}
	}

	rec.title = b.Title
	rec.isbn = b.ISBN
	rec.publisher = b.Publisher
	rec.year = b.Year
	rec.language = b.Language

	if authorIDs != nil {
		for _, authorID := range append([]int64(nil), m.bookAuthors[b.ID]...) {
			m.unlink(b.ID, authorID)
		}
		for _, authorID := range authorIDs {
			m.link(b.ID, authorID)
		}
	}

	*b = m.bookView(b.ID)
	return nil
}

func (m *MemoryRepo) DeleteBook(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[id]; !ok {
		return bookNotFound(id)
	}
	for _, authorID := range append([]int64(nil), m.bookAuthors[id]...) {
		m.unlink(id, authorID)
	}
	delete(m.bookAuthors, id)
	delete(m.books, id)
	return nil
}

func (m *MemoryRepo) AddAuthor(ctx context.Context, bookID, authorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[bookID]; !ok {
		return bookNotFound(bookID)
	}
	if _, ok := m.authors[authorID]; !ok {
		return authorNotFound(authorID)
	}
	if _, ok := m.authorBooks[authorID][bookID]; ok {
		return &ConflictError{Reason: "author already linked to book"}
	}
	m.link(bookID, authorID)
	return nil
}

// link and unlink must be called with mu held for writing.
func (m *MemoryRepo) link(bookID, authorID int64) {
	m.bookAuthors[bookID] = append(m.bookAuthors[bookID], authorID)
	m.authorBooks[authorID][bookID] = struct{}{}
}

func (m *MemoryRepo) unlink(bookID, authorID int64) {
	ids := m.bookAuthors[bookID]
	for i, id := range ids {
		if id == authorID {
			m.bookAuthors[bookID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	delete(m.authorBooks[authorID], bookID)
}

func (m *MemoryRepo) authorView(id int64) Author {
	rec := m.authors[id]
	a := Author{ID: rec.id, Name: rec.name, Books: []BookRef{}}
	for _, bookID := range sortedKeys(m.authorBooks[id]) {
		a.Books = append(a.Books, BookRef{ID: bookID, Title: m.books[bookID].title})
	}
	return a
}

func (m *MemoryRepo) bookView(id int64) Book {
	rec := m.books[id]
	b := Book{
		ID:        rec.id,
		Title:     rec.title,
		ISBN:      rec.isbn,
		Publisher: rec.publisher,
		Year:      rec.year,
		Language:  rec.language,
		Authors:   []AuthorRef{},
	}
	for _, authorID := range m.bookAuthors[id] {
		b.Authors = append(b.Authors, AuthorRef{ID: authorID, Name: m.authors[authorID].name})
	}
	return b
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
