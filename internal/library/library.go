// Package library manages the author and book catalog: lookups, mutations and
// the many-to-many relation between books and their authors.
package library

// Language is the language a book is written in.
type Language string

const (
	LanguageFrench  Language = "french"
	LanguageEnglish Language = "english"
)

// AuthorRef is a weak reference from a book to one of its authors.
type AuthorRef struct {
	ID   int64
	Name string
}

// BookRef is a weak reference from an author to one of their books.
type BookRef struct {
	ID    int64
	Title string
}

// Author represents an author entity.
type Author struct {
	ID    int64
	Name  string
	Books []BookRef
}

// Book represents a book entity.
type Book struct {
	ID        int64
	Title     string
	ISBN      int64
	Publisher string
	Year      int
	Language  Language
	Authors   []AuthorRef
}

// AuthorIDs returns the ids of the book's authors in attachment order.
func (b Book) AuthorIDs() []int64 {
	ids := make([]int64, 0, len(b.Authors))
	for _, a := range b.Authors {
		ids = append(ids, a.ID)
	}
	return ids
}

// HasAuthor reports whether authorID is among the book's authors.
func (b Book) HasAuthor(authorID int64) bool {
	for _, a := range b.Authors {
		if a.ID == authorID {
			return true
		}
	}
	return false
}

// AuthorDraft is a client supplied author before it is accepted.
type AuthorDraft struct {
	ID      int64
	Name    string `validate:"required,notblank"`
	BookIDs []int64
}

// BookDraft is a client supplied book before it is accepted.
//
// AuthorIDs lists extra authors on creation. On update a non-nil AuthorIDs
// replaces the whole author set; nil leaves it untouched.
type BookDraft struct {
	ID        int64
	Title     string `validate:"required,notblank"`
	ISBN      int64  `validate:"min=1000000000"`
	Publisher string
	Year      int    `validate:"gte=-9999,lte=9999"`
	Language  string `validate:"required,oneof=french english"`
	AuthorIDs []int64
}

// dedupeIDs keeps the first occurrence of every id.
func dedupeIDs(ids ...[]int64) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	for _, group := range ids {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
