package library

// AuthorRequest is the JSON body accepted for author create and update.
type AuthorRequest struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	BookIDs []int64 `json:"bookIds,omitempty"`
}

// BookRequest is the JSON body accepted for book create and update. Authors
// is optional; on update a present list replaces the book's authors.
type BookRequest struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	ISBN      int64              `json:"isbn"`
	Publisher string             `json:"publisher"`
	Year      int                `json:"year"`
	Language  string             `json:"language"`
	Authors   []AuthorRefRequest `json:"authors"`
}

// AuthorRefRequest references an existing author by id.
type AuthorRefRequest struct {
	ID int64 `json:"id"`
}

type AuthorDTO struct {
	ID    int64        `json:"id"`
	Name  string       `json:"name"`
	Books []BookRefDTO `json:"books"`
}

type BookRefDTO struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type BookDTO struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	ISBN      int64          `json:"isbn"`
	Publisher string         `json:"publisher,omitempty"`
	Year      int            `json:"year"`
	Language  Language       `json:"language"`
	Authors   []AuthorRefDTO `json:"authors"`
}

type AuthorRefDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (req AuthorRequest) Draft() AuthorDraft {
	return AuthorDraft{ID: req.ID, Name: req.Name, BookIDs: req.BookIDs}
}

func (req BookRequest) Draft() BookDraft {
	d := BookDraft{
		ID:        req.ID,
		Title:     req.Title,
		ISBN:      req.ISBN,
		Publisher: req.Publisher,
		Year:      req.Year,
		Language:  req.Language,
	}
	if req.Authors != nil {
		d.AuthorIDs = make([]int64, 0, len(req.Authors))
		for _, a := range req.Authors {
			d.AuthorIDs = append(d.AuthorIDs, a.ID)
		}
	}
	return d
}

func NewAuthorDTO(a Author) AuthorDTO {
	dto := AuthorDTO{ID: a.ID, Name: a.Name, Books: make([]BookRefDTO, 0, len(a.Books))}
	for _, b := range a.Books {
		dto.Books = append(dto.Books, BookRefDTO{ID: b.ID, Title: b.Title})
	}
	return dto
}

func NewBookDTO(b Book) BookDTO {
	dto := BookDTO{
		ID:        b.ID,
		Title:     b.Title,
		ISBN:      b.ISBN,
		Publisher: b.Publisher,
		Year:      b.Year,
		Language:  b.Language,
		Authors:   make([]AuthorRefDTO, 0, len(b.Authors)),
	}
	for _, a := range b.Authors {
		dto.Authors = append(dto.Authors, AuthorRefDTO{ID: a.ID, Name: a.Name})
	}
	return dto
}

func newAuthorDTOs(authors []Author) []AuthorDTO {
	out := make([]AuthorDTO, 0, len(authors))
	for _, a := range authors {
		out = append(out, NewAuthorDTO(a))
	}
	return out
}

func newBookDTOs(books []Book) []BookDTO {
	out := make([]BookDTO, 0, len(books))
	for _, b := range books {
		out = append(out, NewBookDTO(b))
	}
	return out
}
