package library

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"libraryapi/internal/httpx"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type HTTPHandler struct {
	service *Service
	logger  log.Logger
}

func NewHTTPHandler(service *Service, logger log.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

// Register mounts the catalog routes under /api/v1.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/authors", h.ListAuthors)
	mux.HandleFunc("POST /api/v1/authors", h.CreateAuthor)
	mux.HandleFunc("GET /api/v1/authors/{id}", h.GetAuthor)
	mux.HandleFunc("PUT /api/v1/authors/{id}", h.UpdateAuthor)
	mux.HandleFunc("DELETE /api/v1/authors/{id}", h.DeleteAuthor)
	mux.HandleFunc("GET /api/v1/authors/{id}/books", h.ListAuthorBooks)
	mux.HandleFunc("POST /api/v1/authors/{id}/books", h.CreateAuthorBook)

	mux.HandleFunc("GET /api/v1/books", h.ListBooks)
	mux.HandleFunc("POST /api/v1/books", h.CreateBook)
	mux.HandleFunc("GET /api/v1/books/{id}", h.GetBook)
	mux.HandleFunc("PUT /api/v1/books/{id}", h.UpdateBook)
	mux.HandleFunc("DELETE /api/v1/books/{id}", h.DeleteBook)
	mux.HandleFunc("PUT /api/v1/books/{id}/authors", h.AddBookAuthor)
}

// ListAuthors handles GET /api/v1/authors
// @Summary List authors
// @Description List every author, or those whose name contains q
// @Tags authors
// @Produce json
// @Param q query string false "Name search"
// @Success 200 {object} httpx.SuccessResponse
// @Router /api/v1/authors [get]
func (h *HTTPHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.ListAuthors(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, newAuthorDTOs(authors), map[string]any{"count": len(authors)})
}

// GetAuthor handles GET /api/v1/authors/{id}
// @Summary Get author
// @Tags authors
// @Produce json
// @Param id path int true "Author ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/authors/{id} [get]
func (h *HTTPHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, NewAuthorDTO(author), nil)
}

// CreateAuthor handles POST /api/v1/authors
// @Summary Create author
// @Tags authors
// @Accept json
// @Produce json
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/authors [post]
func (h *HTTPHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	var req AuthorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	author, err := h.service.CreateAuthor(r.Context(), req.Draft())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, NewAuthorDTO(author))
}

// UpdateAuthor handles PUT /api/v1/authors/{id}
// @Summary Update author
// @Description The body id must equal the path id
// @Tags authors
// @Accept json
// @Produce json
// @Param id path int true "Author ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/authors/{id} [put]
func (h *HTTPHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AuthorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	author, err := h.service.UpdateAuthor(r.Context(), id, req.Draft())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, NewAuthorDTO(author), nil)
}

// DeleteAuthor handles DELETE /api/v1/authors/{id}
// @Summary Delete author
// @Description Removes the author from every book; books are kept
// @Tags authors
// @Param id path int true "Author ID"
// @Success 204
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/authors/{id} [delete]
func (h *HTTPHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAuthor(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// ListAuthorBooks handles GET /api/v1/authors/{id}/books
// @Summary List books of an author
// @Tags authors
// @Produce json
// @Param id path int true "Author ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/authors/{id}/books [get]
func (h *HTTPHandler) ListAuthorBooks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	books, err := h.service.ListBooksForAuthor(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, newBookDTOs(books), map[string]any{"count": len(books)})
}

// CreateAuthorBook handles POST /api/v1/authors/{id}/books
// @Summary Create book for author
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Author ID"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/authors/{id}/books [post]
func (h *HTTPHandler) CreateAuthorBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.createBook(w, r, id)
}

// ListBooks handles GET /api/v1/books
// @Summary List books
// @Description List every book, or those whose title contains q
// @Tags books
// @Produce json
// @Param q query string false "Title search"
// @Success 200 {object} httpx.SuccessResponse
// @Router /api/v1/books [get]
func (h *HTTPHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, newBookDTOs(books), map[string]any{"count": len(books)})
}

// GetBook handles GET /api/v1/books/{id}
// @Summary Get book
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/books/{id} [get]
func (h *HTTPHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, NewBookDTO(book), nil)
}

// CreateBook handles POST /api/v1/books?authorId={id}
// @Summary Create book
// @Tags books
// @Accept json
// @Produce json
// @Param authorId query int true "Initiating author"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/books [post]
func (h *HTTPHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("authorId")
	authorID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "authorId query parameter is required", nil)
		return
	}
	h.createBook(w, r, authorID)
}

func (h *HTTPHandler) createBook(w http.ResponseWriter, r *http.Request, authorID int64) {
	var req BookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	book, err := h.service.CreateBookWithAuthor(r.Context(), authorID, req.Draft())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, NewBookDTO(book))
}

// UpdateBook handles PUT /api/v1/books/{id}
// @Summary Update book
// @Description The body id must equal the path id. A present authors list replaces the book's authors.
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/books/{id} [put]
func (h *HTTPHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req BookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	book, err := h.service.UpdateBook(r.Context(), id, req.Draft())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, NewBookDTO(book), nil)
}

// DeleteBook handles DELETE /api/v1/books/{id}
// @Summary Delete book
// @Tags books
// @Param id path int true "Book ID"
// @Success 204
// @Failure 404 {object} httpx.ErrorResponse
// @Router /api/v1/books/{id} [delete]
func (h *HTTPHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// AddBookAuthor handles PUT /api/v1/books/{id}/authors
// @Summary Add author to book
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Router /api/v1/books/{id}/authors [put]
func (h *HTTPHandler) AddBookAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AuthorRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	book, err := h.service.AddAuthorToBook(r.Context(), id, req.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, NewBookDTO(book), nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "id must be an integer", nil)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
			return false
		}
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

// writeError maps library errors to HTTP responses.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *NotFoundError
		mismatch   *IdentifierMismatchError
		validation *ValidationError
		conflict   *ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", notFound.Error(), nil)
	case errors.As(err, &mismatch):
		httpx.JSONError(w, r, http.StatusBadRequest, "ID_MISMATCH", mismatch.Error(), nil)
	case errors.As(err, &validation):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", []httpx.ErrorDetail{
			{Field: validation.Field, Message: validation.Reason},
		})
	case errors.As(err, &conflict):
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", conflict.Error(), nil)
	default:
		level.Error(h.logger).Log(
			"msg", "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFrom(r),
			"err", err,
		)
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
