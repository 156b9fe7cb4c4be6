package library

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.Ping(timeoutCtx)
}

func (r *PostgresRepo) ListAuthors(ctx context.Context, q string) ([]Author, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql := `SELECT id, name FROM authors`
	args := []any{}
	if q != "" {
		sql += ` WHERE name ILIKE '%' || $1 || '%' ESCAPE '\'`
		args = append(args, escapeLike(q))
	}
	sql += ` ORDER BY id`

	rows, err := r.db.Query(timeoutCtx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	authors, err := pgx.CollectRows(rows, scanAuthor)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	if err := r.loadAuthorBooks(timeoutCtx, r.db, authors); err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *PostgresRepo) GetAuthor(ctx context.Context, id int64) (Author, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.getAuthor(timeoutCtx, r.db, id)
}

func (r *PostgresRepo) getAuthor(ctx context.Context, q querier, id int64) (Author, error) {
	var a Author
	err := q.QueryRow(ctx, `SELECT id, name FROM authors WHERE id = $1`, id).Scan(&a.ID, &a.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, authorNotFound(id)
		}
		return Author{}, fmt.Errorf("get author: %w", err)
	}
	authors := []Author{a}
	if err := r.loadAuthorBooks(ctx, q, authors); err != nil {
		return Author{}, err
	}
	return authors[0], nil
}

func (r *PostgresRepo) CreateAuthor(ctx context.Context, a *Author, bookIDs []int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	for _, bookID := range lockOrder(bookIDs) {
		if err := lockRow(timeoutCtx, tx, "books", bookID); err != nil {
			return err
		}
	}

	var id int64
	err = tx.QueryRow(timeoutCtx,
		`INSERT INTO authors (name, created_at, updated_at) VALUES ($1, now(), now()) RETURNING id`,
		a.Name,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert author: %w", err)
	}

	for _, bookID := range bookIDs {
		if err := insertLink(timeoutCtx, tx, bookID, id); err != nil {
			return err
		}
	}

	created, err := r.getAuthor(timeoutCtx, tx, id)
	if err != nil {
		return err
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return err
	}
	*a = created
	return nil
}

func (r *PostgresRepo) UpdateAuthor(ctx context.Context, a *Author) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx,
		`UPDATE authors SET name = $2, updated_at = now() WHERE id = $1`,
		a.ID, a.Name,
	)
	if err != nil {
		return fmt.Errorf("update author: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authorNotFound(a.ID)
	}

	updated, err := r.getAuthor(timeoutCtx, r.db, a.ID)
	if err != nil {
		return err
	}
	*a = updated
	return nil
}

// DeleteAuthor relies on ON DELETE CASCADE to drop the author's links.
func (r *PostgresRepo) DeleteAuthor(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authorNotFound(id)
	}
	return nil
}

const bookColumns = `b.id, b.title, b.isbn, b.publisher, b.year, b.language`

func (r *PostgresRepo) ListBooks(ctx context.Context, q string) ([]Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql := `SELECT ` + bookColumns + ` FROM books b`
	args := []any{}
	if q != "" {
		sql += ` WHERE b.title ILIKE '%' || $1 || '%' ESCAPE '\'`
		args = append(args, escapeLike(q))
	}
	sql += ` ORDER BY b.id`

	return r.queryBooks(timeoutCtx, r.db, sql, args...)
}

func (r *PostgresRepo) GetBook(ctx context.Context, id int64) (Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.getBook(timeoutCtx, r.db, id)
}

func (r *PostgresRepo) getBook(ctx context.Context, q querier, id int64) (Book, error) {
	books, err := r.queryBooks(ctx, q, `SELECT `+bookColumns+` FROM books b WHERE b.id = $1`, id)
	if err != nil {
		return Book{}, err
	}
	if len(books) == 0 {
		return Book{}, bookNotFound(id)
	}
	return books[0], nil
}

func (r *PostgresRepo) ListBooksByAuthor(ctx context.Context, authorID int64) ([]Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(timeoutCtx, `SELECT EXISTS (SELECT 1 FROM authors WHERE id = $1)`, authorID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check author: %w", err)
	}
	if !exists {
		return nil, authorNotFound(authorID)
	}

	const sql = `
		SELECT ` + bookColumns + `
		FROM books b
		JOIN book_authors ba ON ba.book_id = b.id
		WHERE ba.author_id = $1
		ORDER BY b.id`
	return r.queryBooks(timeoutCtx, r.db, sql, authorID)
}

func (r *PostgresRepo) CreateBook(ctx context.Context, b *Book, authorIDs []int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	for _, authorID := range lockOrder(authorIDs) {
		if err := lockRow(timeoutCtx, tx, "authors", authorID); err != nil {
			return err
		}
	}

	const insertSQL = `
		INSERT INTO books (title, isbn, publisher, year, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id`

	var id int64
	err = tx.QueryRow(timeoutCtx, insertSQL, b.Title, b.ISBN, b.Publisher, b.Year, string(b.Language)).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	for _, authorID := range authorIDs {
		if err := insertLink(timeoutCtx, tx, id, authorID); err != nil {
			return err
		}
	}

	created, err := r.getBook(timeoutCtx, tx, id)
	if err != nil {
		return err
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return err
	}
	*b = created
	return nil
}

func (r *PostgresRepo) UpdateBook(ctx context.Context, b *Book, authorIDs []int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	if err := lockRow(timeoutCtx, tx, "books", b.ID); err != nil {
		return err
	}
	for _, authorID := range lockOrder(authorIDs) {
		if err := lockRow(timeoutCtx, tx, "authors", authorID); err != nil {
			return err
		}
	}

	const updateSQL = `
		UPDATE books SET
			title = $2,
			isbn = $3,
			publisher = $4,
			year = $5,
			language = $6,
			updated_at = now()
		WHERE id = $1`

	_, err = tx.Exec(timeoutCtx, updateSQL, b.ID, b.Title, b.ISBN, b.Publisher, b.Year, string(b.Language))
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	if authorIDs != nil {
		if _, err := tx.Exec(timeoutCtx, `DELETE FROM book_authors WHERE book_id = $1`, b.ID); err != nil {
			return fmt.Errorf("clear book authors: %w", err)
		}
		for _, authorID := range authorIDs {
			if err := insertLink(timeoutCtx, tx, b.ID, authorID); err != nil {
				return err
			}
		}
	}

	updated, err := r.getBook(timeoutCtx, tx, b.ID)
	if err != nil {
		return err
	}
	if err := tx.Commit(timeoutCtx); err != nil {
		return err
	}
	*b = updated
	return nil
}

// DeleteBook relies on ON DELETE CASCADE to drop the book's links.
func (r *PostgresRepo) DeleteBook(ctx context.Context, id int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return bookNotFound(id)
	}
	return nil
}

func (r *PostgresRepo) AddAuthor(ctx context.Context, bookID, authorID int64) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	if err := lockRow(timeoutCtx, tx, "books", bookID); err != nil {
		return err
	}
	if err := lockRow(timeoutCtx, tx, "authors", authorID); err != nil {
		return err
	}
	if err := insertLink(timeoutCtx, tx, bookID, authorID); err != nil {
		return err
	}
	return tx.Commit(timeoutCtx)
}

// lockRow takes a row lock on books or authors so concurrent writers on the
// same entity queue up behind the transaction.
func lockRow(ctx context.Context, tx pgx.Tx, table string, id int64) error {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM `+table+` WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if table == "books" {
				return bookNotFound(id)
			}
			return authorNotFound(id)
		}
		return fmt.Errorf("lock %s %d: %w", table, id, err)
	}
	return nil
}

// lockOrder returns ids sorted ascending so that transactions taking several
// row locks always take them in the same order.
func lockOrder(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	slices.Sort(out)
	return out
}

func insertLink(ctx context.Context, tx pgx.Tx, bookID, authorID int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)`, bookID, authorID)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConflictError{Reason: fmt.Sprintf("author %d is already an author of book %d", authorID, bookID)}
		case pgForeignKeyViolation:
			if pgErr.ConstraintName == "book_authors_book_fk" {
				return bookNotFound(bookID)
			}
			return authorNotFound(authorID)
		}
	}
	return fmt.Errorf("insert book author: %w", err)
}

func (r *PostgresRepo) queryBooks(ctx context.Context, q querier, sql string, args ...any) ([]Book, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	books, err := pgx.CollectRows(rows, scanBook)
	if err != nil {
		return nil, fmt.Errorf("scan books: %w", err)
	}
	if err := r.loadBookAuthors(ctx, q, books); err != nil {
		return nil, err
	}
	return books, nil
}

func scanAuthor(row pgx.CollectableRow) (Author, error) {
	var a Author
	err := row.Scan(&a.ID, &a.Name)
	a.Books = []BookRef{}
	return a, err
}

func scanBook(row pgx.CollectableRow) (Book, error) {
	var b Book
	var language string
	err := row.Scan(&b.ID, &b.Title, &b.ISBN, &b.Publisher, &b.Year, &language)
	b.Language = Language(language)
	b.Authors = []AuthorRef{}
	return b, err
}

// loadBookAuthors fills Authors for every book with a single query.
func (r *PostgresRepo) loadBookAuthors(ctx context.Context, q querier, books []Book) error {
	if len(books) == 0 {
		return nil
	}
	index := make(map[int64]int, len(books))
	ids := make([]int64, 0, len(books))
	for i, b := range books {
		index[b.ID] = i
		ids = append(ids, b.ID)
	}

	const sql = `
		SELECT ba.book_id, a.id, a.name
		FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = ANY($1)
		ORDER BY ba.book_id, ba.ordinal`

	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return fmt.Errorf("load book authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID int64
		var ref AuthorRef
		if err := rows.Scan(&bookID, &ref.ID, &ref.Name); err != nil {
			return fmt.Errorf("scan book author: %w", err)
		}
		i := index[bookID]
		books[i].Authors = append(books[i].Authors, ref)
	}
	return rows.Err()
}

// loadAuthorBooks fills Books for every author with a single query.
func (r *PostgresRepo) loadAuthorBooks(ctx context.Context, q querier, authors []Author) error {
	if len(authors) == 0 {
		return nil
	}
	index := make(map[int64]int, len(authors))
	ids := make([]int64, 0, len(authors))
	for i, a := range authors {
		index[a.ID] = i
		ids = append(ids, a.ID)
	}

	const sql = `
		SELECT ba.author_id, b.id, b.title
		FROM book_authors ba
		JOIN books b ON b.id = ba.book_id
		WHERE ba.author_id = ANY($1)
		ORDER BY ba.author_id, b.id`

	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return fmt.Errorf("load author books: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var authorID int64
		var ref BookRef
		if err := rows.Scan(&authorID, &ref.ID, &ref.Title); err != nil {
			return fmt.Errorf("scan author book: %w", err)
		}
		i := index[authorID]
		authors[i].Books = append(authors[i].Books, ref)
	}
	return rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
