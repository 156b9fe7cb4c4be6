package main

import (
	"context"
	"fmt"
	"io"

	"libraryapi/internal/library"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML layout of a seed catalog. Books reference authors by
// their fixture key; the first listed author creates the book.
type Fixture struct {
	Authors []FixtureAuthor `yaml:"authors"`
	Books   []FixtureBook   `yaml:"books"`
}

type FixtureAuthor struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type FixtureBook struct {
	Title     string   `yaml:"title"`
	ISBN      int64    `yaml:"isbn"`
	Publisher string   `yaml:"publisher"`
	Year      int      `yaml:"year"`
	Language  string   `yaml:"language"`
	Authors   []string `yaml:"authors"`
}

type SeedResult struct {
	Authors int
	Books   int
	Links   int
}

func ParseFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// Apply replays the fixture through the service so every seeded record goes
// through the same validation as API traffic.
func Apply(ctx context.Context, svc *library.Service, f Fixture) (SeedResult, error) {
	var res SeedResult
	ids := make(map[string]int64, len(f.Authors))

	for _, a := range f.Authors {
		if _, dup := ids[a.Key]; dup {
			return res, fmt.Errorf("duplicate author key %q", a.Key)
		}
		created, err := svc.CreateAuthor(ctx, library.AuthorDraft{Name: a.Name})
		if err != nil {
			return res, fmt.Errorf("author %q: %w", a.Key, err)
		}
		ids[a.Key] = created.ID
		res.Authors++
	}

	for _, b := range f.Books {
		if len(b.Authors) == 0 {
			return res, fmt.Errorf("book %q has no authors", b.Title)
		}
		authorIDs := make([]int64, 0, len(b.Authors))
		for _, key := range b.Authors {
			id, ok := ids[key]
			if !ok {
				return res, fmt.Errorf("book %q: unknown author key %q", b.Title, key)
			}
			authorIDs = append(authorIDs, id)
		}

		book, err := svc.CreateBookWithAuthor(ctx, authorIDs[0], library.BookDraft{
			Title:     b.Title,
			ISBN:      b.ISBN,
			Publisher: b.Publisher,
			Year:      b.Year,
			Language:  b.Language,
		})
		if err != nil {
			return res, fmt.Errorf("book %q: %w", b.Title, err)
		}
		res.Books++
		res.Links++

		for _, authorID := range authorIDs[1:] {
			if _, err := svc.AddAuthorToBook(ctx, book.ID, authorID); err != nil {
				return res, fmt.Errorf("book %q: add author %d: %w", b.Title, authorID, err)
			}
			res.Links++
		}
	}
	return res, nil
}
