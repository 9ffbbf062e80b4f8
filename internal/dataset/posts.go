package dataset

import (
	"fmt"
	"strconv"

	"github.com/Veraticus/soothsayer/internal/model"
)

// PostColumns is the layout of raw_posts.csv and candidates.csv.
var PostColumns = []string{"id", "author", "text", "created_at", "score", "source_url", "kind"}

var requiredPostColumns = []string{"id", "text"}

// ReadPosts loads a post table written by producer.
func ReadPosts(path string, producer model.Stage) ([]model.RawPost, error) {
	t, err := ReadTable(path, producer, requiredPostColumns...)
	if err != nil {
		return nil, err
	}

	posts := make([]model.RawPost, 0, len(t.Rows))
	for i, row := range t.Rows {
		p, err := decodePost(t, row)
		if err != nil {
			return nil, &SchemaError{Path: path, Producer: producer, Reason: fmt.Sprintf("row %d: %v", i+2, err)}
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func decodePost(t *Table, row []string) (model.RawPost, error) {
	p := model.RawPost{
		ID:        t.Cell(row, "id"),
		Author:    t.Cell(row, "author"),
		Text:      t.Cell(row, "text"),
		SourceURL: t.Cell(row, "source_url"),
	}

	created, err := parseTime(t.Cell(row, "created_at"))
	if err != nil {
		return p, fmt.Errorf("created_at: %w", err)
	}
	p.CreatedAt = created

	if p.Score, err = parseInt(t.Cell(row, "score")); err != nil {
		return p, fmt.Errorf("score: %w", err)
	}

	if kind := t.Cell(row, "kind"); kind != "" {
		if p.Kind, err = model.ParsePostKind(kind); err != nil {
			return p, err
		}
	}
	return p, nil
}

// WritePosts replaces path with posts.
func WritePosts(path string, posts []model.RawPost) error {
	t := NewTable(PostColumns)
	for _, p := range posts {
		t.Append([]string{
			p.ID,
			p.Author,
			p.Text,
			formatTime(p.CreatedAt),
			strconv.Itoa(p.Score),
			p.SourceURL,
			string(p.Kind),
		})
	}
	return WriteTable(path, t)
}
