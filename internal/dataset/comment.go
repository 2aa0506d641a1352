package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CommentFileName returns the sidecar file name for a source base name.
func CommentFileName(fileName string) string {
	return fileName + "_description.txt"
}

// Comment is the free-text note kept for a data file. It is keyed by the
// file's base name only, so it can be read and written whether or not the
// file holds valid data, or exists at all.
type Comment struct {
	FileName string // source base name
	Path     string // sidecar location
}

// CommentFor returns the comment slot for the data file at path.
func CommentFor(path string, opts Options) Comment {
	base := BaseName(path)
	dir := opts.CommentDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return Comment{FileName: base, Path: filepath.Join(dir, CommentFileName(base))}
}

// Save overwrites the comment with text.
func (c Comment) Save(text string) error {
	if dir := filepath.Dir(c.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create comment directory: %w", err)
		}
	}
	if err := os.WriteFile(c.Path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to save comment for %s: %w", c.FileName, err)
	}
	return nil
}

// Load returns the saved comment, or "" if none was ever saved.
func (c Comment) Load() (string, error) {
	data, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load comment for %s: %w", c.FileName, err)
	}
	return string(data), nil
}

// Comment returns the dataset's comment slot.
func (d *Dataset) Comment() Comment {
	return d.comment
}

// CommentPath returns where this dataset's comment is stored.
func (d *Dataset) CommentPath() string {
	return d.comment.Path
}

// SaveComment overwrites the dataset's comment with text.
func (d *Dataset) SaveComment(text string) error {
	return d.comment.Save(text)
}

// LoadComment returns the saved comment, or "" if none was ever saved.
func (d *Dataset) LoadComment() (string, error) {
	return d.comment.Load()
}
