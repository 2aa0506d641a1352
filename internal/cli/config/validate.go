package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output %q, must be one of: %s", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// ValidateCommentsDir checks that comments_dir, when set, is a directory.
// A missing directory is fine: it is created on the first saved comment.
func (c *Config) ValidateCommentsDir() error {
	if c.CommentsDir == "" {
		return nil
	}
	info, err := os.Stat(c.CommentsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("comments directory %s: %w", c.CommentsDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("comments_dir is not a directory: %s\nHint: point --comments-dir at a directory", c.CommentsDir)
	}
	return nil
}
