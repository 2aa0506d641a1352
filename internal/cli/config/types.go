// Package config provides configuration management for the dataviz CLI.
package config

// Config holds all CLI configuration options.
type Config struct {
	CommentsDir  string           `koanf:"comments_dir"`
	OutputFormat string           `koanf:"output"`
	Verbose      bool             `koanf:"verbose"`
	Expression   ExpressionConfig `koanf:"expression"`
	Server       ServerConfig     `koanf:"server"`
	REPL         REPLConfig       `koanf:"repl"`
}

// ExpressionConfig controls expression validation.
type ExpressionConfig struct {
	AllowNumericLiterals bool `koanf:"allow_numeric_literals"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// REPLConfig holds configuration for the interactive shell.
type REPLConfig struct {
	HistoryFile string `koanf:"history_file"` // empty disables history
}

// Default configuration values.
const (
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultServerAddr = "127.0.0.1:8080"
	EnvPrefix         = "DATAVIZ_"
)

// configFileNames are searched, in order, when no --config is given.
var configFileNames = []string{"dataviz.yaml", "dataviz.yml"}

// OutputFormats lists the accepted values of the output key.
var OutputFormats = []string{"auto", "text", "markdown", "json", "csv"}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		OutputFormat: DefaultOutput,
		Server:       ServerConfig{Addr: DefaultServerAddr},
	}
}
