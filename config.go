package questionpooler

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultMaxPlayers caps the player count of a single session
const DefaultMaxPlayers = 16

// Config is the complete host configuration
type Config struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Content *ContentSettings `hcl:"content,block"`
	History *HistorySettings `hcl:"history,block"`
}

// ServerSettings contains HTTP host configuration
type ServerSettings struct {
	Address       string `hcl:"address,optional"`
	Port          int    `hcl:"port,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	SessionSecret string `hcl:"session_secret,optional"`
}

// ContentSettings describes where questions come from and how they are dealt
type ContentSettings struct {
	Dir              string `hcl:"dir,optional"`
	Players          int    `hcl:"players,optional"`
	MaxPlayers       int    `hcl:"max_players,optional"`
	QuestionsPerDraw int    `hcl:"questions_per_draw,optional"`
	Seed             int64  `hcl:"seed,optional"`
}

// HistorySettings configures the session history store and logs
type HistorySettings struct {
	Database string `hcl:"database,optional"`
	LogDir   string `hcl:"log_dir,optional"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerSettings{
			Address:       "localhost",
			Port:          8180,
			LogLevel:      "info",
			SessionSecret: "change-me",
		},
		Content: &ContentSettings{
			Dir:              "static",
			Players:          DefaultPlayers,
			MaxPlayers:       DefaultMaxPlayers,
			QuestionsPerDraw: DefaultQuestionCount,
		},
		History: &HistorySettings{
			Database: "questions.db",
			LogDir:   "log",
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(src, filename)
}

// ParseConfig decodes HCL source and fills unset values with defaults
func ParseConfig(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Content == nil {
		c.Content = &ContentSettings{}
	}
	if c.History == nil {
		c.History = &HistorySettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaults.Server.LogLevel
	}
	if c.Server.SessionSecret == "" {
		c.Server.SessionSecret = defaults.Server.SessionSecret
	}
	if c.Content.Dir == "" {
		c.Content.Dir = defaults.Content.Dir
	}
	if c.Content.Players == 0 {
		c.Content.Players = defaults.Content.Players
	}
	if c.Content.MaxPlayers == 0 {
		c.Content.MaxPlayers = defaults.Content.MaxPlayers
	}
	if c.Content.QuestionsPerDraw == 0 {
		c.Content.QuestionsPerDraw = defaults.Content.QuestionsPerDraw
	}
	if c.History.Database == "" {
		c.History.Database = defaults.History.Database
	}
	if c.History.LogDir == "" {
		c.History.LogDir = defaults.History.LogDir
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Content.Players < 1 {
		return fmt.Errorf("players must be at least 1, got %d", c.Content.Players)
	}
	if c.Content.Players > c.Content.MaxPlayers {
		return fmt.Errorf("players must be at most %d, got %d", c.Content.MaxPlayers, c.Content.Players)
	}
	if c.Content.QuestionsPerDraw < 1 {
		return fmt.Errorf("questions_per_draw must be at least 1, got %d", c.Content.QuestionsPerDraw)
	}
	if c.Content.Dir == "" {
		return fmt.Errorf("content dir is required")
	}
	return nil
}

// ServerAddress returns the host:port the HTTP server listens on
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
