package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"questionpooler"
	"questionpooler/internal/randutil"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Config  string           `short:"c" default:"questionpooler.hcl" help:"Path to HCL configuration file"`
	Content string           `help:"Content directory (overrides config)"`
	Seed    int64            `help:"Random seed for reproducible draws (overrides config)"`
	Verbose bool             `help:"Enable verbose debugging output"`

	Play PlayCmd `cmd:"" default:"1" help:"Play an interactive question round in the terminal"`
	List ListCmd `cmd:"" help:"Print every question in a player's pool"`
}

// PlayCmd runs the terminal game loop
type PlayCmd struct {
	Players   int    `short:"p" help:"Number of players (overrides config)"`
	Questions int    `short:"n" help:"Questions offered per draw (overrides config)"`
	LogDir    string `help:"Write a session log to this directory"`
}

// ListCmd prints a player's pool
type ListCmd struct {
	Player   int    `arg:"" optional:"" default:"0" help:"Player index"`
	Category string `help:"Only list this category (appearance or interests)"`
}

type globals struct {
	cfg    *questionpooler.Config
	logger *log.Logger
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("questionpooler"),
		kong.Description("Deal non-repeating get-to-know-you questions to players"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	cfg, err := questionpooler.LoadConfig(cli.Config)
	ctx.FatalIfErrorf(err)
	if cli.Content != "" {
		cfg.Content.Dir = cli.Content
	}
	if cli.Seed != 0 {
		cfg.Content.Seed = cli.Seed
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{Level: questionpooler.ParseLogLevel(cfg.Server.LogLevel)})
	questionpooler.SetLogger(logger)
	questionpooler.SetVerbose(cli.Verbose)

	err = ctx.Run(&globals{cfg: cfg, logger: logger})
	ctx.FatalIfErrorf(err)
}

func newPool(g *globals, players int) (*questionpooler.PoolManager, error) {
	loader := questionpooler.NewLoader(os.DirFS(g.cfg.Content.Dir), g.logger)
	return questionpooler.NewPoolManager(loader, players,
		questionpooler.WithRand(randutil.FromSeed(g.cfg.Content.Seed)),
		questionpooler.WithLogger(g.logger))
}

func (c *PlayCmd) Run(g *globals) error {
	if c.Players > 0 {
		g.cfg.Content.Players = c.Players
	}
	if c.Questions > 0 {
		g.cfg.Content.QuestionsPerDraw = c.Questions
	}
	if err := g.cfg.Validate(); err != nil {
		return err
	}

	pm, err := newPool(g, g.cfg.Content.Players)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	var sessionLog *questionpooler.SessionLog
	if c.LogDir != "" {
		sessionLog, err = questionpooler.NewSessionLog(c.LogDir, uuid.NewString(), pm.Players(), quartz.NewReal())
		if err != nil {
			return err
		}
		defer sessionLog.Close()
		g.logger.Info("Writing session log", "path", sessionLog.Path())
	}

	game := &Game{
		Pool:      pm,
		Questions: g.cfg.Content.QuestionsPerDraw,
		In:        os.Stdin,
		Out:       os.Stdout,
		Log:       sessionLog,
	}
	return game.Play()
}

func (c *ListCmd) Run(g *globals) error {
	// Enough pools for the requested seat; GetAll reports anything out of range
	pm, err := newPool(g, max(c.Player+1, g.cfg.Content.Players))
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	categories := questionpooler.Categories
	if c.Category != "" {
		category, err := questionpooler.ParseCategory(c.Category)
		if err != nil {
			return err
		}
		categories = []questionpooler.Category{category}
	}

	set, err := pm.GetAll(c.Player)
	if err != nil {
		return err
	}
	printSet(os.Stdout, set, categories)
	return nil
}
