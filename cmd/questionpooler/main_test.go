package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questionpooler"
)

func testGlobals(t *testing.T) *globals {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "appearance.txt"), []byte("Does your date wear glasses?"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interests.txt"), []byte("Does your date like to cook?"), 0644))

	cfg := questionpooler.DefaultConfig()
	cfg.Content.Dir = dir
	cfg.Content.Seed = 7
	return &globals{cfg: cfg, logger: log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})}
}

func TestListRejectsNegativePlayer(t *testing.T) {
	err := (&ListCmd{Player: -1}).Run(testGlobals(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, questionpooler.ErrOutOfRange), "got %v", err)
	assert.Contains(t, err.Error(), "player index -1")
}

func TestListUnknownCategory(t *testing.T) {
	err := (&ListCmd{Player: 0, Category: "personality"}).Run(testGlobals(t))
	assert.True(t, errors.Is(err, questionpooler.ErrUnknownCategory), "got %v", err)
}
