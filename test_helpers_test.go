package questionpooler

import (
	"bytes"
	"io"
	"testing"
	"testing/fstest"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"questionpooler/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func captureLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}), &buf
}

func testContent() fstest.MapFS {
	return fstest.MapFS{
		"appearance.txt":         {Data: []byte("Does your date have [HAIR COLOR] hair?\r\nIs your date taller than {HEIGHT}?\r\nDoes your date wear glasses?\r\nDoes your date have a beard?")},
		"interests.txt":          {Data: []byte("Does your date enjoy [MUSIC GENRE] music?\nDoes your date like to cook?\nDoes your date wear glasses?")},
		"options/hair-color.txt": {Data: []byte("Black\nBrown\nBlonde\n")},
	}
}

func newTestManager(t *testing.T, players int) *PoolManager {
	t.Helper()
	pm, err := NewPoolManager(NewLoader(testContent(), testLogger()), players,
		WithRand(randutil.New(42)), WithLogger(testLogger()))
	require.NoError(t, err)
	return pm
}

func makeQuestions(texts ...string) []*Question {
	questions := make([]*Question, 0, len(texts))
	for _, text := range texts {
		questions = append(questions, ParseQuestion(text))
	}
	return questions
}
