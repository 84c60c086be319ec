package questionpooler

import (
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// Content file names, relative to the content root
const (
	AppearanceFile = "appearance.txt"
	InterestsFile  = "interests.txt"
	OptionsDir     = "options"
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// LoadLines reads a text resource and returns its lines with surrounding
// whitespace trimmed. A final newline produces a trailing empty line.
func LoadLines(fsys fs.FS, name string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, &PoolError{Op: "load", Kind: KindIO, Resource: name, Err: err}
	}

	lines := lineBreak.Split(string(data), -1)
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines, nil
}

// Loader reads question content from a file tree such as os.DirFS("static")
type Loader struct {
	fsys   fs.FS
	logger *log.Logger
}

// NewLoader creates a loader over fsys. A nil logger falls back to the package logger.
func NewLoader(fsys fs.FS, logger *log.Logger) *Loader {
	if logger == nil {
		logger = Logger()
	}
	return &Loader{fsys: fsys, logger: logger}
}

// LoadLines reads a resource relative to the loader's root
func (l *Loader) LoadLines(name string) ([]string, error) {
	return LoadLines(l.fsys, name)
}

// LoadQuestions builds a fresh question for every line of a resource
func (l *Loader) LoadQuestions(name string) ([]*Question, error) {
	lines, err := l.LoadLines(name)
	if err != nil {
		return nil, err
	}

	questions := make([]*Question, 0, len(lines))
	for _, line := range lines {
		questions = append(questions, l.NewQuestion(line))
	}
	return questions, nil
}

// LoadQuestionSet loads both category files into a new, independent set
func (l *Loader) LoadQuestionSet() (*QuestionSet, error) {
	appearance, err := l.LoadQuestions(AppearanceFile)
	if err != nil {
		return nil, err
	}
	interests, err := l.LoadQuestions(InterestsFile)
	if err != nil {
		return nil, err
	}
	return &QuestionSet{Appearance: appearance, Interests: interests}, nil
}

func optionsResource(slug string) string {
	return path.Join(OptionsDir, slug+".txt")
}
