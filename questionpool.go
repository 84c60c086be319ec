package questionpooler

import (
	"errors"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"questionpooler/internal/randutil"
)

const (
	// DefaultPlayers is the player count of a standard game
	DefaultPlayers = 2
	// DefaultQuestionCount is how many questions a player is offered per draw
	DefaultQuestionCount = 3
)

// PoolManager holds one independent question pool per player. It does no
// locking; callers that share a manager across goroutines must serialize
// access themselves.
type PoolManager struct {
	players int
	pools   []*QuestionSet
	rng     *rand.Rand
	logger  *log.Logger
}

// Option configures a PoolManager during creation
type Option func(*PoolManager)

// WithRand sets the random source used for draws
func WithRand(rng *rand.Rand) Option {
	return func(pm *PoolManager) {
		pm.rng = rng
	}
}

// WithLogger sets the logger used for pool diagnostics
func WithLogger(logger *log.Logger) Option {
	return func(pm *PoolManager) {
		pm.logger = logger
	}
}

// NewPoolManager loads a full copy of the question content for each player.
// Any failure to read a category file aborts construction.
func NewPoolManager(loader *Loader, players int, opts ...Option) (*PoolManager, error) {
	if players < 1 {
		return nil, &PoolError{Op: "new pool manager", Kind: KindInvalidArgument, Requested: players}
	}

	pm := &PoolManager{
		players: players,
		pools:   make([]*QuestionSet, 0, players),
		logger:  Logger(),
	}
	for _, opt := range opts {
		opt(pm)
	}
	if pm.rng == nil {
		pm.rng = randutil.NewRandom()
	}

	for i := 0; i < players; i++ {
		set, err := loader.LoadQuestionSet()
		if err != nil {
			return nil, err
		}
		pm.pools = append(pm.pools, set)
	}

	pm.logger.Debug("Question pools loaded",
		"players", players,
		"appearance", len(pm.pools[0].Appearance),
		"interests", len(pm.pools[0].Interests))

	return pm, nil
}

// Players returns the number of pools
func (pm *PoolManager) Players() int {
	return pm.players
}

func (pm *PoolManager) pool(op string, playerIndex int) (*QuestionSet, error) {
	if playerIndex < 0 || playerIndex >= pm.players {
		return nil, &PoolError{Op: op, Kind: KindOutOfRange, PlayerIndex: playerIndex, Players: pm.players}
	}
	return pm.pools[playerIndex], nil
}

// GetNewQuestions draws up to n unused questions of a category from a player's pool
func (pm *PoolManager) GetNewQuestions(playerIndex int, category Category, n int) ([]*Question, error) {
	pool, err := pm.pool("get new questions", playerIndex)
	if err != nil {
		return nil, err
	}

	var list []*Question
	switch category {
	case CategoryAppearance:
		list = pool.Appearance
	case CategoryInterests:
		list = pool.Interests
	default:
		return nil, &PoolError{Op: "get new questions", Kind: KindUnknownCategory, PlayerIndex: playerIndex, Category: category}
	}

	selection, err := RandomSelect(pm.rng, list, n)
	if err != nil {
		var pe *PoolError
		if errors.As(err, &pe) {
			pe.Op = "get new questions"
			pe.PlayerIndex = playerIndex
			pe.Category = category
		}
		return nil, err
	}

	VerboseLog("Player %d drew %d/%d %s questions", playerIndex, len(selection), n, category)
	return selection, nil
}

// UseQuestion marks the first question in a player's pool whose text matches
// question, scanning appearance before interests. Unknown text is ignored and
// reported as false.
func (pm *PoolManager) UseQuestion(question *Question, playerIndex int) (bool, error) {
	if question == nil {
		return false, &PoolError{Op: "use question", Kind: KindInvalidArgument, PlayerIndex: playerIndex, Err: errNilQuestion}
	}

	pool, err := pm.pool("use question", playerIndex)
	if err != nil {
		return false, err
	}

	for _, category := range Categories {
		for _, q := range pool.List(category) {
			if q.Matches(question) {
				q.Use()
				return true, nil
			}
		}
	}

	pm.logger.Debug("No question matched", "player", playerIndex, "text", question.Text)
	return false, nil
}

// GetAll returns every question owned by a player, used or not
func (pm *PoolManager) GetAll(playerIndex int) (*QuestionSet, error) {
	return pm.pool("get all", playerIndex)
}

// Remaining counts the unused questions of a category in a player's pool
func (pm *PoolManager) Remaining(playerIndex int, category Category) (int, error) {
	pool, err := pm.pool("remaining", playerIndex)
	if err != nil {
		return 0, err
	}

	if _, err := ParseCategory(string(category)); err != nil {
		return 0, &PoolError{Op: "remaining", Kind: KindUnknownCategory, PlayerIndex: playerIndex, Category: category}
	}

	remaining := 0
	for _, q := range pool.List(category) {
		if !q.Used {
			remaining++
		}
	}
	return remaining, nil
}
