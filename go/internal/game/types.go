package game

import "time"

// Status is the lifecycle state of a game session. A session is mutable
// only while playing; completed and timeout are terminal.
type Status string

const (
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
	StatusTimeout   Status = "timeout"
)

// Game rules for the five-answer mode.
const (
	RequiredAnswers = 5
	ScorePerAnswer  = 10
	ScorePerSecond  = 1
	RoundTimeLimit  = 30 * time.Second
)

// AnswerRecord is one entry in a session's append-only answer log.
// Timestamps are unix milliseconds.
type AnswerRecord struct {
	PlayerID  string `json:"playerId"`
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"isCorrect"`
	Timestamp int64  `json:"timestamp"`
}

// GameSession is the state of one round. CurrentTurn is the zero-based
// rotational player slot due to answer next; it advances only on a correct
// answer. Version backs the optimistic-concurrency write guard.
type GameSession struct {
	SessionID   string         `json:"sessionId"`
	RoomID      string         `json:"roomId"`
	QuestionID  string         `json:"questionId"`
	TeamName    string         `json:"teamName,omitempty"`
	StartedAt   int64          `json:"startedAt"`
	CurrentTurn int            `json:"currentTurn"`
	Answers     []AnswerRecord `json:"answers"`
	Status      Status         `json:"status"`
	Version     int64          `json:"version"`
}

// CorrectCount returns the number of correct entries in the answer log.
func (s *GameSession) CorrectCount() int {
	count := 0
	for _, record := range s.Answers {
		if record.IsCorrect {
			count++
		}
	}
	return count
}

// QuestionPayload is the player-safe projection of a question. Canonical
// answers and acceptable variations never appear here.
type QuestionPayload struct {
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
	Category     string `json:"category"`
	Difficulty   string `json:"difficulty"`
}

// StartGameResponse is returned from Start and from state sync.
type StartGameResponse struct {
	Session  GameSession     `json:"session"`
	Question QuestionPayload `json:"question"`
}

// AnswerResult is the outcome of one submitted answer.
type AnswerResult struct {
	Correct       bool `json:"correct"`
	Score         int  `json:"score"`
	NextTurn      int  `json:"nextTurn"`
	GameCompleted bool `json:"gameCompleted"`
}

// GameResult is the final outcome of a finished session.
type GameResult struct {
	Success        bool `json:"success"`
	TotalScore     int  `json:"totalScore"`
	CorrectAnswers int  `json:"correctAnswers"`
	TimeBonus      int  `json:"timeBonus"`
}
