package ranking

import "context"

// Entry is one leaderboard row. Rank is 1-indexed.
type Entry struct {
	RoomID   string `json:"roomId"`
	TeamName string `json:"teamName"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// Leaderboard records finished-game scores per room and serves ranked
// listings. A room keeps its best score across rounds.
type Leaderboard interface {
	RecordScore(ctx context.Context, roomID, teamName string, score int) error
	Top(ctx context.Context, limit int) ([]Entry, error)
}
