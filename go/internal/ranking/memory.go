package ranking

import (
	"context"
	"sort"
	"sync"
)

// MemoryLeaderboard is an in-process Leaderboard for tests and single-node
// deployments.
type MemoryLeaderboard struct {
	mu     sync.Mutex
	scores map[string]int
	teams  map[string]string
}

func NewMemoryLeaderboard() *MemoryLeaderboard {
	return &MemoryLeaderboard{
		scores: make(map[string]int),
		teams:  make(map[string]string),
	}
}

func (l *MemoryLeaderboard) RecordScore(ctx context.Context, roomID, teamName string, score int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if score > l.scores[roomID] {
		l.scores[roomID] = score
	}
	if teamName != "" {
		l.teams[roomID] = teamName
	}
	return nil
}

func (l *MemoryLeaderboard) Top(ctx context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, 0, len(l.scores))
	for roomID, score := range l.scores {
		teamName := l.teams[roomID]
		if teamName == "" {
			teamName = roomID
		}
		entries = append(entries, Entry{RoomID: roomID, TeamName: teamName, Score: score})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].RoomID < entries[j].RoomID
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
