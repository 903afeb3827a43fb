package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"journey-quiz-service/internal/domain"
)

// RankingCoordinator recomputes and persists ordered standings for a scope
// (one session, or one quiz for solo attempts). Recomputes for the same
// scope are serialized through a per-scope mutex so concurrent answers can
// never interleave a read-modify-write; different scopes never contend.
type RankingCoordinator struct {
	sessions SessionRepository
	attempts AttemptRepository
	identity IdentityResolver
	notify   func(sessionID string, standings domain.Standings)
	clock    func() time.Time

	scopes *keyedMutex

	seqMu sync.Mutex
	seq   map[string]uint64
}

// NewRankingCoordinator wires the coordinator. identity may be nil; notify
// (typically LiveBroadcaster.Publish) may be nil and is invoked outside the
// per-scope critical section so slow consumers never extend its hold time.
func NewRankingCoordinator(sessions SessionRepository, attempts AttemptRepository, identity IdentityResolver, notify func(string, domain.Standings)) *RankingCoordinator {
	return &RankingCoordinator{
		sessions: sessions,
		attempts: attempts,
		identity: identity,
		notify:   notify,
		clock:    time.Now,
		scopes:   newKeyedMutex(),
		seq:      make(map[string]uint64),
	}
}

// nextVersion must be called while the scope lock is held so versions order
// the same way the recomputes did.
func (rc *RankingCoordinator) nextVersion(key string) uint64 {
	rc.seqMu.Lock()
	defer rc.seqMu.Unlock()
	rc.seq[key]++
	return rc.seq[key]
}

// RecomputeSession rebuilds the session's standings from the roster's
// aggregates, persists positions, and pushes the snapshot to observers.
func (rc *RankingCoordinator) RecomputeSession(ctx context.Context, sessionID string) (domain.Standings, error) {
	key := "session:" + sessionID
	lock := rc.scopes.get(key)
	lock.Lock()

	participants, err := rc.sessions.ListParticipants(ctx, sessionID)
	if err != nil {
		lock.Unlock()
		return domain.Standings{}, err
	}

	rows := make([]rankRow, 0, len(participants))
	stored := make(map[string]int, len(participants))
	for _, p := range participants {
		rows = append(rows, rankRow{ownerID: p.ID, name: p.DisplayName, score: p.Score, elapsed: p.ElapsedSeconds})
		stored[p.ID] = p.Position
	}
	entries := orderEntries(rows)
	for _, entry := range entries {
		if stored[entry.OwnerID] == entry.Position {
			continue
		}
		if err := rc.sessions.SetParticipantPosition(ctx, entry.OwnerID, entry.Position); err != nil {
			lock.Unlock()
			return domain.Standings{}, err
		}
	}
	standings := domain.Standings{
		ScopeID:   sessionID,
		Version:   rc.nextVersion(key),
		Entries:   entries,
		UpdatedAt: rc.clock(),
	}
	lock.Unlock()

	// Versions were assigned under the lock, so the broadcaster can discard
	// a snapshot overtaken by a newer one on the way out.
	if rc.notify != nil {
		rc.notify(sessionID, standings)
	}
	return standings, nil
}

// RecomputeQuiz rebuilds the solo-attempt standings for a quiz and persists
// final positions on each attempt.
func (rc *RankingCoordinator) RecomputeQuiz(ctx context.Context, quizID string) (domain.Standings, error) {
	key := "quiz:" + quizID
	lock := rc.scopes.get(key)
	lock.Lock()
	defer lock.Unlock()

	attempts, err := rc.attempts.ListAttemptsByQuiz(ctx, quizID)
	if err != nil {
		return domain.Standings{}, err
	}

	rows := make([]rankRow, 0, len(attempts))
	stored := make(map[string]int, len(attempts))
	for _, a := range attempts {
		rows = append(rows, rankRow{ownerID: a.ID, name: rc.attemptName(ctx, a), score: a.Score, elapsed: a.ElapsedSeconds})
		stored[a.ID] = a.Position
	}
	entries := orderEntries(rows)
	for _, entry := range entries {
		if stored[entry.OwnerID] == entry.Position {
			continue
		}
		if err := rc.attempts.SetAttemptPosition(ctx, entry.OwnerID, entry.Position); err != nil {
			return domain.Standings{}, err
		}
	}
	return domain.Standings{
		ScopeID:   quizID,
		Version:   rc.nextVersion(key),
		Entries:   entries,
		UpdatedAt: rc.clock(),
	}, nil
}

func (rc *RankingCoordinator) attemptName(ctx context.Context, a domain.Attempt) string {
	if rc.identity == nil {
		return a.UserRef
	}
	name, err := rc.identity.DisplayName(ctx, a.UserRef)
	if err != nil || name == "" {
		return a.UserRef
	}
	return name
}

type rankRow struct {
	ownerID string
	name    string
	score   int
	elapsed float64
}

// orderEntries sorts by score descending, then elapsed time ascending, with
// the caller's (insertion) order as the stable final tiebreak, and assigns
// contiguous 1-based positions.
func orderEntries(rows []rankRow) []domain.StandingsEntry {
	ordered := make([]rankRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].elapsed < ordered[j].elapsed
	})

	entries := make([]domain.StandingsEntry, 0, len(ordered))
	for i, row := range ordered {
		entries = append(entries, domain.StandingsEntry{
			OwnerID:        row.ownerID,
			DisplayName:    row.name,
			Score:          row.score,
			ElapsedSeconds: row.elapsed,
			Position:       i + 1,
		})
	}
	return entries
}
