package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"gesture-quiz-service/internal/domain"
)

const (
	pointsKey = "leaderboard:points"
	namesKey  = "leaderboard:names"
)

// Leaderboard keeps participant points in a sorted set shared by every instance:
//
//	ZINCRBY leaderboard:points {points} {userID}
//	HSET    leaderboard:names  {userID} {displayName}
type Leaderboard struct {
	client *redis.Client
	now    func() time.Time
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client, now: time.Now}
}

func (l *Leaderboard) AddPoints(ctx context.Context, userID, displayName string, points int) error {
	pipe := l.client.TxPipeline()
	pipe.ZIncrBy(ctx, pointsKey, float64(points), userID)
	if displayName != "" {
		pipe.HSet(ctx, namesKey, userID, displayName)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns entries by points desc; Redis orders equal scores by member desc.
func (l *Leaderboard) Top(ctx context.Context, limit int) (domain.Leaderboard, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ranked, err := l.client.ZRevRangeWithScores(ctx, pointsKey, 0, stop).Result()
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	if len(ranked) == 0 {
		return domain.Leaderboard{Entries: entries, UpdatedAt: l.now()}, nil
	}
	ids := make([]string, 0, len(ranked))
	for _, z := range ranked {
		ids = append(ids, z.Member.(string))
	}
	names, err := l.client.HMGet(ctx, namesKey, ids...).Result()
	if err != nil {
		return domain.Leaderboard{}, err
	}
	for i, z := range ranked {
		name, _ := names[i].(string)
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      ids[i],
			DisplayName: name,
			Score:       int(z.Score),
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: l.now()}, nil
}
