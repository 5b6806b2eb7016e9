package stateview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"grovetender/internal/app/ports"
	"grovetender/internal/domain/grove"
)

var ErrInvalidRequest = errors.New("invalid stateview request")

const (
	rankCacheTTL    = 60 * time.Second
	countCacheKey   = "grove:tree_count"
	rankCachePrefix = "grove:rank:"
)

// UseCase serves the read side: canonical status plus the leaderboard.
// Tree counts and per-community ranks are cached for 60s; the cache is
// best-effort and never on the error path.
type UseCase struct {
	Trees ports.TreeRepository
	Cache ports.Cache
	Curve *grove.Curve
	Now   func() time.Time
}

type StatusResponse struct {
	Tree             grove.TreeAggregate `json:"tree"`
	RemainingSeconds int64               `json:"remaining_seconds"`
	NextEligibleAt   int64               `json:"next_eligible_at"`
	View             grove.View          `json:"view"`
}

func (u UseCase) Status(ctx context.Context, communityID string) (StatusResponse, error) {
	if communityID == "" {
		return StatusResponse{}, ErrInvalidRequest
	}
	agg, err := u.Trees.GetByCommunityID(ctx, communityID)
	if err != nil {
		return StatusResponse{}, err
	}
	now := u.now().Unix()
	return StatusResponse{
		Tree:             agg,
		RemainingSeconds: u.Curve.RemainingSeconds(&agg, now),
		NextEligibleAt:   u.Curve.NextEligibleAt(&agg, now),
		View:             CanonicalView(&agg, now, u.Curve),
	}, nil
}

type LeaderboardRequest struct {
	CommunityID string
	Limit       int
	Offset      int
}

type LeaderboardEntry struct {
	CommunityID  string `json:"community_id"`
	Size         int64  `json:"size"`
	Contributors int    `json:"contributors"`
}

type LeaderboardResponse struct {
	Entries   []LeaderboardEntry `json:"entries"`
	TreeCount int64              `json:"tree_count"`
	Rank      int64              `json:"rank,omitempty"`
}

func (u UseCase) Leaderboard(ctx context.Context, req LeaderboardRequest) (LeaderboardResponse, error) {
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	top, err := u.Trees.ListTopBySize(ctx, req.Limit, req.Offset)
	if err != nil {
		return LeaderboardResponse{}, err
	}
	entries := make([]LeaderboardEntry, 0, len(top))
	for _, agg := range top {
		entries = append(entries, LeaderboardEntry{
			CommunityID:  agg.CommunityID,
			Size:         agg.Size,
			Contributors: len(agg.Contributors),
		})
	}

	count, err := u.treeCount(ctx)
	if err != nil {
		return LeaderboardResponse{}, err
	}

	resp := LeaderboardResponse{Entries: entries, TreeCount: count}
	if req.CommunityID != "" {
		rank, err := u.rankFor(ctx, req.CommunityID)
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			return LeaderboardResponse{}, err
		}
		resp.Rank = rank
	}
	return resp, nil
}

func (u UseCase) treeCount(ctx context.Context) (int64, error) {
	if u.Cache != nil {
		if v, ok := u.Cache.Get(countCacheKey); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		}
	}
	n, err := u.Trees.CountTrees(ctx)
	if err != nil {
		return 0, err
	}
	if u.Cache != nil {
		u.Cache.SetWithTTL(countCacheKey, rankCacheTTL, strconv.FormatInt(n, 10))
	}
	return n, nil
}

func (u UseCase) rankFor(ctx context.Context, communityID string) (int64, error) {
	key := rankCachePrefix + communityID
	if u.Cache != nil {
		if v, ok := u.Cache.Get(key); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		}
	}
	agg, err := u.Trees.GetByCommunityID(ctx, communityID)
	if err != nil {
		return 0, err
	}
	larger, err := u.Trees.CountLarger(ctx, agg.Size)
	if err != nil {
		return 0, fmt.Errorf("count larger trees: %w", err)
	}
	rank := larger + 1
	if u.Cache != nil {
		u.Cache.SetWithTTL(key, rankCacheTTL, strconv.FormatInt(rank, 10))
	}
	return rank, nil
}

func (u UseCase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}
