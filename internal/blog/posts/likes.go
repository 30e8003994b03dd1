package posts

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const likeKeyPrefix = "post:likes:"

// LikeStore keeps the per-post set of liking user ids in Redis. A set
// makes the toggle naturally idempotent per user and SCARD gives the
// count without a separate counter to keep in sync.
type LikeStore struct {
	client *redis.Client
}

// NewLikeStore constructs a LikeStore.
func NewLikeStore(client *redis.Client) *LikeStore {
	return &LikeStore{client: client}
}

// Toggle flips the user's like on the post and returns the new state
// plus the resulting like count.
func (s *LikeStore) Toggle(ctx context.Context, postID, userID int64) (bool, int64, error) {
	key := likeKey(postID)
	member := strconv.FormatInt(userID, 10)

	added, err := s.client.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, 0, fmt.Errorf("posts: like %d: %w", postID, err)
	}
	liked := added == 1
	if !liked {
		if err := s.client.SRem(ctx, key, member).Err(); err != nil {
			return false, 0, fmt.Errorf("posts: unlike %d: %w", postID, err)
		}
	}
	count, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return liked, 0, fmt.Errorf("posts: like count %d: %w", postID, err)
	}
	return liked, count, nil
}

// Count returns the number of likes on the post.
func (s *LikeStore) Count(ctx context.Context, postID int64) (int64, error) {
	count, err := s.client.SCard(ctx, likeKey(postID)).Result()
	if err != nil {
		return 0, fmt.Errorf("posts: like count %d: %w", postID, err)
	}
	return count, nil
}

// Clear drops the like set, used when a post is deleted.
func (s *LikeStore) Clear(ctx context.Context, postID int64) error {
	if err := s.client.Del(ctx, likeKey(postID)).Err(); err != nil {
		return fmt.Errorf("posts: clear likes %d: %w", postID, err)
	}
	return nil
}

func likeKey(postID int64) string {
	return likeKeyPrefix + strconv.FormatInt(postID, 10)
}
