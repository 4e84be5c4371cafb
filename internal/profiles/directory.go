// Package profiles reads beekeeper contact details from the profile store.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/birokt/smittevern/internal/database"
)

// UnknownName is shown when a profile cannot be resolved
const UnknownName = "Ukjent"

// ErrProfileNotFound is returned when no profile exists for a user id
var ErrProfileNotFound = errors.New("profile not found")

// ProfileDirectory resolves a user id to contact details
type ProfileDirectory interface {
	LookupProfile(ctx context.Context, userID string) (*database.Profile, error)
}

// CandidateSelector picks default neighbor alert addressees
type CandidateSelector interface {
	ActiveApiaryOwners(ctx context.Context, excludeUserID string) ([]string, error)
}

// Directory reads the profiles table, with an optional Redis read-through cache
type Directory struct {
	db     *gorm.DB
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDirectory creates a directory. cache may be nil.
func NewDirectory(db *gorm.DB, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Directory{db: db, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

// LookupProfile returns the profile for userID
func (d *Directory) LookupProfile(ctx context.Context, userID string) (*database.Profile, error) {
	if userID == "" {
		return nil, ErrProfileNotFound
	}

	if p, ok := d.fromCache(ctx, userID); ok {
		return p, nil
	}

	var profile database.Profile
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	d.toCache(ctx, &profile)
	return &profile, nil
}

func (d *Directory) fromCache(ctx context.Context, userID string) (*database.Profile, bool) {
	if d.cache == nil {
		return nil, false
	}
	data, err := d.cache.Get(ctx, cacheKey(userID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		d.logger.Warn("profile cache read failed", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}

	var p database.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		d.logger.Warn("profile cache entry corrupt", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}
	return &p, true
}

func (d *Directory) toCache(ctx context.Context, p *database.Profile) {
	if d.cache == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, cacheKey(p.UserID), data, d.ttl).Err(); err != nil {
		d.logger.Warn("profile cache write failed", zap.String("user_id", p.UserID), zap.Error(err))
	}
}

// ActiveApiaryOwners lists user ids with an active apiary, excluding one user
func (d *Directory) ActiveApiaryOwners(ctx context.Context, excludeUserID string) ([]string, error) {
	var ids []string
	q := d.db.WithContext(ctx).Model(&database.Profile{}).Where("has_active_apiary = ?", true)
	if excludeUserID != "" {
		q = q.Where("user_id <> ?", excludeUserID)
	}
	if err := q.Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list active apiary owners: %w", err)
	}
	return ids, nil
}

// DisplayName returns the profile name, or UnknownName when lookup fails
func DisplayName(ctx context.Context, dir ProfileDirectory, userID string) string {
	if dir == nil || userID == "" {
		return UnknownName
	}
	p, err := dir.LookupProfile(ctx, userID)
	if err != nil || p == nil || p.FullName == "" {
		return UnknownName
	}
	return p.FullName
}
