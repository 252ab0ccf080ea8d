package services

import (
	"time"

	"habit-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService owns the append-only reward history. Append is a plain
// single-row insert: callers that need atomicity with a grant pass their own
// transaction handle, callers that treat the row as best-effort audit use the
// service DB directly.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// Append inserts one ledger row (best-effort path).
func (s *LedgerService) Append(entry *models.RewardHistory) error {
	return s.AppendTx(s.DB, entry)
}

// AppendTx inserts one ledger row inside the caller's transaction.
func (s *LedgerService) AppendTx(tx *gorm.DB, entry *models.RewardHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return tx.Create(entry).Error
}

// HistoryFilters narrows GetRewardHistory. Zero values mean "no filter".
type HistoryFilters struct {
	Type *models.RewardType
	From *time.Time
	To   *time.Time
	Page int
	Size int
}

// GetRewardHistory returns one page of a user's ledger, newest first, plus
// the total row count for that filter.
func (s *LedgerService) GetRewardHistory(userID string, f HistoryFilters) ([]models.RewardHistory, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 100 {
		f.Size = 20
	}

	query := s.DB.Model(&models.RewardHistory{}).Where("user_id = ?", userID)
	if f.Type != nil {
		query = query.Where("type = ?", *f.Type)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.RewardHistory
	err := query.
		Order("created_at DESC").
		Limit(f.Size).Offset((f.Page - 1) * f.Size).
		Find(&entries).Error
	return entries, total, err
}

// RewardStats aggregates a user's ledger per reward type.
type RewardStats struct {
	TotalXP      int64 `json:"total_xp"`
	TotalCoins   int64 `json:"total_coins"`
	BadgesEarned int64 `json:"badges_earned"`
	ItemsGranted int64 `json:"items_granted"`
}

// GetRewardStats sums the ledger per type. XP and coins sum amounts; badges
// and items count rows.
func (s *LedgerService) GetRewardStats(userID string) (*RewardStats, error) {
	type row struct {
		Type  models.RewardType
		Sum   int64
		Count int64
	}
	var rows []row
	err := s.DB.Model(&models.RewardHistory{}).
		Select("type, COALESCE(SUM(amount), 0) AS sum, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &RewardStats{}
	for _, r := range rows {
		switch r.Type {
		case models.RewardTypeXP:
			stats.TotalXP = r.Sum
		case models.RewardTypeCoins:
			stats.TotalCoins = r.Sum
		case models.RewardTypeBadge:
			stats.BadgesEarned = r.Count
		case models.RewardTypeItem:
			stats.ItemsGranted = r.Count
		}
	}
	return stats, nil
}

// GetRecentRewards returns the user's n newest ledger rows.
func (s *LedgerService) GetRecentRewards(userID string, n int) ([]models.RewardHistory, error) {
	if n < 1 || n > 100 {
		n = 10
	}
	var entries []models.RewardHistory
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(n).
		Find(&entries).Error
	return entries, err
}

// FeedItem is one social-feed entry: every ledger row sharing a SourceID is
// collapsed into a single item with summed XP/coin amounts.
type FeedItem struct {
	SourceID    string              `json:"source_id"`
	Source      models.RewardSource `json:"source"`
	Description string              `json:"description"`
	XP          int64               `json:"xp"`
	Coins       int64               `json:"coins"`
	Badge       bool                `json:"badge"`
	CreatedAt   time.Time           `json:"created_at"`
}

// GetRewardFeed groups the user's newest ledger rows by SourceID. Rows
// without a SourceID stay individual items. Two passes: pick the newest
// `limit` group keys first, then load every row of those groups, so a group
// whose rows sit far apart in the history still sums completely.
func (s *LedgerService) GetRewardFeed(userID string, limit int) ([]FeedItem, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	// Rows without a SourceID group by their own id (singleton items).
	var keys []struct{ GroupKey string }
	if err := s.DB.Model(&models.RewardHistory{}).
		Select("CASE WHEN source_id = '' THEN id ELSE source_id END AS group_key").
		Where("user_id = ?", userID).
		Group("group_key").
		Order("MAX(created_at) DESC").
		Limit(limit).
		Scan(&keys).Error; err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.GroupKey
	}

	var entries []models.RewardHistory
	if err := s.DB.Where("user_id = ? AND (source_id IN ? OR id IN ?)", userID, ids, ids).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	// Newest-first iteration means groups appear in newest-row order.
	var feed []FeedItem
	index := map[string]int{} // sourceID → position in feed
	for _, e := range entries {
		if e.SourceID != "" {
			if pos, ok := index[e.SourceID]; ok {
				addToFeedItem(&feed[pos], &e)
				continue
			}
		}
		item := FeedItem{
			SourceID:    e.SourceID,
			Source:      e.Source,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		}
		addToFeedItem(&item, &e)
		feed = append(feed, item)
		if e.SourceID != "" {
			index[e.SourceID] = len(feed) - 1
		}
	}
	return feed, nil
}

func addToFeedItem(item *FeedItem, e *models.RewardHistory) {
	switch e.Type {
	case models.RewardTypeXP:
		item.XP += e.Amount
	case models.RewardTypeCoins:
		item.Coins += e.Amount
	case models.RewardTypeBadge:
		item.Badge = true
	}
	if item.Description == "" {
		item.Description = e.Description
	}
}
