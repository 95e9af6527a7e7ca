package equipment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal/core/events"
	"github.com/patrickmn/go-cache"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Equipment, error)
	List(ctx context.Context, filter ListFilter) ([]*Equipment, error)
	Create(ctx context.Context, e *Equipment) error
}

// Service serves catalog reads. Stock mutations go through the ledger inside
// the borrowing transaction, never through here.
type Service struct {
	repo   Repository
	cache  *cache.Cache
	logger *slog.Logger
}

func NewService(repo Repository, catalog *cache.Cache, logger *slog.Logger) *Service {
	if catalog == nil {
		catalog = cache.New(30*time.Second, 5*time.Minute)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: catalog, logger: logger}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Equipment, error) {
	key := listKey(filter)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*Equipment), nil
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list equipment", "error", err)
		return nil, err
	}
	s.cache.SetDefault(key, items)
	return items, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Equipment, error) {
	key := fmt.Sprintf("equipment:%d", id)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*Equipment), nil
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, item)
	return item, nil
}

// Invalidate drops every cached catalog entry.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

// HandleInventoryChanged is subscribed to approve and return events.
func (s *Service) HandleInventoryChanged(_ context.Context, event events.Event) error {
	s.Invalidate()
	s.logger.Debug("equipment catalog cache flushed", "event_type", event.EventType(), "event_id", event.EventID())
	return nil
}

func listKey(f ListFilter) string {
	return fmt.Sprintf("equipment:list:%s:%s:%s", f.Status, strings.ToLower(f.Category), strings.ToLower(f.Search))
}
