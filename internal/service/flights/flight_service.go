package flights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	Search(ctx context.Context, in SearchInput) (*SearchResult, error)
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	HasAvailableSeats(ctx context.Context, id string, class domain.CabinClass) (bool, error)
	Price(ctx context.Context, id string, class domain.CabinClass) (int64, error)
}

// FlightCache stores search pages per cache generation.
type FlightCache interface {
	FlightsVersion(ctx context.Context) (int64, error)
	GetFlightPage(ctx context.Context, version int64, q repository.FlightQuery) (*repository.FlightPage, error)
	SetFlightPage(ctx context.Context, version int64, q repository.FlightQuery, page *repository.FlightPage) error
}

type SearchInput struct {
	FlightType    domain.FlightType
	From          string
	To            string
	DepartureDate time.Time
	ReturnDate    *time.Time
	MinPriceCents *int64
	MaxPriceCents *int64
	DirectOnly    bool
	Page          int
	Size          int
	SortBy        string
	SortDirection string
}

// SearchResult carries both legs. Paging metadata describes the outbound
// leg only; the return leg reuses its page and size.
type SearchResult struct {
	FlightType   domain.FlightType
	Outbound     []domain.Flight
	Return       []domain.Flight
	TotalResults int
	CurrentPage  int
	PageSize     int
	TotalPages   int
	IsFirst      bool
	IsLast       bool
}

type FlightService struct {
	repo    repository.FlightRepository
	cache   FlightCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type FlightServiceOption func(*FlightService)

func WithLogger(l *zap.Logger) FlightServiceOption {
	return func(s *FlightService) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) FlightServiceOption {
	return func(s *FlightService) { s.metrics = m }
}

// NewFlightService wires the service. cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{repo: repo, cache: cache, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlightService) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	if in.Page < 0 {
		return nil, fmt.Errorf("page must not be negative: %w", domain.ErrInvalidRequest)
	}
	if in.Size < 1 {
		return nil, fmt.Errorf("page size must be at least 1: %w", domain.ErrInvalidRequest)
	}
	if in.FlightType == domain.FlightTypeReturn {
		if in.ReturnDate == nil {
			return nil, fmt.Errorf("return date is required for return flights: %w", domain.ErrInvalidRequest)
		}
		if !startOfDay(*in.ReturnDate).After(startOfDay(in.DepartureDate)) {
			return nil, fmt.Errorf("return date must be after departure date: %w", domain.ErrInvalidRequest)
		}
	}

	sortBy, desc, err := ParseSort(in.SortBy, in.SortDirection)
	if err != nil {
		return nil, err
	}

	version := s.cacheVersion(ctx)

	outbound, err := s.searchLeg(ctx, version, in, in.From, in.To, in.DepartureDate, sortBy, desc)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		FlightType:   in.FlightType,
		Outbound:     outbound.Flights,
		TotalResults: outbound.Total,
		CurrentPage:  outbound.Page,
		PageSize:     outbound.Size,
		TotalPages:   outbound.TotalPages(),
		IsFirst:      outbound.IsFirst(),
		IsLast:       outbound.IsLast(),
	}

	if in.FlightType == domain.FlightTypeReturn {
		back, err := s.searchLeg(ctx, version, in, in.To, in.From, *in.ReturnDate, sortBy, desc)
		if err != nil {
			return nil, err
		}
		result.Return = back.Flights
	}

	if s.metrics != nil {
		s.metrics.FlightSearches.WithLabelValues(string(in.FlightType)).Inc()
	}
	return result, nil
}

// cacheVersion returns nil when the cache is absent or unreadable, which
// sends the whole search to the store.
func (s *FlightService) cacheVersion(ctx context.Context) *int64 {
	if s.cache == nil {
		return nil
	}
	version, err := s.cache.FlightsVersion(ctx)
	if err != nil {
		s.logger.Warn("flight cache version read failed", zap.Error(err))
		return nil
	}
	return &version
}

func (s *FlightService) searchLeg(ctx context.Context, version *int64, in SearchInput, from, to string, day time.Time, sortBy repository.SortField, desc bool) (*repository.FlightPage, error) {
	start := startOfDay(day)
	q := repository.FlightQuery{
		From:          from,
		To:            to,
		DepartureFrom: start,
		DepartureTo:   start.AddDate(0, 0, 1),
		MinPriceCents: in.MinPriceCents,
		MaxPriceCents: in.MaxPriceCents,
		DirectOnly:    in.DirectOnly,
		Page:          in.Page,
		Size:          in.Size,
		SortBy:        sortBy,
		Descending:    desc,
	}

	if version != nil {
		cached, err := s.cache.GetFlightPage(ctx, *version, q)
		if err != nil {
			s.logger.Warn("flight cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	page, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	if version != nil {
		if err := s.cache.SetFlightPage(ctx, *version, q, page); err != nil {
			s.logger.Warn("flight cache write failed", zap.Error(err))
		}
	}
	return page, nil
}

// ParseSort maps the public sort parameters onto a repository sort. An empty
// field means departure time, an empty direction means ascending.
func ParseSort(field, direction string) (repository.SortField, bool, error) {
	var sortBy repository.SortField
	switch repository.SortField(strings.TrimSpace(field)) {
	case "":
		sortBy = repository.SortByDepartureTime
	case repository.SortByPrice, repository.SortByDepartureTime, repository.SortByOrigin, repository.SortByDestination:
		sortBy = repository.SortField(strings.TrimSpace(field))
	default:
		return "", false, fmt.Errorf("invalid sort field %q: %w", field, domain.ErrInvalidRequest)
	}

	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "asc":
		return sortBy, false, nil
	case "desc":
		return sortBy, true, nil
	default:
		return "", false, fmt.Errorf("invalid sort direction %q: %w", direction, domain.ErrInvalidRequest)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *FlightService) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) HasAvailableSeats(ctx context.Context, id string, class domain.CabinClass) (bool, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return f.HasAvailableSeats(class), nil
}

func (s *FlightService) Price(ctx context.Context, id string, class domain.CabinClass) (int64, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return f.Price(class)
}

var _ FlightUseCase = (*FlightService)(nil)
