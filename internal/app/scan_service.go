package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/domain"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/metrics"
)

type ScanRepository interface {
	// InsertScan persists one attempt and returns it with the store-assigned
	// id and scan time.
	InsertScan(ctx context.Context, scan domain.ScanResult) (domain.ScanResult, error)
	ListRecentScans(ctx context.Context, userID string, limit int) ([]domain.ScanResult, error)
}

const (
	defaultHistoryLimit = 25
	defaultLoadTimeout  = 10 * time.Second
	defaultLoadAttempts = 3
	defaultBackoffBase  = 500 * time.Millisecond
)

// ScanService turns raw scanned strings into classified, persisted scan
// results and keeps a per-user recency-ordered history consistent with both
// local submits and results arriving from other stations via the change
// feed. All cache mutations are id-deduplicated, so the two paths can race
// freely.
type ScanService struct {
	repo ScanRepository

	historyLimit int
	loadTimeout  time.Duration
	loadAttempts int
	backoffBase  time.Duration

	mu        sync.Mutex
	histories map[string]*scanHistory
	subs      map[string]map[chan domain.ScanResult]struct{}
	closed    bool
}

// scanHistory holds one user's recent results, newest first.
type scanHistory struct {
	results []domain.ScanResult
	ids     map[string]struct{}
}

type ScanServiceOption func(*ScanService)

// WithHistoryLimit bounds the in-memory window used for duplicate checks.
func WithHistoryLimit(n int) ScanServiceOption {
	return func(s *ScanService) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithLoadTimeout bounds each individual history fetch attempt.
func WithLoadTimeout(d time.Duration) ScanServiceOption {
	return func(s *ScanService) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithLoadAttempts sets the retry ceiling for Load.
func WithLoadAttempts(n int) ScanServiceOption {
	return func(s *ScanService) {
		if n > 0 {
			s.loadAttempts = n
		}
	}
}

// WithBackoffBase sets the first retry delay; it doubles per attempt.
func WithBackoffBase(d time.Duration) ScanServiceOption {
	return func(s *ScanService) {
		if d >= 0 {
			s.backoffBase = d
		}
	}
}

func NewScanService(repo ScanRepository, opts ...ScanServiceOption) *ScanService {
	s := &ScanService{
		repo:         repo,
		historyLimit: defaultHistoryLimit,
		loadTimeout:  defaultLoadTimeout,
		loadAttempts: defaultLoadAttempts,
		backoffBase:  defaultBackoffBase,
		histories:    make(map[string]*scanHistory),
		subs:         make(map[string]map[chan domain.ScanResult]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit classifies a raw payload, persists the result and merges it into
// the user's history. A persist failure is returned as-is: the operator has
// to know the scan was not recorded, so there is no silent retry here.
func (s *ScanService) Submit(ctx context.Context, userID, raw string) (domain.ScanResult, error) {
	scan := s.classify(userID, raw)

	persisted, err := s.repo.InsertScan(ctx, scan)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("insert scan: %w", err)
	}

	metrics.ScansTotal.WithLabelValues(string(persisted.Status)).Inc()
	s.merge(persisted)
	return persisted, nil
}

func (s *ScanService) classify(userID, raw string) domain.ScanResult {
	scan := domain.ScanResult{UserID: userID}

	payload, err := domain.ParseTicketPayload(raw)
	if err != nil {
		scan.EventName = domain.InvalidEventName
		scan.Status = domain.ScanStatusInvalid
		scan.Message = domain.MessageInvalidFormat
		return scan
	}

	scan.EventName = payload.EventName
	if scan.EventName == "" {
		scan.EventName = domain.UnknownEventName
	}
	scan.TicketNumber = payload.TicketNumber

	if s.hasValidScan(userID, scan.Key()) {
		scan.Status = domain.ScanStatusDuplicate
		scan.Message = domain.MessageDuplicate
	} else {
		scan.Status = domain.ScanStatusValid
		scan.Message = domain.MessageValid
	}
	return scan
}

// hasValidScan reports whether the current history window already holds a
// valid result for the same (eventName, ticketNumber) pair.
func (s *ScanService) hasValidScan(userID string, key domain.ScanKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[userID]
	if !ok {
		return false
	}
	for _, r := range h.results {
		if r.Status == domain.ScanStatusValid && r.Key() == key {
			return true
		}
	}
	return false
}

// Load replaces the user's history wholesale with the most recent results,
// retrying transient failures with exponential backoff up to the retry
// ceiling. On exhaustion the cache is emptied and the terminal error
// returned; callers are expected to fail soft.
func (s *ScanService) Load(ctx context.Context, userID string) ([]domain.ScanResult, error) {
	var lastErr error
	for attempt := 0; attempt < s.loadAttempts; attempt++ {
		if attempt > 0 {
			metrics.HistoryLoadRetriesTotal.Inc()
			if err := sleepContext(ctx, s.backoffBase<<(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
		results, err := s.repo.ListRecentScans(attemptCtx, userID, s.historyLimit)
		cancel()
		if err == nil {
			s.replace(userID, results)
			return results, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	s.replace(userID, nil)
	return []domain.ScanResult{}, fmt.Errorf("load scans: %w", lastErr)
}

// ApplyRemote merges one result pushed by the change feed. Echoes of this
// session's own submits carry the same store-assigned id and are dropped by
// the id-based union.
func (s *ScanService) ApplyRemote(scan domain.ScanResult) {
	if s.merge(scan) {
		metrics.LiveUpdatesTotal.Inc()
	}
}

// History returns a copy of the user's cached results, newest first.
func (s *ScanService) History(userID string) []domain.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[userID]
	if !ok {
		return nil
	}
	out := make([]domain.ScanResult, len(h.results))
	copy(out, h.results)
	return out
}

// Subscribe returns a channel receiving every result newly merged into the
// user's history. The channel closes when the context is canceled or the
// service shuts down; slow consumers miss updates rather than block scans.
func (s *ScanService) Subscribe(ctx context.Context, userID string) <-chan domain.ScanResult {
	ch := make(chan domain.ScanResult, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[chan domain.ScanResult]struct{})
	}
	s.subs[userID][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.unsubscribe(userID, ch)
	}()
	return ch
}

// Close tears down the service: all subscriber channels are closed and the
// per-user caches dropped. The service is created on session start and
// closed on sign-out; nothing survives as ambient global state.
func (s *ScanService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, chans := range s.subs {
		for ch := range chans {
			close(ch)
		}
	}
	s.subs = make(map[string]map[chan domain.ScanResult]struct{})
	s.histories = make(map[string]*scanHistory)
}

// merge adds the result to the front of the user's history unless its id is
// already present. Reports whether the result was added.
func (s *ScanService) merge(scan domain.ScanResult) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	h := s.histories[scan.UserID]
	if h == nil {
		h = &scanHistory{ids: make(map[string]struct{})}
		s.histories[scan.UserID] = h
	}
	if _, seen := h.ids[scan.ID]; seen {
		s.mu.Unlock()
		return false
	}

	h.ids[scan.ID] = struct{}{}
	h.results = append([]domain.ScanResult{scan}, h.results...)
	if len(h.results) > s.historyLimit {
		dropped := h.results[s.historyLimit:]
		h.results = h.results[:s.historyLimit]
		for _, d := range dropped {
			delete(h.ids, d.ID)
		}
	}

	// Non-blocking sends under the lock: channels are only closed with the
	// lock held, so this cannot race a close.
	for ch := range s.subs[scan.UserID] {
		select {
		case ch <- scan:
		default:
		}
	}
	s.mu.Unlock()
	return true
}

// replace swaps the user's history wholesale; last writer wins when loads
// overlap.
func (s *ScanService) replace(userID string, results []domain.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	h := &scanHistory{
		results: make([]domain.ScanResult, len(results)),
		ids:     make(map[string]struct{}, len(results)),
	}
	copy(h.results, results)
	for _, r := range results {
		h.ids[r.ID] = struct{}{}
	}
	s.histories[userID] = h
}

func (s *ScanService) unsubscribe(userID string, ch chan domain.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if chans, ok := s.subs[userID]; ok {
		if _, present := chans[ch]; present {
			delete(chans, ch)
			close(ch)
		}
		if len(chans) == 0 {
			delete(s.subs, userID)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
