package checkin

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"checkin-backend/internal/cluster"
	"checkin-backend/internal/model"
	"checkin-backend/internal/store"
)

// Service is the admission-control state machine. Every transition runs the
// gates (time window, card uniqueness, capacity) before mutating state, and
// the count-compare-mutate sequence for a cluster is serialized by that
// cluster's mutex. The store commits each transition atomically.
type Service struct {
	store     store.Store
	env       string
	loc       *time.Location
	threshold int
	notifier  Notifier

	now func() time.Time

	mu map[cluster.Cluster]*sync.Mutex
}

// NewService creates the admission service for one environment.
func NewService(s store.Store, env string, loc *time.Location, notifyThreshold int, notifier Notifier) *Service {
	if loc == nil {
		loc = time.Local
	}
	mu := make(map[cluster.Cluster]*sync.Mutex, 2)
	for _, c := range cluster.All() {
		mu[c] = &sync.Mutex{}
	}
	return &Service{
		store:     s,
		env:       env,
		loc:       loc,
		threshold: notifyThreshold,
		notifier:  notifier,
		now:       time.Now,
		mu:        mu,
	}
}

// resolveGate loads the effective config for now and builds the time
// window from it.
func (s *Service) resolveGate(ctx context.Context, now time.Time) (*model.AccessConfig, cluster.Window, error) {
	cfg, err := s.store.ResolveConfig(ctx, s.env, now)
	if errors.Is(err, store.ErrConfigMissing) {
		log.Printf("no access config for env %q at %s; refusing all gated actions", s.env, now.Format("2006-01-02"))
		return nil, cluster.Window{}, newError(KindConfigMissing,
			"no access configuration exists for %s", now.Format("2006-01-02"))
	}
	if err != nil {
		return nil, cluster.Window{}, internalError("failed to resolve access config", err)
	}

	window, err := cluster.NewWindow(cfg.OpenAt, cfg.CloseAt)
	if err != nil {
		return nil, cluster.Window{}, internalError("access config has an invalid time window", err)
	}
	return cfg, window, nil
}

func maxFor(cfg *model.AccessConfig, c cluster.Cluster) int {
	if c == cluster.East {
		return cfg.MaxEast
	}
	return cfg.MaxWest
}

// CheckIn claims a card for the person and admits them to the card's
// cluster, subject to the time window, card uniqueness and the capacity
// ceiling.
func (s *Service) CheckIn(ctx context.Context, personID int64, cardNo int) (*CheckInResult, error) {
	person, err := s.store.PersonByID(ctx, personID)
	if err != nil {
		return nil, internalError("failed to load person", err)
	}
	if person == nil {
		return nil, newError(KindUnauthorized, "no such person")
	}

	// Duplicate check-in is an idempotent re-report, not a hard error.
	if person.CheckedIn() {
		return &CheckInResult{
			Result:    true,
			CardNo:    person.CardNo,
			State:     model.StateCheckedIn,
			PrevState: model.StateCheckedIn,
			Conflict:  true,
		}, nil
	}

	now := s.now().In(s.loc)
	cfg, window, err := s.resolveGate(ctx, now)
	if err != nil {
		return nil, err
	}
	if !person.IsAdmin() && !window.Contains(now) {
		return nil, newError(KindNotAcceptable,
			"check-in is not available right now (open hours: %s)", window)
	}

	c := cluster.OfCard(cardNo)
	max := maxFor(cfg, c)

	mu := s.mu[c]
	mu.Lock()
	defer mu.Unlock()

	holder, err := s.store.CardHolder(ctx, cardNo)
	if err != nil {
		return nil, internalError("failed to look up card holder", err)
	}
	if holder != nil {
		return nil, newError(KindConflict, "card %d is already in use", cardNo)
	}

	occupied, err := s.store.CountOccupants(ctx, c)
	if err != nil {
		return nil, internalError("failed to count occupants", err)
	}
	if occupied+1 > int64(max) {
		return nil, newError(KindNotAcceptable,
			"cluster %s is at capacity (%d/%d)", c, occupied, max)
	}

	prevState := person.State
	if err := s.store.CommitCheckIn(ctx, person, cardNo, now); err != nil {
		if errors.Is(err, store.ErrStaleTransition) {
			// A concurrent check-in by the same person won the race.
			// Report the duplicate the same way the fast path does.
			current, lerr := s.store.PersonByID(ctx, person.ID)
			if lerr != nil || current == nil {
				return nil, internalError("failed to reload person after concurrent check-in", lerr)
			}
			return &CheckInResult{
				Result:    true,
				CardNo:    current.CardNo,
				State:     model.StateCheckedIn,
				PrevState: model.StateCheckedIn,
				Conflict:  true,
			}, nil
		}
		return nil, internalError("failed to commit check-in", err)
	}

	result := &CheckInResult{
		Result:    true,
		CardNo:    person.CardNo,
		State:     person.State,
		PrevState: prevState,
	}
	result.Notice = s.maybeNotify(c, max, occupied+1)
	return result, nil
}

// CheckOut releases the caller's card and records the completed occupancy
// episode.
func (s *Service) CheckOut(ctx context.Context, personID int64) (*CheckOutResult, error) {
	person, err := s.store.PersonByID(ctx, personID)
	if err != nil {
		return nil, internalError("failed to load person", err)
	}
	if person == nil {
		return nil, newError(KindUnauthorized, "no such person")
	}

	if !person.CheckedIn() {
		return &CheckOutResult{
			Result:    true,
			State:     model.StateCheckedOut,
			PrevState: model.StateCheckedOut,
			Conflict:  true,
		}, nil
	}

	now := s.now().In(s.loc)
	cfg, window, err := s.resolveGate(ctx, now)
	if err != nil {
		return nil, err
	}
	// The same daily window governs both directions.
	if !person.IsAdmin() && !window.Contains(now) {
		return nil, newError(KindNotAcceptable,
			"check-out is not available right now (open hours: %s)", window)
	}

	return s.commitCheckOut(ctx, person, model.EventCheckOut, person.Login, cfg, now)
}

// ForceCheckOut lets an admin release another person's card. The time
// window does not apply.
func (s *Service) ForceCheckOut(ctx context.Context, adminID, targetID int64) (*CheckOutResult, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	target, err := s.store.PersonByID(ctx, targetID)
	if err != nil {
		return nil, internalError("failed to load person", err)
	}
	if target == nil {
		return nil, newError(KindUnauthorized, "no such person %d", targetID)
	}

	// Already checked out: idempotent no-op, reported as a conflict.
	if target.CardNo == nil {
		return &CheckOutResult{
			Result:    true,
			State:     model.StateCheckedOut,
			PrevState: model.StateCheckedOut,
			Conflict:  true,
		}, nil
	}

	now := s.now().In(s.loc)
	cfg, _, err := s.resolveGate(ctx, now)
	if err != nil {
		return nil, err
	}

	log.Printf("force check-out of %q by admin %q", target.Login, admin.Login)
	return s.commitCheckOut(ctx, target, model.EventForceCheckOut, admin.Login, cfg, now)
}

// commitCheckOut performs the shared tail of both check-out flows under the
// cluster mutex: ledger appends, state mutation and the headroom alert.
func (s *Service) commitCheckOut(ctx context.Context, person *model.Person, eventType, actor string, cfg *model.AccessConfig, now time.Time) (*CheckOutResult, error) {
	c := cluster.OfCard(*person.CardNo)
	max := maxFor(cfg, c)

	mu := s.mu[c]
	mu.Lock()
	defer mu.Unlock()

	prevState := person.State
	usage, err := s.store.CommitCheckOut(ctx, person, eventType, actor, now)
	if errors.Is(err, store.ErrStaleTransition) {
		// A concurrent check-out already released the card; nothing was
		// appended here, so report the idempotent duplicate.
		return &CheckOutResult{
			Result:    true,
			State:     model.StateCheckedOut,
			PrevState: model.StateCheckedOut,
			Conflict:  true,
		}, nil
	}
	if err != nil {
		return nil, internalError("failed to commit check-out", err)
	}

	occupied, err := s.store.CountOccupants(ctx, c)
	if err != nil {
		// The transition already committed; the alert is best-effort.
		log.Printf("failed to recount occupants of %s after check-out: %v", c, err)
		occupied = int64(max)
	}

	result := &CheckOutResult{
		Result:          true,
		State:           person.State,
		PrevState:       prevState,
		DurationSeconds: usage.DurationSeconds,
	}
	result.Notice = s.maybeNotify(c, max, occupied)
	return result, nil
}

// maybeNotify fires the capacity alert when remaining headroom is at or
// below the threshold. Delivery failures never reach the caller.
func (s *Service) maybeNotify(c cluster.Cluster, max int, occupied int64) bool {
	if s.notifier == nil {
		return false
	}
	remaining := max - int(occupied)
	if remaining > s.threshold {
		return false
	}
	if remaining < 0 {
		remaining = 0
	}
	s.notifier.Notify(c, remaining)
	return true
}

// Status returns a person's occupancy snapshot together with the current
// cluster counts.
func (s *Service) Status(ctx context.Context, personID int64) (*StatusResult, error) {
	person, err := s.store.PersonByID(ctx, personID)
	if err != nil {
		return nil, internalError("failed to load person", err)
	}
	if person == nil {
		return nil, newError(KindUnauthorized, "no such person")
	}

	counts, err := s.OccupancySnapshot(ctx)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		User: PersonStatus{
			Login:      person.Login,
			CardNo:     person.CardNo,
			State:      person.State,
			CheckinAt:  person.CheckinAt,
			CheckoutAt: person.CheckoutAt,
		},
		Cluster: counts,
		IsAdmin: person.IsAdmin(),
	}, nil
}

// OccupancySnapshot counts the current occupants of each cluster.
func (s *Service) OccupancySnapshot(ctx context.Context) (map[cluster.Cluster]int64, error) {
	counts := make(map[cluster.Cluster]int64, 2)
	for _, c := range cluster.All() {
		n, err := s.store.CountOccupants(ctx, c)
		if err != nil {
			return nil, internalError("failed to count occupants", err)
		}
		counts[c] = n
	}
	return counts, nil
}

// History returns one page of another person's audit trail. Admin only.
func (s *Service) History(ctx context.Context, adminID int64, login string, page, pageSize int) ([]model.HistoryEvent, int64, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, 0, err
	}
	target, err := s.store.PersonByLogin(ctx, login)
	if err != nil {
		return nil, 0, internalError("failed to load person", err)
	}
	if target == nil {
		return nil, 0, newError(KindUnauthorized, "no such person %q", login)
	}
	events, total, err := s.store.HistoryByLogin(ctx, login, page, pageSize)
	if err != nil {
		return nil, 0, internalError("failed to load history", err)
	}
	return events, total, nil
}

// UsageSummary aggregates the caller's completed occupancy time per
// calendar day over [from, to).
func (s *Service) UsageSummary(ctx context.Context, personID int64, from, to time.Time) ([]DayUsage, error) {
	person, err := s.store.PersonByID(ctx, personID)
	if err != nil {
		return nil, internalError("failed to load person", err)
	}
	if person == nil {
		return nil, newError(KindUnauthorized, "no such person")
	}

	usages, err := s.store.UsagesBetween(ctx, person.Login, from, to)
	if err != nil {
		return nil, internalError("failed to load usages", err)
	}

	totals := make(map[string]int64)
	var days []string
	for _, u := range usages {
		day := u.CheckinAt.In(s.loc).Format("2006-01-02")
		if _, seen := totals[day]; !seen {
			days = append(days, day)
		}
		totals[day] += u.DurationSeconds
	}

	summary := make([]DayUsage, 0, len(days))
	for _, day := range days {
		summary = append(summary, DayUsage{Day: day, Seconds: totals[day]})
	}
	return summary, nil
}

// TodayConfig returns the access config effective right now.
func (s *Service) TodayConfig(ctx context.Context) (*model.AccessConfig, error) {
	now := s.now().In(s.loc)
	cfg, _, err := s.resolveGate(ctx, now)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigUpdate carries the mutable fields of the administrative config
// path. Nil fields are left unchanged.
type ConfigUpdate struct {
	MaxEast *int    `json:"max_east"`
	MaxWest *int    `json:"max_west"`
	OpenAt  *string `json:"open_at"`
	CloseAt *string `json:"close_at"`
}

// UpdateConfig applies an administrative change to today's config row.
func (s *Service) UpdateConfig(ctx context.Context, adminID int64, update ConfigUpdate) (*model.AccessConfig, error) {
	admin, err := s.requireAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.TodayConfig(ctx)
	if err != nil {
		return nil, err
	}

	if update.MaxEast != nil {
		cfg.MaxEast = *update.MaxEast
	}
	if update.MaxWest != nil {
		cfg.MaxWest = *update.MaxWest
	}
	if update.OpenAt != nil {
		cfg.OpenAt = *update.OpenAt
	}
	if update.CloseAt != nil {
		cfg.CloseAt = *update.CloseAt
	}
	if _, err := cluster.NewWindow(cfg.OpenAt, cfg.CloseAt); err != nil {
		return nil, newError(KindNotAcceptable, "invalid time window: %v", err)
	}
	cfg.Actor = admin.Login

	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return nil, internalError("failed to save access config", err)
	}
	return cfg, nil
}

func (s *Service) requireAdmin(ctx context.Context, id int64) (*model.Person, error) {
	person, err := s.store.PersonByID(ctx, id)
	if err != nil {
		return nil, internalError("failed to load person", err)
	}
	if person == nil {
		return nil, newError(KindUnauthorized, "no such person")
	}
	if !person.IsAdmin() {
		return nil, newError(KindForbidden, "administrator privilege required")
	}
	return person, nil
}
