package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/swiftride/dispatch/pkg/broker"
	"github.com/swiftride/dispatch/pkg/common"
	"github.com/swiftride/dispatch/pkg/logger"
	"github.com/swiftride/dispatch/pkg/models"
	"go.uber.org/zap"
)

// ErrShutdown is returned by delivery handlers once the matcher has stopped,
// so in-flight broker messages are rejected and redelivered after restart.
var ErrShutdown = errors.New("matcher is shut down")

// RideStore persists ride status transitions. Every mutation is a conditional
// update so the monotonic status machine is enforced at the storage layer too.
type RideStore interface {
	// MarkOffered records the offer. The update also matches rides already in
	// the offered state so an undelivered offer can move to the next captain.
	MarkOffered(ctx context.Context, rideID, captainID uuid.UUID) error
	// MarkAccepted transitions offered -> accepted only when the recorded
	// captain matches; otherwise it returns an OfferMismatchError and leaves
	// the ride untouched.
	MarkAccepted(ctx context.Context, rideID, captainID uuid.UUID) error
	// MarkExpired transitions a non-terminal ride to expired.
	MarkExpired(ctx context.Context, rideID uuid.UUID) error
}

// Matcher pairs ride requests arriving from the broker with captains parked in
// long polls. All shared state lives behind one mutex; the only blocking point
// is RegisterPoll waiting on its session, which happens outside the lock.
type Matcher struct {
	store RideStore
	cfg   Config

	mu        sync.Mutex
	sessions  map[uuid.UUID]*session  // one per waiting captain
	waiting   []*session              // registration order (FIFO fairness)
	buffer    []*queuedRide           // unmatched rides, oldest first
	offers    map[uuid.UUID]uuid.UUID // rideID -> captain holding the offer
	seen      map[uuid.UUID]struct{}  // ride IDs already consumed (dedup)
	seenOrder []uuid.UUID
	closed    bool
}

// NewMatcher creates a matcher backed by the given status store
func NewMatcher(store RideStore, cfg Config) *Matcher {
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = DefaultConfig().BufferCapacity
	}
	if cfg.SeenCapacity <= 0 {
		cfg.SeenCapacity = DefaultConfig().SeenCapacity
	}
	if cfg.DefaultPollTimeout <= 0 {
		cfg.DefaultPollTimeout = DefaultConfig().DefaultPollTimeout
	}
	if cfg.MaxPollTimeout < cfg.DefaultPollTimeout {
		cfg.MaxPollTimeout = cfg.DefaultPollTimeout
	}
	return &Matcher{
		store:    store,
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*session),
		offers:   make(map[uuid.UUID]uuid.UUID),
		seen:     make(map[uuid.UUID]struct{}),
	}
}

// RegisterPoll is the single suspension point of the long-poll contract. It
// returns immediately with a buffered ride when one is available; otherwise it
// parks the captain until a ride arrives, the timeout elapses (nil offer, nil
// error), or the caller's context is cancelled. A second concurrent poll from
// the same captain replaces the first, which resolves with no ride.
func (m *Matcher) RegisterPoll(ctx context.Context, captainID uuid.UUID, timeout time.Duration) (*models.RideOffer, error) {
	timeout = m.clampTimeout(timeout)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil
	}

	// replace, never stack: any prior poll resolves empty before this one is
	// served, synchronously or parked
	if prev, ok := m.sessions[captainID]; ok {
		m.resolveLocked(prev, nil)
	}

	if len(m.buffer) > 0 {
		ride := m.buffer[0]
		m.buffer = m.buffer[1:]
		offer := ride.offer()
		m.offers[ride.RideID] = captainID
		bufferedRides.Set(float64(len(m.buffer)))
		m.mu.Unlock()

		m.persistOffered(ctx, ride.RideID, captainID)
		matchesTotal.Inc()
		return offer, nil
	}

	s := &session{
		captainID:    captainID,
		registeredAt: time.Now(),
		result:       make(chan *models.RideOffer, 1),
	}
	m.sessions[captainID] = s
	m.waiting = append(m.waiting, s)
	waitingCaptains.Set(float64(len(m.waiting)))
	m.mu.Unlock()

	return m.await(ctx, s, timeout)
}

// await blocks on the session's wait handle. Exactly one of the three arms
// wins; the losing timer is stopped and a raced resolution is recovered from
// the buffered result channel.
func (m *Matcher) await(ctx context.Context, s *session, timeout time.Duration) (*models.RideOffer, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case offer := <-s.result:
		// nil means the poll was replaced or the matcher shut down; both are
		// normal no-ride outcomes for the client
		return offer, nil

	case <-timer.C:
		if offer, raced := m.abandon(s); raced {
			return offer, nil
		}
		pollTimeoutsTotal.Inc()
		return nil, nil

	case <-ctx.Done():
		if offer, raced := m.abandon(s); raced && offer != nil {
			// the captain vanished just as a ride was committed to them;
			// hand the ride to the next poller instead of stranding it
			m.requeue(offer)
		}
		return nil, ctx.Err()
	}
}

// abandon resolves the session empty if still pending. When the session was
// already resolved concurrently, it drains and returns the committed offer.
func (m *Matcher) abandon(s *session) (*models.RideOffer, bool) {
	m.mu.Lock()
	if !s.resolved {
		m.resolveLocked(s, nil)
		m.mu.Unlock()
		return nil, false
	}
	m.mu.Unlock()
	return <-s.result, true
}

// requeue re-dispatches an undelivered offer. A captain already parked takes
// it immediately, keeping the no-ride-waits-while-a-captain-waits property;
// the buffer front is the fallback so the ride stays ahead of newer requests.
func (m *Matcher) requeue(offer *models.RideOffer) {
	m.mu.Lock()
	delete(m.offers, offer.RideID)

	if s := m.nextWaitingLocked(); s != nil {
		captainID := s.captainID
		offer.OfferedAt = time.Now().UTC()
		m.offers[offer.RideID] = captainID
		m.resolveLocked(s, offer)
		m.mu.Unlock()

		// the original caller's context is already cancelled
		m.persistOffered(context.Background(), offer.RideID, captainID)
		matchesTotal.Inc()
		return
	}

	ride := &queuedRide{
		RideID:         offer.RideID,
		RiderID:        offer.RiderID,
		PickupAddress:  offer.PickupAddress,
		DropoffAddress: offer.DropoffAddress,
		RequestedAt:    offer.RequestedAt,
	}
	m.buffer = append([]*queuedRide{ride}, m.buffer...)
	bufferedRides.Set(float64(len(m.buffer)))
	m.mu.Unlock()
}

// HandleRideRequested consumes one ride delivery from the broker. Duplicates
// (at-least-once redelivery) are dropped silently by ride ID. A non-nil return
// rejects the message for redelivery.
func (m *Matcher) HandleRideRequested(ctx context.Context, msg *broker.RideRequestedMessage) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrShutdown
	}

	if _, dup := m.seen[msg.RideID]; dup {
		m.mu.Unlock()
		duplicatesTotal.Inc()
		logger.Debug("duplicate ride delivery dropped", zap.String("ride_id", msg.RideID.String()))
		return nil
	}
	m.rememberLocked(msg.RideID)

	ride := &queuedRide{
		RideID:         msg.RideID,
		RiderID:        msg.RiderID,
		PickupAddress:  msg.PickupAddress,
		DropoffAddress: msg.DropoffAddress,
		RequestedAt:    msg.RequestedAt,
	}

	if s := m.nextWaitingLocked(); s != nil {
		captainID := s.captainID
		offer := ride.offer()
		m.offers[ride.RideID] = captainID
		m.resolveLocked(s, offer)
		m.mu.Unlock()

		m.persistOffered(ctx, ride.RideID, captainID)
		matchesTotal.Inc()
		return nil
	}

	var evicted *queuedRide
	if len(m.buffer) >= m.cfg.BufferCapacity {
		evicted = m.buffer[0]
		m.buffer = m.buffer[1:]
	}
	m.buffer = append(m.buffer, ride)
	bufferedRides.Set(float64(len(m.buffer)))
	m.mu.Unlock()

	if evicted != nil {
		evictionsTotal.Inc()
		logger.Warn("dispatch buffer full, expiring oldest ride",
			zap.String("ride_id", evicted.RideID.String()))
		if err := m.store.MarkExpired(ctx, evicted.RideID); err != nil {
			logger.Error("failed to expire evicted ride",
				zap.String("ride_id", evicted.RideID.String()), zap.Error(err))
		}
	}
	return nil
}

// HandleRideCancelled removes a cancelled ride from the in-memory buffer and
// releases any live offer claim. The status row is owned by the rides service.
func (m *Matcher) HandleRideCancelled(_ context.Context, rideID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrShutdown
	}

	for i, ride := range m.buffer {
		if ride.RideID == rideID {
			m.buffer = append(m.buffer[:i], m.buffer[i+1:]...)
			bufferedRides.Set(float64(len(m.buffer)))
			break
		}
	}
	delete(m.offers, rideID)
	// the ride ID stays in the dedup window so a redelivery is not re-buffered
	return nil
}

// AcceptOffer transitions a ride from offered to accepted, guarding against a
// different captain (or a stale redelivery) claiming it.
func (m *Matcher) AcceptOffer(ctx context.Context, rideID, captainID uuid.UUID) error {
	m.mu.Lock()
	recorded, live := m.offers[rideID]
	m.mu.Unlock()

	if live && recorded != captainID {
		acceptMismatchesTotal.Inc()
		return common.NewOfferMismatchError("ride is offered to a different captain")
	}

	// the store's conditional update is the source of truth; it also covers
	// offers made before a matcher restart
	if err := m.store.MarkAccepted(ctx, rideID, captainID); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.ErrorCode == common.CodeOfferMismatch {
			acceptMismatchesTotal.Inc()
		}
		return err
	}

	m.mu.Lock()
	delete(m.offers, rideID)
	m.mu.Unlock()
	return nil
}

// WaitingCaptains reports the number of parked polls (used by readiness and tests)
func (m *Matcher) WaitingCaptains() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

// BufferedRides reports the number of unmatched rides held in memory
func (m *Matcher) BufferedRides() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Shutdown resolves every pending poll with a no-ride result and stops
// accepting work. Pending sessions never leak.
func (m *Matcher) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, s := range append([]*session(nil), m.waiting...) {
		m.resolveLocked(s, nil)
	}
	waitingCaptains.Set(0)
}

// resolveLocked completes a session exactly once and removes it from the wait
// list. Callers must hold m.mu. The send never blocks: the channel has
// capacity one and resolved guards against a second send.
func (m *Matcher) resolveLocked(s *session, offer *models.RideOffer) {
	if s.resolved {
		return
	}
	s.resolved = true

	if current, ok := m.sessions[s.captainID]; ok && current == s {
		delete(m.sessions, s.captainID)
	}
	for i, w := range m.waiting {
		if w == s {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			break
		}
	}
	waitingCaptains.Set(float64(len(m.waiting)))

	s.result <- offer
}

// nextWaitingLocked returns the earliest-registered pending session; the
// subsequent resolveLocked removes it from the wait list
func (m *Matcher) nextWaitingLocked() *session {
	if len(m.waiting) == 0 {
		return nil
	}
	return m.waiting[0]
}

// rememberLocked records a ride ID in the bounded dedup window
func (m *Matcher) rememberLocked(rideID uuid.UUID) {
	m.seen[rideID] = struct{}{}
	m.seenOrder = append(m.seenOrder, rideID)
	if len(m.seenOrder) > m.cfg.SeenCapacity {
		oldest := m.seenOrder[0]
		m.seenOrder = m.seenOrder[1:]
		delete(m.seen, oldest)
	}
}

// persistOffered records the offered transition after the in-memory commit.
// The offers map already holds the at-most-one-offer invariant, so a store
// failure here is logged and repaired by the accept path's conditional update.
func (m *Matcher) persistOffered(ctx context.Context, rideID, captainID uuid.UUID) {
	if err := m.store.MarkOffered(ctx, rideID, captainID); err != nil {
		logger.Error("failed to persist offered status",
			zap.String("ride_id", rideID.String()),
			zap.String("captain_id", captainID.String()),
			zap.Error(err))
	}
}

func (m *Matcher) clampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return m.cfg.DefaultPollTimeout
	}
	if timeout > m.cfg.MaxPollTimeout {
		return m.cfg.MaxPollTimeout
	}
	return timeout
}
