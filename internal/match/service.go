package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/carrypal/internal/apperr"
	"github.com/sudo-init-do/carrypal/internal/escrow"
	"github.com/sudo-init-do/carrypal/internal/listing"
	"github.com/sudo-init-do/carrypal/internal/notify"
)

// SystemActor is the actor recorded for transitions the platform makes on
// its own, such as auto-completion.
const SystemActor = "system"

// Dispute outcomes.
const (
	FavorSender   = "favor_sender"
	FavorTraveler = "favor_traveler"
)

// Notifier receives committed lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, evt notify.Event) []notify.Notification
}

// Listings lets Propose check that the package and trip exist and line up.
type Listings interface {
	GetPackage(ctx context.Context, id string) (listing.Package, error)
	GetTrip(ctx context.Context, id string) (listing.Trip, error)
}

// Roles tells the service who may arbitrate disputes.
type Roles interface {
	IsArbiter(ctx context.Context, userID string) (bool, error)
}

type Service struct {
	store    Store
	ledger   *escrow.Ledger
	notifier Notifier
	listings Listings
	roles    Roles
	now      func() time.Time
}

type Option func(*Service)

func WithListings(l Listings) Option { return func(s *Service) { s.listings = l } }
func WithRoles(r Roles) Option       { return func(s *Service) { s.roles = r } }
func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, ledger *escrow.Ledger, opts ...Option) *Service {
	s := &Service{store: store, ledger: ledger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProposeInput describes a new match.
type ProposeInput struct {
	ActorID    string
	SenderID   string
	TravelerID string
	PackageID  string
	TripID     string
	Reward     decimal.Decimal
}

// Propose creates a match in PROPOSED with an empty escrow record.
func (s *Service) Propose(ctx context.Context, in ProposeInput) (Match, error) {
	if in.SenderID == "" || in.TravelerID == "" || in.PackageID == "" || in.TripID == "" {
		return Match{}, apperr.Validation("sender, traveler, package and trip are required")
	}
	if !in.Reward.IsPositive() {
		return Match{}, apperr.Validation("reward must be greater than zero")
	}
	if in.SenderID == in.TravelerID {
		return Match{}, apperr.Validation("sender and traveler must be different users")
	}
	if in.ActorID != in.SenderID && in.ActorID != in.TravelerID {
		return Match{}, apperr.NotAuthorized("only the sender or the traveler can propose a match")
	}
	if err := s.checkListings(ctx, in); err != nil {
		return Match{}, err
	}

	now := s.now().UTC()
	m := Match{
		ID:           uuid.NewString(),
		PackageID:    in.PackageID,
		TripID:       in.TripID,
		SenderID:     in.SenderID,
		TravelerID:   in.TravelerID,
		ProposedBy:   in.ActorID,
		Status:       StatusProposed,
		AgreedReward: in.Reward,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.Escrow = escrow.NewRecord(m.ID, now)

	err := s.store.CreateMatch(ctx, m, Transition{MatchID: m.ID, To: StatusProposed, ActorID: in.ActorID, At: now})
	if errors.Is(err, ErrActiveExists) {
		return Match{}, apperr.Validation("package or trip is already attached to an active match")
	}
	if err != nil {
		return Match{}, apperr.Wrap(apperr.KindInternal, err, "could not create match")
	}
	log.Printf("[match] proposed id=%s package=%s trip=%s by=%s", m.ID, m.PackageID, m.TripID, in.ActorID)
	s.emit(ctx, m, notify.MatchProposed, in.ActorID, "", "")
	return m, nil
}

func (s *Service) checkListings(ctx context.Context, in ProposeInput) error {
	if s.listings == nil {
		return nil
	}
	pkg, err := s.listings.GetPackage(ctx, in.PackageID)
	if errors.Is(err, listing.ErrNotFound) {
		return apperr.Validation("package %s does not exist", in.PackageID)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "could not load package")
	}
	trip, err := s.listings.GetTrip(ctx, in.TripID)
	if errors.Is(err, listing.ErrNotFound) {
		return apperr.Validation("trip %s does not exist", in.TripID)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "could not load trip")
	}
	switch {
	case pkg.SenderID != in.SenderID:
		return apperr.Validation("package does not belong to the sender")
	case trip.TravelerID != in.TravelerID:
		return apperr.Validation("trip does not belong to the traveler")
	case pkg.Status != listing.StatusOpen || trip.Status != listing.StatusOpen:
		return apperr.Validation("package and trip must both be open")
	case pkg.WeightKg > trip.CapacityKg:
		return apperr.Validation("package weight %.1fkg exceeds trip capacity %.1fkg", pkg.WeightKg, trip.CapacityKg)
	}
	return nil
}

// Accept moves PROPOSED -> ACCEPTED. Traveler only.
func (s *Service) Accept(ctx context.Context, matchID, actorID string) (Match, error) {
	m, err := s.transition(ctx, matchID, actorID, "", func(m *Match) error {
		if actorID != m.TravelerID {
			return apperr.NotAuthorized("only the traveler can accept this match")
		}
		return s.move(m, StatusProposed, StatusAccepted)
	})
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.MatchAccepted, actorID, "", "")
	return m, nil
}

// Decline moves PROPOSED -> CANCELLED. Traveler only.
func (s *Service) Decline(ctx context.Context, matchID, actorID string) (Match, error) {
	m, err := s.transition(ctx, matchID, actorID, "declined by traveler", func(m *Match) error {
		if actorID != m.TravelerID {
			return apperr.NotAuthorized("only the traveler can decline this match")
		}
		return s.move(m, StatusProposed, StatusCancelled)
	})
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.MatchDeclined, actorID, "", "")
	return m, nil
}

// Pay captures the agreed reward into escrow and moves ACCEPTED -> CONFIRMED.
// If the capture fails the match stays ACCEPTED.
func (s *Service) Pay(ctx context.Context, matchID, actorID, paymentRef string) (Match, error) {
	var captured escrow.Record
	m, err := s.transition(ctx, matchID, actorID, "", func(m *Match) error {
		if actorID != m.SenderID {
			return apperr.NotAuthorized("only the sender can pay for this match")
		}
		if m.Status != StatusAccepted {
			return invalid(m.Status, StatusConfirmed)
		}
		wasEmpty := m.Escrow.State == escrow.StateNone
		if err := s.ledger.Hold(ctx, &m.Escrow, m.SenderID, m.AgreedReward, paymentRef); err != nil {
			return err
		}
		if wasEmpty {
			captured = m.Escrow
		}
		m.TrackingCode = newTrackingCode()
		return s.move(m, StatusAccepted, StatusConfirmed)
	})
	if err != nil {
		if captured.CaptureID != "" {
			s.compensateHold(ctx, captured)
		}
		return Match{}, err
	}
	s.emit(ctx, m, notify.PaymentConfirmed, actorID, "", "")
	return m, nil
}

// compensateHold voids a capture whose transition failed to commit.
func (s *Service) compensateHold(ctx context.Context, rec escrow.Record) {
	if err := s.ledger.Refund(ctx, &rec); err != nil {
		log.Printf("[match][ERROR] void orphaned capture %s for match %s: %v", rec.CaptureID, rec.MatchID, err)
		return
	}
	log.Printf("[match] voided orphaned capture %s for match %s", rec.CaptureID, rec.MatchID)
}

// ConfirmPickup moves CONFIRMED -> PICKED_UP. Traveler only.
func (s *Service) ConfirmPickup(ctx context.Context, matchID, actorID string) (Match, error) {
	m, err := s.travelerStep(ctx, matchID, actorID, StatusConfirmed, StatusPickedUp, nil)
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.PackagePickedUp, actorID, "", "")
	return m, nil
}

// MarkInTransit moves PICKED_UP -> IN_TRANSIT. Traveler only.
func (s *Service) MarkInTransit(ctx context.Context, matchID, actorID string) (Match, error) {
	m, err := s.travelerStep(ctx, matchID, actorID, StatusPickedUp, StatusInTransit, nil)
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.PackageInTransit, actorID, "", "")
	return m, nil
}

// ConfirmDelivery moves IN_TRANSIT -> DELIVERED and flags escrow as pending
// release. Traveler only.
func (s *Service) ConfirmDelivery(ctx context.Context, matchID, actorID string) (Match, error) {
	m, err := s.travelerStep(ctx, matchID, actorID, StatusInTransit, StatusDelivered, func(m *Match) error {
		if err := s.ledger.MarkPendingRelease(&m.Escrow); err != nil {
			return err
		}
		at := s.now().UTC()
		m.DeliveredAt = &at
		return nil
	})
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.PackageDelivered, actorID, "", "")
	return m, nil
}

func (s *Service) travelerStep(ctx context.Context, matchID, actorID string, from, to Status, effect func(*Match) error) (Match, error) {
	return s.transition(ctx, matchID, actorID, "", func(m *Match) error {
		if actorID != m.TravelerID {
			return apperr.NotAuthorized("only the traveler can move this match to %s", to)
		}
		if m.Status != from {
			return invalid(m.Status, to)
		}
		if effect != nil {
			if err := effect(m); err != nil {
				return err
			}
		}
		return s.move(m, from, to)
	})
}

// ConfirmReceipt releases escrow to the traveler and moves DELIVERED ->
// COMPLETED. Sender only.
func (s *Service) ConfirmReceipt(ctx context.Context, matchID, actorID string) (Match, error) {
	m, err := s.transition(ctx, matchID, actorID, "", func(m *Match) error {
		if actorID != m.SenderID {
			return apperr.NotAuthorized("only the sender can confirm receipt")
		}
		return s.release(ctx, m)
	})
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.DeliveryConfirmed, actorID, "", "")
	return m, nil
}

func (s *Service) release(ctx context.Context, m *Match) error {
	if m.Status != StatusDelivered {
		return invalid(m.Status, StatusCompleted)
	}
	if err := s.ledger.Release(ctx, &m.Escrow, m.TravelerID); err != nil {
		return err
	}
	return s.move(m, StatusDelivered, StatusCompleted)
}

// Cancel moves PROPOSED or ACCEPTED -> CANCELLED. Either party.
func (s *Service) Cancel(ctx context.Context, matchID, actorID, reason string) (Match, error) {
	reason = strings.TrimSpace(reason)
	m, err := s.transition(ctx, matchID, actorID, reason, func(m *Match) error {
		if !m.IsParty(actorID) {
			return apperr.NotAuthorized("only a party to the match can cancel it")
		}
		if m.Status != StatusProposed && m.Status != StatusAccepted {
			return apperr.InvalidTransition("a %s match can no longer be cancelled; open a dispute instead", m.Status)
		}
		if m.Escrow.State.Funded() {
			if err := s.ledger.Refund(ctx, &m.Escrow); err != nil {
				return err
			}
		}
		return s.move(m, m.Status, StatusCancelled)
	})
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.MatchCancelled, actorID, reason, "")
	return m, nil
}

// RaiseDispute freezes the match and its escrow until an arbiter resolves it.
func (s *Service) RaiseDispute(ctx context.Context, matchID, actorID, reason string) (Match, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > 1000 {
		return Match{}, apperr.Validation("reason too long (max 1000 characters)")
	}
	m, err := s.transition(ctx, matchID, actorID, reason, func(m *Match) error {
		if !m.IsParty(actorID) {
			return apperr.NotAuthorized("only a party to the match can open a dispute")
		}
		if m.Status.Terminal() || m.Status == StatusDisputed {
			return invalid(m.Status, StatusDisputed)
		}
		if m.Escrow.State.Funded() {
			if err := s.ledger.Freeze(&m.Escrow); err != nil {
				return err
			}
		}
		m.DisputedFrom = m.Status
		return s.move(m, m.Status, StatusDisputed)
	})
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.DisputeRaised, actorID, reason, "")
	return m, nil
}

// ResolveDispute closes a dispute. favor_sender refunds and cancels;
// favor_traveler releases and completes. Arbiters only.
func (s *Service) ResolveDispute(ctx context.Context, matchID, resolverID, outcome string) (Match, error) {
	if outcome != FavorSender && outcome != FavorTraveler {
		return Match{}, apperr.Validation("outcome must be %s or %s", FavorSender, FavorTraveler)
	}
	if err := s.requireArbiter(ctx, resolverID); err != nil {
		return Match{}, err
	}
	m, err := s.transition(ctx, matchID, resolverID, outcome, func(m *Match) error {
		if m.IsParty(resolverID) {
			return apperr.NotAuthorized("a party to the match cannot arbitrate it")
		}
		if m.Status != StatusDisputed {
			return invalid(m.Status, StatusCompleted)
		}
		if outcome == FavorSender {
			if m.Escrow.State.Funded() {
				if err := s.ledger.Refund(ctx, &m.Escrow); err != nil {
					return err
				}
			}
			return s.move(m, StatusDisputed, StatusCancelled)
		}
		if !m.Escrow.State.Funded() {
			return apperr.Validation("nothing is held in escrow to release; resolve in favor of the sender to close")
		}
		if err := s.ledger.Release(ctx, &m.Escrow, m.TravelerID); err != nil {
			return err
		}
		return s.move(m, StatusDisputed, StatusCompleted)
	})
	if err != nil {
		return Match{}, err
	}
	s.emit(ctx, m, notify.DisputeResolved, resolverID, "", outcome)
	return m, nil
}

func (s *Service) requireArbiter(ctx context.Context, userID string) error {
	if s.roles == nil || userID == "" {
		return apperr.NotAuthorized("dispute resolution requires the arbiter role")
	}
	ok, err := s.roles.IsArbiter(ctx, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "could not check arbiter role")
	}
	if !ok {
		return apperr.NotAuthorized("dispute resolution requires the arbiter role")
	}
	return nil
}

// AutoComplete releases escrow for matches delivered at or before cutoff
// that the sender never confirmed. Returns how many were completed.
func (s *Service) AutoComplete(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.store.DeliveredBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list delivered matches: %w", err)
	}
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		m, err := s.transition(ctx, id, SystemActor, "auto-released after delivery window", func(m *Match) error {
			if m.DeliveredAt == nil || m.DeliveredAt.After(cutoff) {
				return invalid(m.Status, StatusCompleted)
			}
			return s.release(ctx, m)
		})
		if err != nil {
			log.Printf("[match][ERROR] auto-complete %s: %v", id, err)
			continue
		}
		done++
		s.emit(ctx, m, notify.DeliveryConfirmed, SystemActor, "", "")
	}
	return done, nil
}

// Get returns a match visible to viewerID: parties and arbiters.
func (s *Service) Get(ctx context.Context, matchID, viewerID string) (Match, error) {
	m, err := s.load(ctx, matchID)
	if err != nil {
		return Match{}, err
	}
	if err := s.canView(ctx, m, viewerID); err != nil {
		return Match{}, err
	}
	return m, nil
}

// ListForUser returns the matches userID is a party to, optionally filtered
// by status.
func (s *Service) ListForUser(ctx context.Context, userID string, status Status) ([]Match, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown status %q", status)
	}
	out, err := s.store.ListMatchesForUser(ctx, userID, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not list matches")
	}
	return out, nil
}

// Disputes is the arbiter queue: every disputed match, oldest first.
func (s *Service) Disputes(ctx context.Context, arbiterID string) ([]Match, error) {
	if err := s.requireArbiter(ctx, arbiterID); err != nil {
		return nil, err
	}
	out, err := s.store.ListMatchesByStatus(ctx, StatusDisputed)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not list disputes")
	}
	return out, nil
}

// History returns the match's committed transitions, oldest first.
func (s *Service) History(ctx context.Context, matchID, viewerID string) ([]Transition, error) {
	if _, err := s.Get(ctx, matchID, viewerID); err != nil {
		return nil, err
	}
	out, err := s.store.MatchHistory(ctx, matchID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not load history")
	}
	return out, nil
}

func (s *Service) canView(ctx context.Context, m Match, viewerID string) error {
	if m.IsParty(viewerID) {
		return nil
	}
	if err := s.requireArbiter(ctx, viewerID); err != nil {
		return apperr.NotAuthorized("not a party to this match")
	}
	return nil
}

func (s *Service) load(ctx context.Context, matchID string) (Match, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, ErrNotFound) {
		return Match{}, apperr.NotFound("match %s not found", matchID)
	}
	if err != nil {
		return Match{}, apperr.Wrap(apperr.KindInternal, err, "could not load match")
	}
	return m, nil
}

// transition runs fn inside the store's atomic update and records the
// status change. fn must validate before producing any side effect.
func (s *Service) transition(ctx context.Context, matchID, actorID, reason string, fn func(m *Match) error) (Match, error) {
	if matchID == "" {
		return Match{}, apperr.Validation("match id is required")
	}
	if actorID == "" {
		return Match{}, apperr.NotAuthorized("actor is required")
	}
	var (
		from    Status
		settled escrow.Record
	)
	m, err := s.store.UpdateMatch(ctx, matchID, func(m *Match) (Transition, error) {
		from = m.Status
		before := m.Escrow.State
		if err := fn(m); err != nil {
			return Transition{}, err
		}
		if m.Escrow.State.Terminal() && !before.Terminal() {
			settled = m.Escrow
		}
		now := s.now().UTC()
		m.UpdatedAt = now
		return Transition{MatchID: m.ID, From: from, To: m.Status, ActorID: actorID, Reason: reason, At: now}, nil
	})
	if errors.Is(err, ErrNotFound) {
		return Match{}, apperr.NotFound("match %s not found", matchID)
	}
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return Match{}, err
		}
		if settled.CaptureID != "" {
			// The provider has already paid out or voided. Providers settle a
			// capture once, so retrying the operation reconciles the match.
			log.Printf("[match][ERROR] escrow %s for match %s settled at provider (capture %s) but the match did not commit: %v",
				settled.State, settled.MatchID, settled.CaptureID, err)
		}
		return Match{}, apperr.Wrap(apperr.KindInternal, err, "could not update match")
	}
	log.Printf("[match] %s -> %s id=%s actor=%s", from, m.Status, m.ID, actorID)
	return m, nil
}

// move applies from -> to after checking the current status and the graph.
func (s *Service) move(m *Match, from, to Status) error {
	if m.Status != from || !CanTransition(from, to) {
		return invalid(m.Status, to)
	}
	m.Status = to
	return nil
}

func invalid(from, to Status) error {
	return apperr.InvalidTransition("cannot move match from %s to %s", from, to)
}

func (s *Service) emit(ctx context.Context, m Match, kind notify.EventKind, actorID, reason, outcome string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notify.Event{
		Kind:         kind,
		MatchID:      m.ID,
		SenderID:     m.SenderID,
		TravelerID:   m.TravelerID,
		ActorID:      actorID,
		Amount:       m.AgreedReward,
		TrackingCode: m.TrackingCode,
		Reason:       reason,
		Outcome:      outcome,
	})
}

func newTrackingCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CP-" + strings.ToUpper(id[:8])
}
