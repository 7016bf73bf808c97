package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/fishing-club-booking/internal/metrics"
	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/queue"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
)

const (
	MaxBaitPacks = 100

	cancelWindow = 48 * time.Hour
	modifyWindow = 24 * time.Hour

	defaultConfirmMessage = "Your reservation has been confirmed."
	defaultCancelMessage  = "Your reservation has been cancelled by the club."
)

var tracer = otel.Tracer("club-booking/service")

// CreateInput is a fisher's booking request.  Empty contact fields are
// filled from the fisher's account.
type CreateInput struct {
	ClubID       uint64
	BoatKind     string
	Capacity     int
	Date         time.Time
	PartySize    int
	BaitPacks    int
	ContactName  string
	ContactEmail string
	ContactPhone string
}

// ModifyInput holds the fields a fisher may change; nil leaves a field as is.
type ModifyInput struct {
	PartySize *int
	BaitPacks *int
	Date      *time.Time
}

// ClubListFilter selects a page of a club's reservations.  View "day"
// restricts to Date, "month" to Date's month; empty lists everything.
type ClubListFilter struct {
	View    string
	Date    time.Time
	State   string
	Page    int
	PerPage int
}

type ReservationPage struct {
	Items   []model.Reservation `json:"items"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	Pages   int                 `json:"pages"`
}

// ReservationService applies the reservation state machine.  Every
// mutation writes the reservation, a history entry, a notification and an
// outbox event in one transaction.
type ReservationService struct {
	store    Storage
	loc      *time.Location
	topic    string
	pageSize int

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func NewReservationService(store Storage, loc *time.Location, topic string, pageSize int) *ReservationService {
	if loc == nil {
		loc = time.UTC
	}
	if pageSize <= 0 {
		pageSize = 5
	}
	return &ReservationService{store: store, loc: loc, topic: topic, pageSize: pageSize, Now: time.Now}
}

// dayStart is 00:00 of the reservation date in the booking zone.
func (s *ReservationService) dayStart(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *ReservationService) today() time.Time {
	return DateOnly(s.Now().In(s.loc))
}

func (s *ReservationService) validateDate(date time.Time) error {
	if date.IsZero() {
		return invalid("date is required")
	}
	if DateOnly(date).Before(s.today()) {
		return invalid("date %s is in the past", date.Format("2006-01-02"))
	}
	return nil
}

func validatePartyAndBait(partySize, capacity, baitPacks int) error {
	if partySize < 1 || partySize > capacity {
		return invalid("party_size must be between 1 and %d", capacity)
	}
	if baitPacks < 0 || baitPacks > MaxBaitPacks {
		return invalid("bait_packs must be between 0 and %d", MaxBaitPacks)
	}
	return nil
}

func reject(reason string, err error) error {
	metrics.ReservationRejections.WithLabelValues(reason).Inc()
	return err
}

// Create books one unit of a boat type for a fisher.  The boat type row
// is locked for the rest of the transaction so concurrent requests for
// the last unit serialize and only one of them succeeds.
func (s *ReservationService) Create(ctx context.Context, actor Actor, in CreateInput) (model.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("club_id", int64(in.ClubID)))

	if !actor.IsFisher() {
		return model.Reservation{}, ErrForbidden
	}
	in.BoatKind = strings.ToLower(strings.TrimSpace(in.BoatKind))
	if in.BoatKind == "" || in.Capacity < 1 {
		return model.Reservation{}, invalid("boat_kind and capacity are required")
	}
	if err := s.validateDate(in.Date); err != nil {
		return model.Reservation{}, err
	}
	if err := validatePartyAndBait(in.PartySize, in.Capacity, in.BaitPacks); err != nil {
		return model.Reservation{}, err
	}

	var out model.Reservation
	err := s.store.InTx(ctx, func(r Repos) error {
		club, err := r.Clubs.GetByID(ctx, in.ClubID)
		if err != nil {
			return err
		}
		key := model.BoatKey{Kind: in.BoatKind, Capacity: in.Capacity}
		boat, err := r.Clubs.LockBoatType(ctx, in.ClubID, key)
		if errors.Is(err, ErrNotFound) {
			return reject("boat_type", ErrBoatTypeNotFound)
		}
		if err != nil {
			return err
		}
		bait, err := r.Clubs.GetBait(ctx, in.ClubID)
		if err != nil {
			return err
		}
		if in.BaitPacks > 0 && !bait.Available {
			return reject("bait", ErrBaitUnavailable)
		}
		date := DateOnly(in.Date)
		taken, err := r.Reservations.CountActive(ctx, in.ClubID, key, date, 0)
		if err != nil {
			return err
		}
		if boat.Count-taken <= 0 {
			return reject("no_availability", ErrNoAvailability)
		}

		if in.ContactName == "" || in.ContactEmail == "" || in.ContactPhone == "" {
			if u, err := r.Users.GetByID(ctx, actor.ID); err == nil {
				in.ContactName = firstNonEmpty(in.ContactName, u.Name)
				in.ContactEmail = firstNonEmpty(in.ContactEmail, u.Email)
				in.ContactPhone = firstNonEmpty(in.ContactPhone, u.Phone)
			}
		}

		res := model.Reservation{
			ClubID:         club.ID,
			ClubName:       club.Name,
			FisherID:       actor.ID,
			ContactName:    strings.TrimSpace(in.ContactName),
			ContactEmail:   strings.TrimSpace(in.ContactEmail),
			ContactPhone:   strings.TrimSpace(in.ContactPhone),
			BoatKind:       boat.Kind,
			Capacity:       boat.Capacity,
			PartySize:      in.PartySize,
			BaitPacks:      in.BaitPacks,
			Date:           date,
			State:          model.StatePending,
			BoatPriceCents: boat.PriceCents,
			BaitPriceCents: bait.PriceCents,
		}
		res.TotalCents = totalOf(res)
		if err := r.Reservations.Create(ctx, &res); err != nil {
			return err
		}
		note := model.Notification{
			TargetRole: model.RoleClub,
			TargetID:   res.ClubID,
			Title:      "New reservation received",
			Message: fmt.Sprintf("%s booked a %s boat for %d on %s.",
				firstNonEmpty(res.ContactName, "A fisher"), res.BoatKind, res.PartySize, res.Date.Format("2006-01-02")),
			Type: model.NotifyReservation,
		}
		if err := s.record(ctx, r, res, actor, model.ActionCreated, "", nil, note); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	metrics.ReservationTransitions.WithLabelValues(model.ActionCreated).Inc()
	return out, nil
}

// Confirm moves a pending reservation of the club to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, actor Actor, id uint64, message string) (model.Reservation, error) {
	message = firstNonEmpty(strings.TrimSpace(message), defaultConfirmMessage)
	return s.transition(ctx, actor, id, model.ActionConfirmed, func(res *model.Reservation) (model.Notification, error) {
		if !actor.IsClub() || res.ClubID != actor.ID {
			return model.Notification{}, ErrForbidden
		}
		if res.State != model.StatePending {
			return model.Notification{}, reject("transition", transitionError(res.State, "confirm"))
		}
		res.State = model.StateConfirmed
		res.Message = message
		return model.Notification{
			TargetRole: model.RoleFisher,
			TargetID:   res.FisherID,
			Title:      "Reservation confirmed",
			Message:    message,
			Type:       model.NotifyReservationConfirmed,
		}, nil
	})
}

// CancelByClub declines a pending or cancels a confirmed reservation.
// Stock is recomputed on read, so nothing has to be given back.
func (s *ReservationService) CancelByClub(ctx context.Context, actor Actor, id uint64, message string) (model.Reservation, error) {
	message = firstNonEmpty(strings.TrimSpace(message), defaultCancelMessage)
	return s.transition(ctx, actor, id, model.ActionCancelledByClub, func(res *model.Reservation) (model.Notification, error) {
		if !actor.IsClub() || res.ClubID != actor.ID {
			return model.Notification{}, ErrForbidden
		}
		if !model.IsActiveState(res.State) {
			return model.Notification{}, reject("transition", transitionError(res.State, "cancel"))
		}
		res.State = model.StateCancelled
		res.Message = message
		return model.Notification{
			TargetRole: model.RoleFisher,
			TargetID:   res.FisherID,
			Title:      "Reservation cancelled",
			Message:    message,
			Type:       model.NotifyReservationCancelled,
		}, nil
	})
}

// CancelByFisher cancels the fisher's own reservation.  A confirmed one
// can only be cancelled while more than 48 hours remain before 00:00 of
// its date.
func (s *ReservationService) CancelByFisher(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	return s.transition(ctx, actor, id, model.ActionCancelledByFisher, func(res *model.Reservation) (model.Notification, error) {
		if !actor.IsFisher() || res.FisherID != actor.ID {
			return model.Notification{}, ErrForbidden
		}
		if !model.IsActiveState(res.State) {
			return model.Notification{}, reject("transition", transitionError(res.State, "cancel"))
		}
		if res.State == model.StateConfirmed && res.HasDate() && !(s.dayStart(res.Date).Sub(s.Now()) > cancelWindow) {
			return model.Notification{}, reject("cancel_window", ErrCancelWindowClosed)
		}
		res.State = model.StateCancelled
		return model.Notification{
			TargetRole: model.RoleClub,
			TargetID:   res.ClubID,
			Title:      "Reservation cancelled by fisher",
			Message: fmt.Sprintf("%s cancelled the %s boat reservation for %s.",
				firstNonEmpty(res.ContactName, "The fisher"), res.BoatKind, formatDate(res.Date)),
			Type: model.NotifyReservationCancelled,
		}, nil
	})
}

// Modify changes party size, bait packs or date and sends the
// reservation back to pending.  It is allowed while more than 24 hours
// remain before the current date; a new date is checked for stock with
// the reservation itself excluded.
func (s *ReservationService) Modify(ctx context.Context, actor Actor, id uint64, in ModifyInput) (model.Reservation, error) {
	if in.PartySize == nil && in.BaitPacks == nil && in.Date == nil {
		return model.Reservation{}, invalid("nothing to modify")
	}
	if in.Date != nil {
		if err := s.validateDate(*in.Date); err != nil {
			return model.Reservation{}, err
		}
	}
	ctx, span := tracer.Start(ctx, "reservation.modify")
	defer span.End()

	var out model.Reservation
	err := s.store.InTx(ctx, func(r Repos) error {
		res, err := r.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsFisher() || res.FisherID != actor.ID {
			return ErrForbidden
		}
		if !model.IsActiveState(res.State) {
			return reject("transition", transitionError(res.State, "modify"))
		}
		if res.HasDate() && !(s.dayStart(res.Date).Sub(s.Now()) > modifyWindow) {
			return reject("modify_window", ErrModifyWindowClosed)
		}
		before := res
		if in.PartySize != nil {
			res.PartySize = *in.PartySize
		}
		if in.BaitPacks != nil {
			res.BaitPacks = *in.BaitPacks
		}
		if in.Date != nil {
			res.Date = DateOnly(*in.Date)
		}
		if err := validatePartyAndBait(res.PartySize, res.Capacity, res.BaitPacks); err != nil {
			return err
		}
		if res.BaitPacks > 0 && res.BaitPacks != before.BaitPacks {
			bait, err := r.Clubs.GetBait(ctx, res.ClubID)
			if err != nil {
				return err
			}
			if !bait.Available {
				return reject("bait", ErrBaitUnavailable)
			}
		}
		if !res.Date.Equal(before.Date) {
			key := model.BoatKey{Kind: res.BoatKind, Capacity: res.Capacity}
			boat, err := r.Clubs.LockBoatType(ctx, res.ClubID, key)
			if errors.Is(err, ErrNotFound) {
				return reject("boat_type", ErrBoatTypeNotFound)
			}
			if err != nil {
				return err
			}
			taken, err := r.Reservations.CountActive(ctx, res.ClubID, key, res.Date, res.ID)
			if err != nil {
				return err
			}
			if boat.Count-taken <= 0 {
				return reject("no_availability", ErrNoAvailability)
			}
		}
		res.TotalCents = totalOf(res)
		res.State = model.StatePending
		if err := r.Reservations.Update(ctx, res); err != nil {
			return err
		}
		details := map[string]any{
			"before": changeSet(before),
			"after":  changeSet(res),
		}
		note := model.Notification{
			TargetRole: model.RoleClub,
			TargetID:   res.ClubID,
			Title:      "Reservation modified",
			Message: fmt.Sprintf("%s changed the reservation to %d persons, %d bait packs on %s; it needs confirmation again.",
				firstNonEmpty(res.ContactName, "The fisher"), res.PartySize, res.BaitPacks, formatDate(res.Date)),
			Type: model.NotifyReservationModified,
		}
		if err := s.record(ctx, r, res, actor, model.ActionModified, before.State, details, note); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	metrics.ReservationTransitions.WithLabelValues(model.ActionModified).Inc()
	return out, nil
}

// transition locks the reservation, lets apply check the rule and mutate
// it, then persists the change with its side records.
func (s *ReservationService) transition(ctx context.Context, actor Actor, id uint64, action string,
	apply func(res *model.Reservation) (model.Notification, error)) (model.Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservation."+action)
	defer span.End()
	span.SetAttributes(attribute.Int64("reservation_id", int64(id)))

	var out model.Reservation
	err := s.store.InTx(ctx, func(r Repos) error {
		res, err := r.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from := res.State
		note, err := apply(&res)
		if err != nil {
			return err
		}
		if err := r.Reservations.Update(ctx, res); err != nil {
			return err
		}
		if err := s.record(ctx, r, res, actor, action, from, nil, note); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	metrics.ReservationTransitions.WithLabelValues(action).Inc()
	return out, nil
}

// record appends history, stores the notification and enqueues the
// broker event, all on the caller's transaction.
func (s *ReservationService) record(ctx context.Context, r Repos, res model.Reservation, actor Actor,
	action, from string, details map[string]any, note model.Notification) error {
	h := model.HistoryEntry{
		ReservationID: res.ID,
		Action:        action,
		ActorRole:     actor.Role,
		ActorID:       actor.ID,
		FromState:     from,
		ToState:       res.State,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		h.Details = string(raw)
	}
	if err := r.Reservations.AppendHistory(ctx, h); err != nil {
		return err
	}

	note.ReservationID = res.ID
	if err := r.Notifications.Create(ctx, &note); err != nil {
		return err
	}

	ev := queue.ReservationEvent{
		EventID:       uuid.NewString(),
		Action:        action,
		ReservationID: res.ID,
		ClubID:        res.ClubID,
		FisherID:      res.FisherID,
		State:         res.State,
		Date:          formatDate(res.Date),
		TotalCents:    res.TotalCents,
		Notification:  note,
		OccurredAt:    s.Now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.Outbox.Enqueue(ctx, &model.OutboxEvent{EventID: ev.EventID, Topic: s.topic, Payload: payload})
}

// Get returns a reservation with its history.  Fishers see their own,
// clubs the ones booked with them.
func (s *ReservationService) Get(ctx context.Context, actor Actor, id uint64) (model.Reservation, error) {
	repos := s.store.Repos()
	res, err := repos.Reservations.GetByID(ctx, id)
	if err != nil {
		return res, err
	}
	switch {
	case actor.IsFisher() && res.FisherID == actor.ID:
	case actor.IsClub() && res.ClubID == actor.ID:
	default:
		return model.Reservation{}, ErrForbidden
	}
	res.History, err = repos.Reservations.History(ctx, id)
	return res, err
}

func (s *ReservationService) ListForFisher(ctx context.Context, actor Actor) ([]model.Reservation, error) {
	if !actor.IsFisher() {
		return nil, ErrForbidden
	}
	return s.store.Repos().Reservations.ListByFisher(ctx, actor.ID)
}

// ListForClub returns one page of the club's reservations, newest date
// first.
func (s *ReservationService) ListForClub(ctx context.Context, actor Actor, f ClubListFilter) (ReservationPage, error) {
	if !actor.IsClub() {
		return ReservationPage{}, ErrForbidden
	}
	state, ok := model.NormalizeState(f.State)
	if !ok {
		return ReservationPage{}, invalid("unknown state %q", f.State)
	}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = s.pageSize
	}
	if perPage > 100 {
		perPage = 100
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	filter := repository.ClubFilter{ClubID: actor.ID, State: state, Limit: perPage, Offset: (page - 1) * perPage}
	switch strings.ToLower(f.View) {
	case "", "all":
	case "day":
		if f.Date.IsZero() {
			return ReservationPage{}, invalid("date is required for the day view")
		}
		filter.From = DateOnly(f.Date)
		filter.To = filter.From.AddDate(0, 0, 1)
	case "month":
		if f.Date.IsZero() {
			return ReservationPage{}, invalid("date is required for the month view")
		}
		y, m, _ := f.Date.Date()
		filter.From = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		filter.To = filter.From.AddDate(0, 1, 0)
	default:
		return ReservationPage{}, invalid("view must be day or month")
	}
	items, total, err := s.store.Repos().Reservations.ListByClub(ctx, filter)
	if err != nil {
		return ReservationPage{}, err
	}
	return ReservationPage{
		Items:   items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   (total + perPage - 1) / perPage,
	}, nil
}

func totalOf(r model.Reservation) int64 {
	return r.BoatPriceCents + r.BaitPriceCents*int64(r.BaitPacks)
}

func changeSet(r model.Reservation) map[string]any {
	return map[string]any{
		"party_size":  r.PartySize,
		"bait_packs":  r.BaitPacks,
		"date":        formatDate(r.Date),
		"state":       r.State,
		"total_cents": r.TotalCents,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
