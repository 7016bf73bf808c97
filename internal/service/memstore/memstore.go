// Package memstore is an in-memory service.Storage for tests.  A
// transaction works on a copy of the state under the store lock and
// swaps it in on commit, so concurrent transactions serialize the way
// row locks make them serialize in MySQL.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
	"github.com/iliyamo/fishing-club-booking/internal/service"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

type ratingKey struct{ fisher, club uint64 }

type state struct {
	seq           uint64
	users         map[uint64]model.User
	tokens        map[uint64][]string
	clubs         map[uint64]model.Club
	boats         map[uint64][]model.BoatType
	bait          map[uint64]model.BaitOffer
	reservations  map[uint64]model.Reservation
	history       []model.HistoryEntry
	ratings       map[ratingKey]model.Rating
	notifications []model.Notification
	outbox        []model.OutboxEvent
}

func newState() *state {
	return &state{
		users:        map[uint64]model.User{},
		tokens:       map[uint64][]string{},
		clubs:        map[uint64]model.Club{},
		boats:        map[uint64][]model.BoatType{},
		bait:         map[uint64]model.BaitOffer{},
		reservations: map[uint64]model.Reservation{},
		ratings:      map[ratingKey]model.Rating{},
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:           s.seq,
		users:         make(map[uint64]model.User, len(s.users)),
		tokens:        make(map[uint64][]string, len(s.tokens)),
		clubs:         make(map[uint64]model.Club, len(s.clubs)),
		boats:         make(map[uint64][]model.BoatType, len(s.boats)),
		bait:          make(map[uint64]model.BaitOffer, len(s.bait)),
		reservations:  make(map[uint64]model.Reservation, len(s.reservations)),
		history:       append([]model.HistoryEntry(nil), s.history...),
		ratings:       make(map[ratingKey]model.Rating, len(s.ratings)),
		notifications: append([]model.Notification(nil), s.notifications...),
		outbox:        append([]model.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = append([]string(nil), v...)
	}
	for k, v := range s.clubs {
		c.clubs[k] = v
	}
	for k, v := range s.boats {
		c.boats[k] = append([]model.BoatType(nil), v...)
	}
	for k, v := range s.bait {
		c.bait[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.ratings {
		c.ratings[k] = v
	}
	return c
}

func (s *state) nextID() uint64 {
	s.seq++
	return s.seq
}

// Store implements service.Storage.
type Store struct {
	mu  sync.Mutex
	st  *state
	Now func() time.Time
	// CatalogErr, when set, is returned by catalog and reservation reads
	// used for availability.
	CatalogErr error
}

func New() *Store {
	return &Store{st: newState(), Now: func() time.Time { return time.Now().UTC() }}
}

var _ service.Storage = (*Store)(nil)

func (s *Store) Repos() service.Repos { return s.repos(&view{s: s}) }

func (s *Store) InTx(_ context.Context, fn func(service.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &view{s: s, st: s.st.clone(), tx: true}
	if err := fn(s.repos(v)); err != nil {
		return err
	}
	s.st = v.st
	return nil
}

func (s *Store) repos(v *view) service.Repos {
	return service.Repos{
		Users:         userRepo{v},
		Clubs:         clubRepo{v},
		Reservations:  reservationRepo{v},
		Ratings:       ratingRepo{v},
		Notifications: notificationRepo{v},
		Outbox:        outboxRepo{v},
	}
}

// Outbox returns a copy of every outbox row.
func (s *Store) Outbox() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.st.outbox...)
}

// Notifications returns a copy of every notification.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.st.notifications...)
}

// view is a pool connection when tx is false and a transaction otherwise.
type view struct {
	s  *Store
	st *state
	tx bool
}

func (v *view) with(fn func(st *state) error) error {
	if v.tx {
		return fn(v.st)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

func (v *view) now() time.Time { return v.s.Now() }

// ---- users ----

type userRepo struct{ v *view }

func (r userRepo) Create(_ context.Context, in repository.NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	var id uint64
	err = r.v.with(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				return repository.ErrEmailExists
			}
		}
		id = st.nextID()
		now := r.v.now()
		st.users[id] = model.User{ID: id, Email: email, PasswordHash: hash, Role: in.Role,
			Name: strings.TrimSpace(in.Name), Phone: strings.TrimSpace(in.Phone), IsActive: true,
			CreatedAt: now, UpdatedAt: now}
		return nil
	})
	return id, err
}

func (r userRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	var out model.User
	err := r.v.with(func(st *state) error {
		email = strings.ToLower(strings.TrimSpace(email))
		for _, u := range st.users {
			if u.Email == email {
				out = u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r userRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	var out model.User
	err := r.v.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (r userRepo) AddDeviceToken(_ context.Context, userID uint64, token string) error {
	return r.v.with(func(st *state) error {
		for _, t := range st.tokens[userID] {
			if t == token {
				return nil
			}
		}
		st.tokens[userID] = append(st.tokens[userID], token)
		return nil
	})
}

func (r userRepo) DeviceTokens(_ context.Context, userID uint64) ([]string, error) {
	var out []string
	err := r.v.with(func(st *state) error {
		out = append([]string{}, st.tokens[userID]...)
		return nil
	})
	return out, err
}

func (r userRepo) RemoveDeviceToken(_ context.Context, userID uint64, token string) error {
	return r.v.with(func(st *state) error {
		kept := st.tokens[userID][:0]
		for _, t := range st.tokens[userID] {
			if t != token {
				kept = append(kept, t)
			}
		}
		st.tokens[userID] = kept
		return nil
	})
}

// ---- clubs ----

type clubRepo struct{ v *view }

func (r clubRepo) Create(_ context.Context, c model.Club) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.clubs[c.ID]; ok {
			return repository.ErrConflict
		}
		c.CreatedAt, c.UpdatedAt = r.v.now(), r.v.now()
		st.clubs[c.ID] = c
		return nil
	})
}

func (r clubRepo) GetByID(_ context.Context, id uint64) (model.Club, error) {
	var out model.Club
	err := r.v.with(func(st *state) error {
		c, ok := st.clubs[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = c
		return nil
	})
	return out, err
}

// LockByID is GetByID; InTx already serializes transactions.
func (r clubRepo) LockByID(ctx context.Context, id uint64) (model.Club, error) {
	return r.GetByID(ctx, id)
}

func (r clubRepo) List(_ context.Context) ([]model.Club, error) {
	out := []model.Club{}
	err := r.v.with(func(st *state) error {
		for _, c := range st.clubs {
			out = append(out, c)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Name != out[j].Name {
				return out[i].Name < out[j].Name
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r clubRepo) update(id uint64, fn func(c *model.Club)) error {
	return r.v.with(func(st *state) error {
		c, ok := st.clubs[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(&c)
		c.UpdatedAt = r.v.now()
		st.clubs[id] = c
		return nil
	})
}

func (r clubRepo) UpdateProfile(_ context.Context, id uint64, name, location, phone string) error {
	return r.update(id, func(c *model.Club) {
		c.Name = strings.TrimSpace(name)
		c.Location = strings.TrimSpace(location)
		c.Phone = strings.TrimSpace(phone)
	})
}

func (r clubRepo) SetLogo(_ context.Context, id uint64, url string) error {
	return r.update(id, func(c *model.Club) { c.LogoURL = url })
}

func (r clubRepo) SetRatingAggregate(_ context.Context, id uint64, avg float64, count int) error {
	err := r.update(id, func(c *model.Club) {
		c.AverageRating = avg
		c.RatingCount = count
	})
	if err == repository.ErrNotFound {
		return nil
	}
	return err
}

func (r clubRepo) Rankings(_ context.Context, limit int) ([]model.ClubRanking, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []model.ClubRanking{}
	err := r.v.with(func(st *state) error {
		for _, c := range st.clubs {
			if c.RatingCount > 0 {
				out = append(out, model.ClubRanking{ClubID: c.ID, Name: c.Name, LogoURL: c.LogoURL,
					AverageRating: c.AverageRating, RatingCount: c.RatingCount})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		if a.RatingCount != b.RatingCount {
			return a.RatingCount > b.RatingCount
		}
		return a.ClubID < b.ClubID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r clubRepo) ListBoatTypes(_ context.Context, clubID uint64) ([]model.BoatType, error) {
	if r.v.s.CatalogErr != nil {
		return nil, r.v.s.CatalogErr
	}
	out := []model.BoatType{}
	err := r.v.with(func(st *state) error {
		out = append(out, st.boats[clubID]...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Capacity < out[j].Capacity
	})
	return out, err
}

func (r clubRepo) LockBoatType(_ context.Context, clubID uint64, key model.BoatKey) (model.BoatType, error) {
	var out model.BoatType
	err := r.v.with(func(st *state) error {
		for _, b := range st.boats[clubID] {
			if b.Key() == key {
				out = b
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r clubRepo) ReplaceBoatTypes(_ context.Context, clubID uint64, boats []model.BoatType) error {
	return r.v.with(func(st *state) error {
		seen := map[model.BoatKey]bool{}
		for _, b := range boats {
			if seen[b.Key()] {
				return repository.ErrConflict
			}
			seen[b.Key()] = true
		}
		st.boats[clubID] = append([]model.BoatType(nil), boats...)
		return nil
	})
}

func (r clubRepo) UpsertBoatType(_ context.Context, clubID uint64, b model.BoatType) error {
	return r.v.with(func(st *state) error {
		for i, cur := range st.boats[clubID] {
			if cur.Key() == b.Key() {
				st.boats[clubID][i] = b
				return nil
			}
		}
		st.boats[clubID] = append(st.boats[clubID], b)
		return nil
	})
}

func (r clubRepo) DeleteBoatType(_ context.Context, clubID uint64, key model.BoatKey) error {
	return r.v.with(func(st *state) error {
		for i, cur := range st.boats[clubID] {
			if cur.Key() == key {
				st.boats[clubID] = append(st.boats[clubID][:i:i], st.boats[clubID][i+1:]...)
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r clubRepo) GetBait(_ context.Context, clubID uint64) (model.BaitOffer, error) {
	out := model.BaitOffer{Available: true}
	err := r.v.with(func(st *state) error {
		if b, ok := st.bait[clubID]; ok {
			out = b
		}
		return nil
	})
	return out, err
}

func (r clubRepo) SetBait(_ context.Context, clubID uint64, b model.BaitOffer) error {
	return r.v.with(func(st *state) error {
		st.bait[clubID] = b
		return nil
	})
}

// ---- reservations ----

type reservationRepo struct{ v *view }

func (r reservationRepo) Create(_ context.Context, res *model.Reservation) error {
	return r.v.with(func(st *state) error {
		res.ID = st.nextID()
		res.CreatedAt, res.UpdatedAt = r.v.now(), r.v.now()
		st.reservations[res.ID] = *res
		return nil
	})
}

func (r reservationRepo) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	var out model.Reservation
	err := r.v.with(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = res
		return nil
	})
	return out, err
}

func (r reservationRepo) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r reservationRepo) Update(_ context.Context, res model.Reservation) error {
	return r.v.with(func(st *state) error {
		cur, ok := st.reservations[res.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.PartySize = res.PartySize
		cur.BaitPacks = res.BaitPacks
		cur.Date = res.Date
		cur.State = res.State
		cur.Message = res.Message
		cur.TotalCents = res.TotalCents
		cur.UpdatedAt = r.v.now()
		st.reservations[res.ID] = cur
		return nil
	})
}

func (r reservationRepo) ListActiveByClubDate(_ context.Context, clubID uint64, date time.Time) ([]model.Reservation, error) {
	if r.v.s.CatalogErr != nil {
		return nil, r.v.s.CatalogErr
	}
	out := []model.Reservation{}
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.ClubID == clubID && res.HasDate() && res.Date.Equal(date) && model.IsActiveState(res.State) {
				out = append(out, res)
			}
		}
		return nil
	})
	return out, err
}

func (r reservationRepo) CountActive(_ context.Context, clubID uint64, key model.BoatKey, date time.Time, excludeID uint64) (int, error) {
	n := 0
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.ID == excludeID || res.ClubID != clubID || !res.HasDate() || !res.Date.Equal(date) {
				continue
			}
			if res.BoatKind == key.Kind && res.Capacity == key.Capacity && model.IsActiveState(res.State) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func newestFirst(items []model.Reservation) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].ID > items[j].ID
	})
}

func (r reservationRepo) ListByFisher(_ context.Context, fisherID uint64) ([]model.Reservation, error) {
	out := []model.Reservation{}
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.FisherID == fisherID {
				out = append(out, res)
			}
		}
		return nil
	})
	newestFirst(out)
	return out, err
}

func (r reservationRepo) ListByClub(_ context.Context, f repository.ClubFilter) ([]model.Reservation, int, error) {
	all := []model.Reservation{}
	err := r.v.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.ClubID != f.ClubID {
				continue
			}
			if !f.From.IsZero() && (!res.HasDate() || res.Date.Before(f.From)) {
				continue
			}
			if !f.To.IsZero() && (!res.HasDate() || !res.Date.Before(f.To)) {
				continue
			}
			if f.State != "" && res.State != f.State {
				continue
			}
			all = append(all, res)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	newestFirst(all)
	limit := f.Limit
	if limit <= 0 {
		limit = 5
	}
	total := len(all)
	if f.Offset >= total {
		return []model.Reservation{}, total, nil
	}
	end := f.Offset + limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (r reservationRepo) AppendHistory(_ context.Context, h model.HistoryEntry) error {
	return r.v.with(func(st *state) error {
		h.ID = st.nextID()
		h.CreatedAt = r.v.now()
		st.history = append(st.history, h)
		return nil
	})
}

func (r reservationRepo) History(_ context.Context, reservationID uint64) ([]model.HistoryEntry, error) {
	out := []model.HistoryEntry{}
	err := r.v.with(func(st *state) error {
		for _, h := range st.history {
			if h.ReservationID == reservationID {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, err
}

// ---- ratings ----

type ratingRepo struct{ v *view }

func (r ratingRepo) Upsert(_ context.Context, rt model.Rating) error {
	return r.v.with(func(st *state) error {
		k := ratingKey{rt.FisherID, rt.ClubID}
		now := r.v.now()
		if cur, ok := st.ratings[k]; ok {
			rt.CreatedAt = cur.CreatedAt
		} else {
			rt.CreatedAt = now
		}
		rt.UpdatedAt = now
		st.ratings[k] = rt
		return nil
	})
}

func (r ratingRepo) Aggregate(_ context.Context, clubID uint64) (int, int, error) {
	sum, count := 0, 0
	err := r.v.with(func(st *state) error {
		for _, rt := range st.ratings {
			if rt.ClubID == clubID {
				sum += rt.Score
				count++
			}
		}
		return nil
	})
	return sum, count, err
}

func (r ratingRepo) Get(_ context.Context, fisherID, clubID uint64) (model.Rating, error) {
	var out model.Rating
	err := r.v.with(func(st *state) error {
		rt, ok := st.ratings[ratingKey{fisherID, clubID}]
		if !ok {
			return repository.ErrNotFound
		}
		rt.FisherName = st.users[fisherID].Name
		out = rt
		return nil
	})
	return out, err
}

func (r ratingRepo) ListByClub(_ context.Context, clubID uint64) ([]model.Rating, error) {
	out := []model.Rating{}
	err := r.v.with(func(st *state) error {
		for _, rt := range st.ratings {
			if rt.ClubID == clubID {
				rt.FisherName = st.users[rt.FisherID].Name
				out = append(out, rt)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].FisherID > out[j].FisherID
	})
	return out, err
}

// ---- notifications ----

type notificationRepo struct{ v *view }

func (r notificationRepo) Create(_ context.Context, n *model.Notification) error {
	return r.v.with(func(st *state) error {
		n.ID = st.nextID()
		if n.CreatedAt.IsZero() {
			n.CreatedAt = r.v.now()
		}
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r notificationRepo) List(_ context.Context, role string, targetID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []model.Notification{}
	err := r.v.with(func(st *state) error {
		for i := len(st.notifications) - 1; i >= 0 && len(out) < limit; i-- {
			n := st.notifications[i]
			if n.TargetRole == role && n.TargetID == targetID && (!unreadOnly || !n.Read) {
				out = append(out, n)
			}
		}
		return nil
	})
	return out, err
}

func (r notificationRepo) MarkRead(_ context.Context, id uint64, role string, targetID uint64) error {
	return r.v.with(func(st *state) error {
		for i, n := range st.notifications {
			if n.ID == id && n.TargetRole == role && n.TargetID == targetID {
				st.notifications[i].Read = true
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r notificationRepo) MarkAllRead(_ context.Context, role string, targetID uint64) (int64, error) {
	var n int64
	err := r.v.with(func(st *state) error {
		for i, cur := range st.notifications {
			if cur.TargetRole == role && cur.TargetID == targetID && !cur.Read {
				st.notifications[i].Read = true
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r notificationRepo) CountUnread(_ context.Context, role string, targetID uint64) (int, error) {
	n := 0
	err := r.v.with(func(st *state) error {
		for _, cur := range st.notifications {
			if cur.TargetRole == role && cur.TargetID == targetID && !cur.Read {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ---- outbox ----

type outboxRepo struct{ v *view }

func (r outboxRepo) Enqueue(_ context.Context, ev *model.OutboxEvent) error {
	return r.v.with(func(st *state) error {
		ev.ID = st.nextID()
		ev.CreatedAt = r.v.now()
		st.outbox = append(st.outbox, *ev)
		return nil
	})
}

func (r outboxRepo) ClaimPending(_ context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error) {
	var out []model.OutboxEvent
	err := r.v.with(func(st *state) error {
		for _, ev := range st.outbox {
			if len(out) >= limit {
				break
			}
			if ev.PublishedAt == nil && ev.Attempts < maxAttempts {
				out = append(out, ev)
			}
		}
		return nil
	})
	return out, err
}

func (r outboxRepo) mark(id uint64, fn func(ev *model.OutboxEvent)) error {
	return r.v.with(func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r outboxRepo) MarkPublished(_ context.Context, id uint64, at time.Time) error {
	return r.mark(id, func(ev *model.OutboxEvent) {
		ev.Attempts++
		t := at
		ev.PublishedAt = &t
	})
}

func (r outboxRepo) MarkFailed(_ context.Context, id uint64) error {
	return r.mark(id, func(ev *model.OutboxEvent) { ev.Attempts++ })
}
