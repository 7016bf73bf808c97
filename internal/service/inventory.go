package service

import (
	"context"
	"strings"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// InventoryService manages a club's profile, boat catalog and bait offer.
// Every method is scoped to the acting club.
type InventoryService struct {
	store Storage
}

func NewInventoryService(store Storage) *InventoryService { return &InventoryService{store: store} }

func requireClub(actor Actor) error {
	if !actor.IsClub() {
		return ErrForbidden
	}
	return nil
}

func normalizeBoat(b model.BoatType) (model.BoatType, error) {
	b.Kind = strings.ToLower(strings.TrimSpace(b.Kind))
	switch {
	case b.Kind == "":
		return b, invalid("kind is required")
	case b.Capacity < 1:
		return b, invalid("capacity must be at least 1")
	case b.Count < 0:
		return b, invalid("count must not be negative")
	case b.PriceCents < 0:
		return b, invalid("price must not be negative")
	}
	return b, nil
}

// ValidateCatalog normalizes entries and rejects a repeated (kind, capacity).
func ValidateCatalog(boats []model.BoatType) ([]model.BoatType, error) {
	seen := make(map[model.BoatKey]bool, len(boats))
	out := make([]model.BoatType, 0, len(boats))
	for _, b := range boats {
		nb, err := normalizeBoat(b)
		if err != nil {
			return nil, err
		}
		if seen[nb.Key()] {
			return nil, invalid("boat type %s/%d listed twice", nb.Kind, nb.Capacity)
		}
		seen[nb.Key()] = true
		out = append(out, nb)
	}
	return out, nil
}

func (s *InventoryService) Catalog(ctx context.Context, clubID uint64) ([]model.BoatType, error) {
	return s.store.Repos().Clubs.ListBoatTypes(ctx, clubID)
}

// ReplaceCatalog swaps the whole catalog; last write wins.
func (s *InventoryService) ReplaceCatalog(ctx context.Context, actor Actor, boats []model.BoatType) ([]model.BoatType, error) {
	if err := requireClub(actor); err != nil {
		return nil, err
	}
	clean, err := ValidateCatalog(boats)
	if err != nil {
		return nil, err
	}
	err = s.store.InTx(ctx, func(r Repos) error {
		return r.Clubs.ReplaceBoatTypes(ctx, actor.ID, clean)
	})
	if err != nil {
		return nil, err
	}
	return s.Catalog(ctx, actor.ID)
}

func (s *InventoryService) UpsertBoatType(ctx context.Context, actor Actor, b model.BoatType) (model.BoatType, error) {
	if err := requireClub(actor); err != nil {
		return b, err
	}
	nb, err := normalizeBoat(b)
	if err != nil {
		return b, err
	}
	return nb, s.store.Repos().Clubs.UpsertBoatType(ctx, actor.ID, nb)
}

func (s *InventoryService) DeleteBoatType(ctx context.Context, actor Actor, key model.BoatKey) error {
	if err := requireClub(actor); err != nil {
		return err
	}
	key.Kind = strings.ToLower(strings.TrimSpace(key.Kind))
	return s.store.Repos().Clubs.DeleteBoatType(ctx, actor.ID, key)
}

func (s *InventoryService) Bait(ctx context.Context, clubID uint64) (model.BaitOffer, error) {
	return s.store.Repos().Clubs.GetBait(ctx, clubID)
}

func (s *InventoryService) SetBait(ctx context.Context, actor Actor, b model.BaitOffer) (model.BaitOffer, error) {
	if err := requireClub(actor); err != nil {
		return b, err
	}
	if b.PriceCents < 0 {
		return b, invalid("price must not be negative")
	}
	return b, s.store.Repos().Clubs.SetBait(ctx, actor.ID, b)
}

// ClubDetail is the public view of a club.
type ClubDetail struct {
	model.Club
	Boats []model.BoatType `json:"boats"`
	Bait  model.BaitOffer  `json:"bait"`
}

func (s *InventoryService) ListClubs(ctx context.Context) ([]model.Club, error) {
	return s.store.Repos().Clubs.List(ctx)
}

func (s *InventoryService) Club(ctx context.Context, clubID uint64) (ClubDetail, error) {
	repos := s.store.Repos()
	c, err := repos.Clubs.GetByID(ctx, clubID)
	if err != nil {
		return ClubDetail{}, err
	}
	boats, err := repos.Clubs.ListBoatTypes(ctx, clubID)
	if err != nil {
		return ClubDetail{}, err
	}
	bait, err := repos.Clubs.GetBait(ctx, clubID)
	if err != nil {
		return ClubDetail{}, err
	}
	return ClubDetail{Club: c, Boats: boats, Bait: bait}, nil
}

// ProfileInput carries editable profile fields.
type ProfileInput struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Phone    string `json:"phone"`
}

func (s *InventoryService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (model.Club, error) {
	if err := requireClub(actor); err != nil {
		return model.Club{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Club{}, invalid("name is required")
	}
	repos := s.store.Repos()
	if err := repos.Clubs.UpdateProfile(ctx, actor.ID, in.Name, in.Location, in.Phone); err != nil {
		return model.Club{}, err
	}
	return repos.Clubs.GetByID(ctx, actor.ID)
}

// SetLogo stores an already uploaded logo URL on the club.
func (s *InventoryService) SetLogo(ctx context.Context, actor Actor, url string) error {
	if err := requireClub(actor); err != nil {
		return err
	}
	return s.store.Repos().Clubs.SetLogo(ctx, actor.ID, url)
}
