package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/iliyamo/fishing-club-booking/internal/model"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountService registers and authenticates users.  Registering a club
// also creates its club row, default catalog and bait offer.
type AccountService struct {
	store      Storage
	bcryptCost int
}

func NewAccountService(store Storage, bcryptCost int) *AccountService {
	return &AccountService{store: store, bcryptCost: bcryptCost}
}

type RegisterInput struct {
	Email    string
	Password string
	Role     string
	Name     string
	Phone    string
	// Club fields; used only for the CLUB role.  ClubName defaults to Name.
	ClubName string
	Location string
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToUpper(strings.TrimSpace(in.Role))
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return model.User{}, invalid("a valid email is required")
	}
	if len(in.Password) < 6 || len(in.Password) > 72 {
		return model.User{}, invalid("password must have between 6 and 72 characters")
	}
	if in.Role == "" {
		in.Role = model.RoleFisher
	}
	if in.Role != model.RoleFisher && in.Role != model.RoleClub {
		return model.User{}, invalid("role must be CLUB or FISHER")
	}
	if in.Role == model.RoleClub && strings.TrimSpace(firstNonEmpty(in.ClubName, in.Name)) == "" {
		return model.User{}, invalid("club name is required")
	}

	var u model.User
	err := s.store.InTx(ctx, func(r Repos) error {
		id, err := r.Users.Create(ctx, repository.NewUser{
			Email: in.Email, Password: in.Password, Role: in.Role, Name: in.Name, Phone: in.Phone,
		}, s.bcryptCost)
		if err != nil {
			return err
		}
		if in.Role == model.RoleClub {
			if err := r.Clubs.Create(ctx, model.Club{
				ID:       id,
				Name:     firstNonEmpty(in.ClubName, in.Name),
				Location: in.Location,
				Phone:    in.Phone,
			}); err != nil {
				return err
			}
			if err := r.Clubs.ReplaceBoatTypes(ctx, id, model.DefaultCatalog()); err != nil {
				return err
			}
			if err := r.Clubs.SetBait(ctx, id, model.BaitOffer{Available: true}); err != nil {
				return err
			}
		}
		u, err = r.Users.GetByID(ctx, id)
		return err
	})
	return u, err
}

// Authenticate checks email and password.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.store.Repos().Users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AccountService) User(ctx context.Context, id uint64) (model.User, error) {
	return s.store.Repos().Users.GetByID(ctx, id)
}

// AddDeviceToken registers an FCM token for push delivery.
func (s *AccountService) AddDeviceToken(ctx context.Context, actor Actor, token string) error {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 512 {
		return invalid("token is required")
	}
	return s.store.Repos().Users.AddDeviceToken(ctx, actor.ID, token)
}
