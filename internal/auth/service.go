package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carbocredit/backend/internal/models"
)

// ErrMissingWallet is returned when login is attempted without a wallet address.
var ErrMissingWallet = errors.New("wallet address required")

// ErrInvalidToken is returned when a session token fails validation.
var ErrInvalidToken = errors.New("invalid token")

// UserStore is the minimal user repository interface the auth service needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByWallet(ctx context.Context, walletAddress string) (*models.User, error)
}

type Service interface {
	Login(ctx context.Context, walletAddress string) (*models.User, string, error)
	ValidateToken(token string) (uuid.UUID, error)
}

type service struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration
}

func NewService(store UserStore, secret string) *service {
	return &service{store: store, secret: []byte(secret), tokenTTL: 24 * time.Hour}
}

var _ Service = (*service)(nil)

// Login resolves a wallet address to a user record, creating the record on
// first login, and issues a session token. If two first logins for the same
// wallet race, the loser of the insert re-reads the winner's row.
func (s *service) Login(ctx context.Context, walletAddress string) (*models.User, string, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, "", ErrMissingWallet
	}

	user, err := s.store.GetByWallet(ctx, walletAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		user = &models.User{
			ID:            uuid.New(),
			WalletAddress: walletAddress,
			Username:      defaultUsername(walletAddress),
			Role:          models.RoleUser,
		}
		if createErr := s.store.Create(ctx, user); createErr != nil {
			var pgErr *pgconn.PgError
			if errors.As(createErr, &pgErr) && pgErr.Code == "23505" {
				user, err = s.store.GetByWallet(ctx, walletAddress)
				if err != nil {
					return nil, "", err
				}
			} else {
				return nil, "", createErr
			}
		}
	} else if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

type claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

func (s *service) issueToken(u *models.User) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: u.Role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken returns the user ID carried by a valid session token.
func (s *service) ValidateToken(token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

func defaultUsername(walletAddress string) string {
	prefix := walletAddress
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	return fmt.Sprintf("User-%s", prefix)
}
