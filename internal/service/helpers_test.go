package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/booksphere/internal/database/dbtest"
	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/repository"
	"github.com/iliyamo/booksphere/internal/service"
)

const (
	testAdminSecret = "let-me-in"
	testJWTSecret   = "test-jwt-secret"
)

type suite struct {
	db       *sql.DB
	users    *repository.UserRepo
	tokens   *repository.TokenRepo
	identity *service.IdentityService
	auth     *service.AuthService
	catalog  *service.CatalogService
	ledger   *service.BookingService
	notifier *recordingNotifier
	cache    *countingInvalidator
}

func newSuite(t *testing.T) *suite {
	t.Helper()
	db := dbtest.Open(t)
	log := zerolog.Nop()

	s := &suite{
		db:       db,
		users:    repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
		notifier: &recordingNotifier{},
		cache:    &countingInvalidator{},
	}
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)

	s.identity = service.NewIdentityService(log, s.users, bcrypt.MinCost, testAdminSecret)
	s.auth = service.NewAuthService(log, s.users, s.tokens, testJWTSecret, time.Hour)
	s.catalog = service.NewCatalogService(log, events, bookings, s.cache)
	s.ledger = service.NewBookingService(log, events, bookings, s.notifier)
	return s
}

func zerologNop() zerolog.Logger { return zerolog.Nop() }

func fakeUser() service.NewUser {
	name := strings.ToLower(gofakeit.LetterN(12))
	return service.NewUser{
		Username: name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: gofakeit.Password(true, true, true, false, false, 16),
	}
}

func (s *suite) principal(t *testing.T, role model.Role) service.Principal {
	t.Helper()
	ctx := context.Background()
	in := fakeUser()

	var (
		u   model.User
		err error
	)
	if role == model.RoleAdmin {
		u, err = s.identity.CreateAdmin(ctx, in, testAdminSecret)
	} else {
		u, err = s.identity.CreateUser(ctx, in)
	}
	require.NoError(t, err)
	return service.PrincipalOf(u)
}

func (s *suite) event(t *testing.T, admin service.Principal) model.Event {
	t.Helper()
	price := model.Price(gofakeit.Number(0, 50_000))
	e, err := s.catalog.CreateEvent(context.Background(), admin, service.EventInput{
		Name:        gofakeit.Sentence(3),
		Description: gofakeit.Paragraph(1, 2, 10, " "),
		Category:    string(model.CategoryCultural),
		Date:        time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		Venue:       gofakeit.City(),
		Price:       &price,
	})
	require.NoError(t, err)
	return e
}

func requireKind(t *testing.T, err error, kind service.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, service.KindOf(err), "unexpected error: %v", err)
}

type recordingNotifier struct {
	mu        sync.Mutex
	created   []model.BookingDetail
	cancelled []model.Booking
	fail      error
}

func (n *recordingNotifier) BookingCreated(_ context.Context, b model.BookingDetail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, b)
	return n.fail
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, b model.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b)
	return n.fail
}

type countingInvalidator struct {
	mu sync.Mutex
	n  int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
