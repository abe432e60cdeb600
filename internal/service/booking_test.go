package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booksphere/internal/metrics"
	"github.com/iliyamo/booksphere/internal/model"
	"github.com/iliyamo/booksphere/internal/service"
)

func TestCreateBooking(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	admin := s.principal(t, model.RoleAdmin)
	user := s.principal(t, model.RoleUser)
	e := s.event(t, admin)

	b, err := s.ledger.CreateBooking(ctx, user, e.ID)
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, user.UserID, b.UserID)
	assert.Equal(t, e.ID, b.EventID)
	assert.Equal(t, e.Name, b.EventName)
	assert.Equal(t, e.Venue, b.EventVenue)
	assert.Equal(t, e.Price, b.EventPrice)
	assert.True(t, e.Date.Equal(b.EventDate))
	assert.False(t, b.BookingDate.IsZero())

	require.Len(t, s.notifier.created, 1)
	assert.Equal(t, b.ID, s.notifier.created[0].ID)
}

func TestCreateBookingDuplicate(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	admin := s.principal(t, model.RoleAdmin)
	u1 := s.principal(t, model.RoleUser)
	u2 := s.principal(t, model.RoleUser)
	e := s.event(t, admin)

	created := testutil.ToFloat64(metrics.BookingsCreated)
	conflicts := testutil.ToFloat64(metrics.BookingConflicts)

	_, err := s.ledger.CreateBooking(ctx, u1, e.ID)
	require.NoError(t, err)

	_, err = s.ledger.CreateBooking(ctx, u1, e.ID)
	requireKind(t, err, service.KindConflict)
	assert.ErrorIs(t, err, service.ErrAlreadyBooked)

	assert.Equal(t, created+1, testutil.ToFloat64(metrics.BookingsCreated))
	assert.Equal(t, conflicts+1, testutil.ToFloat64(metrics.BookingConflicts))

	_, err = s.ledger.CreateBooking(ctx, u2, e.ID)
	require.NoError(t, err)
}

func TestCreateBookingConcurrentDuplicates(t *testing.T) {
	s := newSuite(t)
	admin := s.principal(t, model.RoleAdmin)
	user := s.principal(t, model.RoleUser)
	e := s.event(t, admin)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ledger.CreateBooking(context.Background(), user, e.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		requireKind(t, err, service.KindConflict)
	}
	assert.Equal(t, 1, ok)

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM bookings WHERE user_id = ? AND event_id = ?", user.UserID, e.ID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestCreateBookingUnknownEvent(t *testing.T) {
	s := newSuite(t)
	user := s.principal(t, model.RoleUser)

	_, err := s.ledger.CreateBooking(context.Background(), user, 4242)
	requireKind(t, err, service.KindNotFound)

	_, err = s.ledger.CreateBooking(context.Background(), user, 0)
	requireKind(t, err, service.KindValidation)

	_, err = s.ledger.CreateBooking(context.Background(), service.Principal{}, 1)
	requireKind(t, err, service.KindUnauthenticated)
}

func TestCreateBookingNotifierFailureIsIgnored(t *testing.T) {
	s := newSuite(t)
	s.notifier.fail = errors.New("broker down")
	admin := s.principal(t, model.RoleAdmin)
	user := s.principal(t, model.RoleUser)
	e := s.event(t, admin)

	_, err := s.ledger.CreateBooking(context.Background(), user, e.ID)
	require.NoError(t, err)
}

func TestListBookingsScopedToOwner(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	admin := s.principal(t, model.RoleAdmin)
	alice := s.principal(t, model.RoleUser)
	bob := s.principal(t, model.RoleUser)
	e1 := s.event(t, admin)
	e2 := s.event(t, admin)

	for _, id := range []uint64{e1.ID, e2.ID} {
		_, err := s.ledger.CreateBooking(ctx, alice, id)
		require.NoError(t, err)
	}
	_, err := s.ledger.CreateBooking(ctx, bob, e1.ID)
	require.NoError(t, err)

	list, err := s.ledger.ListBookings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, b := range list {
		assert.Equal(t, alice.UserID, b.UserID)
	}

	list, err = s.ledger.ListBookings(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bob.UserID, list[0].UserID)

	list, err = s.ledger.ListBookings(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestGetAndCancelBookingOwnerOnly(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	admin := s.principal(t, model.RoleAdmin)
	alice := s.principal(t, model.RoleUser)
	bob := s.principal(t, model.RoleUser)
	e := s.event(t, admin)

	b, err := s.ledger.CreateBooking(ctx, alice, e.ID)
	require.NoError(t, err)

	got, err := s.ledger.GetBooking(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = s.ledger.GetBooking(ctx, bob, b.ID)
	requireKind(t, err, service.KindNotFound)

	err = s.ledger.CancelBooking(ctx, bob, b.ID)
	requireKind(t, err, service.KindNotFound)

	require.NoError(t, s.ledger.CancelBooking(ctx, alice, b.ID))
	require.Len(t, s.notifier.cancelled, 1)
	assert.Equal(t, e.ID, s.notifier.cancelled[0].EventID)

	_, err = s.ledger.GetBooking(ctx, alice, b.ID)
	requireKind(t, err, service.KindNotFound)

	// a cancelled booking can be made again
	_, err = s.ledger.CreateBooking(ctx, alice, e.ID)
	require.NoError(t, err)
}

func TestDeleteEventCascadesBookings(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	admin := s.principal(t, model.RoleAdmin)
	user := s.principal(t, model.RoleUser)
	e := s.event(t, admin)
	keep := s.event(t, admin)

	_, err := s.ledger.CreateBooking(ctx, user, e.ID)
	require.NoError(t, err)
	_, err = s.ledger.CreateBooking(ctx, user, keep.ID)
	require.NoError(t, err)

	require.NoError(t, s.catalog.DeleteEvent(ctx, admin, e.ID))

	list, err := s.ledger.ListBookings(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].EventID)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM bookings WHERE event_id = ?", e.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestBookingReflectsEventEdits(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	admin := s.principal(t, model.RoleAdmin)
	user := s.principal(t, model.RoleUser)
	e := s.event(t, admin)

	b, err := s.ledger.CreateBooking(ctx, user, e.ID)
	require.NoError(t, err)

	_, err = s.catalog.UpdateEvent(ctx, admin, e.ID, service.EventPatch{Name: ptr("Moved Online")})
	require.NoError(t, err)

	got, err := s.ledger.GetBooking(ctx, user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Moved Online", got.EventName)
}
