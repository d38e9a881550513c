package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/events"
	"ticket-ledger/internal/models"
)

type MockEventDB struct {
	mock.Mock
}

func (m *MockEventDB) NextID(ctx context.Context, sequence string) (uint64, error) {
	args := m.Called(ctx, sequence)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEventDB) InsertEvent(ctx context.Context, event models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventDB) GetEventByID(ctx context.Context, id uint64) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventDB) UpdateEvent(ctx context.Context, event models.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventDB) GetOrganizer(ctx context.Context, organizer string) (*models.OrganizerRecord, error) {
	args := m.Called(ctx, organizer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrganizerRecord), args.Error(1)
}

func (m *MockEventDB) SaveOrganizer(ctx context.Context, record models.OrganizerRecord) error {
	return m.Called(ctx, record).Error(0)
}

type fixedFloor uint64

func (f fixedFloor) MinTicketPrice(context.Context) (uint64, error) { return uint64(f), nil }

const (
	admin     = "SP-ADMIN"
	organizer = "SP-ORGANIZER"
)

func validInput() models.EventInput {
	return models.EventInput{
		Name:         "Summer Fest",
		Description:  "Open air",
		Venue:        "Main Park",
		Date:         500,
		TotalTickets: 100,
		TicketPrice:  2000,
		RefundWindow: 50,
		Category:     "music",
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	call := models.Call{Caller: organizer, Height: 10}

	db := new(MockEventDB)
	db.On("NextID", ctx, models.EventSequence).Return(uint64(1), nil)
	db.On("InsertEvent", ctx, mock.MatchedBy(func(e models.Event) bool {
		return e.EventID == 1 && e.Organizer == organizer && e.IsActive &&
			e.TicketsSold == 0 && e.Revenue == 0 && e.Venue == "Main Park"
	})).Return(nil)
	db.On("GetOrganizer", ctx, organizer).Return(nil, nil)
	db.On("SaveOrganizer", ctx, models.OrganizerRecord{Organizer: organizer, EventsOrganized: 1}).Return(nil)

	svc := events.NewService(db, fixedFloor(1000), admin)
	id, err := svc.CreateEvent(ctx, call, validInput())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	db.AssertExpectations(t)
}

func TestCreateEventValidationOrder(t *testing.T) {
	ctx := context.Background()
	call := models.Call{Caller: organizer, Height: 10}

	cases := []struct {
		name   string
		mutate func(*models.EventInput)
		want   error
	}{
		{"zero capacity wins over everything", func(in *models.EventInput) {
			in.TotalTickets = 0
			in.TicketPrice = 1
			in.Date = 1
			in.RefundWindow = 0
		}, models.ErrInvalidCapacity},
		{"price below floor", func(in *models.EventInput) {
			in.TicketPrice = 999
			in.Date = 1
		}, models.ErrInvalidPrice},
		{"date equal to height", func(in *models.EventInput) {
			in.Date = 10
			in.RefundWindow = 0
		}, models.ErrEventExpired},
		{"zero refund window", func(in *models.EventInput) {
			in.RefundWindow = 0
		}, models.ErrInvalidRefundWindow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := new(MockEventDB)
			svc := events.NewService(db, fixedFloor(1000), admin)
			in := validInput()
			tc.mutate(&in)
			_, err := svc.CreateEvent(ctx, call, in)
			assert.ErrorIs(t, err, tc.want)
			db.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateEventPriceAtFloor(t *testing.T) {
	ctx := context.Background()
	db := new(MockEventDB)
	db.On("NextID", ctx, models.EventSequence).Return(uint64(3), nil)
	db.On("InsertEvent", ctx, mock.Anything).Return(nil)
	db.On("GetOrganizer", ctx, organizer).Return(&models.OrganizerRecord{Organizer: organizer, EventsOrganized: 2}, nil)
	db.On("SaveOrganizer", ctx, models.OrganizerRecord{Organizer: organizer, EventsOrganized: 3}).Return(nil)

	in := validInput()
	in.TicketPrice = 1000
	id, err := events.NewService(db, fixedFloor(1000), admin).CreateEvent(ctx, models.Call{Caller: organizer, Height: 10}, in)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	db.AssertExpectations(t)
}

func TestCloseEvent(t *testing.T) {
	ctx := context.Background()
	active := func() *models.Event {
		return &models.Event{EventID: 7, Organizer: organizer, IsActive: true, TotalTickets: 5}
	}

	t.Run("organizer closes", func(t *testing.T) {
		db := new(MockEventDB)
		db.On("GetEventByID", ctx, uint64(7)).Return(active(), nil)
		db.On("UpdateEvent", ctx, mock.MatchedBy(func(e models.Event) bool { return !e.IsActive })).Return(nil)
		require.NoError(t, events.NewService(db, fixedFloor(0), admin).CloseEvent(ctx, models.Call{Caller: organizer}, 7))
		db.AssertExpectations(t)
	})

	t.Run("admin closes", func(t *testing.T) {
		db := new(MockEventDB)
		db.On("GetEventByID", ctx, uint64(7)).Return(active(), nil)
		db.On("UpdateEvent", ctx, mock.Anything).Return(nil)
		assert.NoError(t, events.NewService(db, fixedFloor(0), admin).CloseEvent(ctx, models.Call{Caller: admin}, 7))
	})

	t.Run("stranger rejected", func(t *testing.T) {
		db := new(MockEventDB)
		db.On("GetEventByID", ctx, uint64(7)).Return(active(), nil)
		err := events.NewService(db, fixedFloor(0), admin).CloseEvent(ctx, models.Call{Caller: "SP-X"}, 7)
		assert.ErrorIs(t, err, models.ErrNotAuthorized)
	})

	t.Run("missing event", func(t *testing.T) {
		db := new(MockEventDB)
		db.On("GetEventByID", ctx, uint64(8)).Return(nil, nil)
		err := events.NewService(db, fixedFloor(0), admin).CloseEvent(ctx, models.Call{Caller: admin}, 8)
		assert.ErrorIs(t, err, models.ErrEventNotFound)
	})
}

func TestRecordSaleAndRefund(t *testing.T) {
	ctx := context.Background()
	event := &models.Event{EventID: 1, Organizer: organizer, TotalTickets: 1, IsActive: true}

	db := new(MockEventDB)
	db.On("UpdateEvent", ctx, mock.Anything).Return(nil)
	db.On("GetOrganizer", ctx, organizer).Return(&models.OrganizerRecord{Organizer: organizer, EventsOrganized: 1}, nil)
	db.On("SaveOrganizer", ctx, models.OrganizerRecord{Organizer: organizer, EventsOrganized: 1, TotalRevenue: 500}).Return(nil)

	svc := events.NewService(db, fixedFloor(0), admin)
	require.NoError(t, svc.RecordSale(ctx, event, 500))
	assert.Equal(t, uint64(1), event.TicketsSold)
	assert.Equal(t, uint64(500), event.Revenue)

	assert.ErrorIs(t, svc.RecordSale(ctx, event, 500), models.ErrSoldOut)

	require.NoError(t, svc.RecordRefund(ctx, event, 500))
	assert.Equal(t, uint64(1), event.TicketsSold)
	assert.Equal(t, uint64(0), event.Revenue)

	assert.Error(t, svc.RecordRefund(ctx, event, 1))
	db.AssertExpectations(t)
}

func TestGetEventWrapsStoreErrors(t *testing.T) {
	ctx := context.Background()
	db := new(MockEventDB)
	db.On("GetEventByID", ctx, uint64(1)).Return(nil, errors.New("io"))
	_, err := events.NewService(db, fixedFloor(0), admin).GetEvent(ctx, 1)
	assert.Error(t, err)
	_, ok := models.CodeOf(err)
	assert.False(t, ok)
}
