//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "attendance_test_db"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	dropTables()
	if err := database.Migrate(testDB); err != nil {
		log.Fatalf("failed to migrate test database: %v", err)
	}

	code := m.Run()

	dropTables()
	os.Exit(code)
}

func dropTables() {
	for _, table := range []string{
		"ticket_transfers", "tickets", "attendance", "roster_entries", "roster_uploads",
		"registrations", "members", "ticket_categories", "events",
	} {
		testDB.Exec("DROP TABLE IF EXISTS " + table + " CASCADE")
	}
}

func cleanTables() {
	for _, table := range []string{
		"ticket_transfers", "tickets", "attendance", "roster_entries", "roster_uploads",
		"registrations", "members", "ticket_categories", "events",
	} {
		testDB.Exec("DELETE FROM " + table)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var eventIDCounter uint32

func createEvent(t *testing.T, typ models.EventType) *models.Event {
	t.Helper()
	end := time.Now().Add(24 * time.Hour)
	event := &models.Event{
		ID:      uint(atomic.AddUint32(&eventIDCounter, 1)),
		Name:    "Jalsa Salana",
		Type:    typ,
		StartAt: time.Now(),
		EndAt:   &end,
	}
	require.NoError(t, testDB.Create(event).Error)
	return event
}

func createRegistration(t *testing.T, eventID uint) *models.Registration {
	t.Helper()
	id := uuid.NewString()
	reg := &models.Registration{
		ID:        id,
		EventID:   eventID,
		Kind:      models.KindGuest,
		Token:     "token-" + id,
		ShortCode: id[:6],
		Name:      "Jane Doe",
		Status:    models.StatusRegistered,
	}
	require.NoError(t, NewRegistrationRepository(testDB).Create(context.Background(), reg))
	return reg
}

func createTicket(t *testing.T, eventID, categoryID uint, status models.PaymentStatus) *models.Ticket {
	t.Helper()
	id := uuid.NewString()
	ticket := &models.Ticket{
		ID:             id,
		TicketNumber:   "TKT" + id[:6],
		Token:          "ticket-" + id,
		EventID:        eventID,
		CategoryID:     categoryID,
		CategoryName:   "General",
		Price:          20,
		PaymentMethod:  models.PaymentCash,
		PaymentStatus:  status,
		OwnerName:      "Ama Mensah",
		OwnerEmail:     "ama@x.org",
		MaxTransfers:   5,
		IsTransferable: true,
		Status:         models.TicketActive,
	}
	require.NoError(t, NewTicketRepository(testDB).Create(context.Background(), nil, ticket))
	return ticket
}

func TestMarkOnline_Concurrent(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeRegistration)
	reg := createRegistration(t, event.ID)
	repo := NewRegistrationRepository(testDB)

	const scanners = 25
	var wins int32
	var wg sync.WaitGroup
	wg.Add(scanners)
	for i := 0; i < scanners; i++ {
		go func(i int) {
			defer wg.Done()
			ok, err := repo.MarkOnline(context.Background(), nil, reg.ID, models.MethodQRScan, fmt.Sprintf("usher-%d", i), time.Now())
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)

	stored, err := repo.FindByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, stored.Status)
	assert.NotNil(t, stored.ValidatedAt)
}

func TestMarkOnline_CancelledIsRefused(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeRegistration)
	reg := createRegistration(t, event.ID)
	repo := NewRegistrationRepository(testDB)

	cancelled, err := repo.Cancel(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	again, err := repo.Cancel(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.False(t, again)

	ok, err := repo.MarkOnline(context.Background(), nil, reg.ID, models.MethodQRScan, "usher", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttendance_OneValidRowPerRegistration(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeRegistration)
	reg := createRegistration(t, event.ID)
	repo := NewAttendanceRepository(testDB)

	first := &models.Attendance{EventID: event.ID, RegistrationID: &reg.ID, OperatorID: "a", Outcome: models.OutcomeValid, Method: models.MethodQRScan}
	require.NoError(t, repo.Create(context.Background(), nil, first))

	second := &models.Attendance{EventID: event.ID, RegistrationID: &reg.ID, OperatorID: "b", Outcome: models.OutcomeValid, Method: models.MethodQRScan}
	err := repo.Create(context.Background(), nil, second)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	records, err := repo.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeRegistration)
	reg := createRegistration(t, event.ID)
	regs := NewRegistrationRepository(testDB)
	attendance := NewAttendanceRepository(testDB)
	boom := errors.New("publish failed")

	err := NewTransactor(testDB).Transaction(context.Background(), func(tx *gorm.DB) error {
		ok, err := regs.MarkOnline(context.Background(), tx, reg.ID, models.MethodQRScan, "usher", time.Now())
		if err != nil || !ok {
			return fmt.Errorf("mark online: ok=%v err=%v", ok, err)
		}
		if err := attendance.Create(context.Background(), tx, &models.Attendance{
			EventID: event.ID, RegistrationID: &reg.ID, OperatorID: "usher",
			Outcome: models.OutcomeValid, Method: models.MethodQRScan,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := regs.FindByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistered, stored.Status)

	records, err := attendance.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReserveSeat_RespectsQuota(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeTicket)
	category := &models.TicketCategory{EventID: event.ID, Name: "VIP", Price: 50, Quota: 3, IsActive: true}
	require.NoError(t, testDB.Create(category).Error)
	repo := NewEventRepository(testDB)

	const buyers = 10
	var wins int32
	var wg sync.WaitGroup
	wg.Add(buyers)
	for i := 0; i < buyers; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.ReserveSeat(context.Background(), nil, category.ID)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), wins)

	var stored models.TicketCategory
	require.NoError(t, testDB.First(&stored, category.ID).Error)
	assert.Equal(t, 3, stored.Sold)

	require.NoError(t, repo.ReleaseSeat(context.Background(), nil, category.ID))
	require.NoError(t, testDB.First(&stored, category.ID).Error)
	assert.Equal(t, 2, stored.Sold)
}

func TestUpsert_KeepsInactiveCategory(t *testing.T) {
	cleanTables()
	repo := NewEventRepository(testDB)
	categoryID := uint(atomic.AddUint32(&eventIDCounter, 1)) + 10000

	event := &models.Event{
		ID:      uint(atomic.AddUint32(&eventIDCounter, 1)),
		Name:    "Gala",
		Type:    models.EventTypeTicket,
		StartAt: time.Now(),
		TicketCategories: []models.TicketCategory{
			{ID: categoryID, Name: "VIP", Price: 50, Quota: 10, IsActive: false},
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), event))

	var stored models.TicketCategory
	require.NoError(t, testDB.First(&stored, categoryID).Error)
	assert.False(t, stored.IsActive, "inactive on first insert")

	ok, err := repo.ReserveSeat(context.Background(), nil, categoryID)
	require.NoError(t, err)
	require.True(t, ok)

	event.TicketCategories = []models.TicketCategory{{ID: categoryID, Name: "VIP", Price: 50, Quota: 10, IsActive: true}}
	require.NoError(t, repo.Upsert(context.Background(), event))
	require.NoError(t, testDB.First(&stored, categoryID).Error)
	assert.True(t, stored.IsActive)

	event.TicketCategories = []models.TicketCategory{{ID: categoryID, Name: "VIP", Price: 60, Quota: 10, IsActive: false}}
	require.NoError(t, repo.Upsert(context.Background(), event))
	require.NoError(t, testDB.First(&stored, categoryID).Error)
	assert.False(t, stored.IsActive, "deactivation survives the conflict update")
	assert.Equal(t, 60.0, stored.Price)
	assert.Equal(t, 1, stored.Sold, "sold counter is local")
}

func TestMarkUsed_SingleUse(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeTicket)
	repo := NewTicketRepository(testDB)

	unpaid := createTicket(t, event.ID, 1, models.PaymentPending)
	ok, err := repo.MarkUsed(context.Background(), nil, unpaid.ID, "gate", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "unpaid tickets are never admitted")

	paid := createTicket(t, event.ID, 1, models.PaymentPaid)
	const gates = 16
	var wins int32
	var wg sync.WaitGroup
	wg.Add(gates)
	for i := 0; i < gates; i++ {
		go func(i int) {
			defer wg.Done()
			ok, err := repo.MarkUsed(context.Background(), nil, paid.ID, fmt.Sprintf("gate-%d", i), time.Now())
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	stored, err := repo.FindByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, stored.Status)
	assert.NotEmpty(t, stored.ScannedBy)
}

func TestApplyTransfer_BoundedByMax(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeTicket)
	repo := NewTicketRepository(testDB)
	ticket := createTicket(t, event.ID, 1, models.PaymentPaid)

	applied := 0
	for i := 0; i < 8; i++ {
		ok, err := repo.ApplyTransfer(context.Background(), nil, ticket.ID, models.TicketOwner{
			Name:  fmt.Sprintf("Owner %d", i),
			Email: fmt.Sprintf("owner%d@x.org", i),
		})
		require.NoError(t, err)
		if ok {
			applied++
		}
	}
	assert.Equal(t, 5, applied)

	stored, err := repo.FindByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.TransferCount)
	assert.Equal(t, "owner4@x.org", stored.OwnerEmail)
}

func TestSettlePayment_OnlyFromPending(t *testing.T) {
	cleanTables()
	event := createEvent(t, models.EventTypeTicket)
	repo := NewTicketRepository(testDB)
	ticket := createTicket(t, event.ID, 1, models.PaymentPending)
	require.NoError(t, repo.SetPaymentReference(context.Background(), ticket.ID, "TKT-ref-1"))

	pending, err := repo.FindPendingGateway(context.Background(), time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "cash tickets are not reconciled against the gateway")

	ok, err := repo.SettlePayment(context.Background(), "TKT-ref-1", models.PaymentPaid, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SettlePayment(context.Background(), "TKT-ref-1", models.PaymentFailed, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByReference(context.Background(), "TKT-ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.NotNil(t, stored.PaidAt)
}
