package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	"github.com/Eursukkul/attendance-service/pkg/payment"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for every repository. Conditional
// updates take the mutex so concurrent callers see the same compare-and-set
// behaviour the SQL WHERE clauses give in production.
type memStore struct {
	mu            sync.Mutex
	events        map[uint]*models.Event
	categories    map[uint]*models.TicketCategory
	members       map[uint]*models.Member
	registrations map[string]*models.Registration
	uploads       []models.RosterUpload
	attendance    []models.Attendance
	tickets       map[string]*models.Ticket
	transfers     []models.TicketTransfer

	// createErrs is consumed one entry per registration, ticket or roster insert.
	createErrs []error
}

func newMemStore() *memStore {
	return &memStore{
		events:        map[uint]*models.Event{},
		categories:    map[uint]*models.TicketCategory{},
		members:       map[uint]*models.Member{},
		registrations: map[string]*models.Registration{},
		tickets:       map[string]*models.Ticket{},
	}
}

func (m *memStore) nextCreateErr() error {
	if len(m.createErrs) == 0 {
		return nil
	}
	err := m.createErrs[0]
	m.createErrs = m.createErrs[1:]
	return err
}

// --- Transactor ---

func (m *memStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// --- EventRepository ---

type memEvents struct{ *memStore }

func (m memEvents) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (m memEvents) FindCategoryForUpdate(ctx context.Context, tx *gorm.DB, eventID, categoryID uint) (*models.TicketCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[categoryID]
	if !ok || c.EventID != eventID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memEvents) ReserveSeat(ctx context.Context, tx *gorm.DB, categoryID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.categories[categoryID]
	if c.Quota > 0 && c.Sold >= c.Quota {
		return false, nil
	}
	c.Sold++
	return true, nil
}

func (m memEvents) ReleaseSeat(ctx context.Context, tx *gorm.DB, categoryID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.categories[categoryID]; c.Sold > 0 {
		c.Sold--
	}
	return nil
}

func (m memEvents) Upsert(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

// --- MemberRepository ---

type memMembers struct{ *memStore }

func (m memMembers) FindByID(ctx context.Context, id uint) (*models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m memMembers) MarkOnline(ctx context.Context, tx *gorm.DB, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[id]; ok {
		mem.Status = models.MemberOnline
	}
	return nil
}

// --- RegistrationRepository ---

type memRegistrations struct{ *memStore }

func (m memRegistrations) Create(ctx context.Context, r *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextCreateErr(); err != nil {
		return err
	}
	for _, existing := range m.registrations {
		if existing.ShortCode == r.ShortCode || existing.Token == r.Token {
			return gorm.ErrDuplicatedKey
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	cp := *r
	m.registrations[r.ID] = &cp
	return nil
}

func (m memRegistrations) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m memRegistrations) FindByShortCode(ctx context.Context, code string) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.registrations {
		if r.ShortCode == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memRegistrations) FindByEventID(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registration
	for _, r := range m.registrations {
		if r.EventID == eventID && (status == nil || r.Status == *status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m memRegistrations) MarkOnline(ctx context.Context, tx *gorm.DB, id string, method models.ValidationMethod, operatorID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok || r.Status != models.StatusRegistered {
		return false, nil
	}
	r.Status = models.StatusOnline
	r.ValidationMethod = method
	r.ValidatedBy = operatorID
	r.ValidatedAt = &at
	return true, nil
}

func (m memRegistrations) Cancel(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.registrations[id]
	if !ok || r.Status == models.StatusCancelled {
		return false, nil
	}
	r.Status = models.StatusCancelled
	return true, nil
}

// --- RosterRepository ---

type memRosters struct{ *memStore }

func (m memRosters) Create(ctx context.Context, u *models.RosterUpload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextCreateErr(); err != nil {
		return err
	}
	u.ID = uint(len(m.uploads) + 1)
	m.uploads = append(m.uploads, *u)
	return nil
}

func (m memRosters) FindByEventID(ctx context.Context, eventID uint) ([]models.RosterUpload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RosterUpload
	for _, u := range m.uploads {
		if u.EventID == eventID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m memRosters) ListByEventID(ctx context.Context, eventID uint) ([]models.RosterUpload, error) {
	uploads, err := m.FindByEventID(ctx, eventID)
	for i := range uploads {
		uploads[i].Entries = nil
	}
	return uploads, err
}

func (m memRosters) Delete(ctx context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.uploads {
		if u.ID == id {
			m.uploads = append(m.uploads[:i], m.uploads[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- AttendanceRepository ---

type memAttendance struct{ *memStore }

func (m memAttendance) Create(ctx context.Context, tx *gorm.DB, a *models.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.attendance {
		if a.RegistrationID != nil && existing.RegistrationID != nil && *existing.RegistrationID == *a.RegistrationID {
			return gorm.ErrDuplicatedKey
		}
		if a.TicketID != nil && existing.TicketID != nil && *existing.TicketID == *a.TicketID {
			return gorm.ErrDuplicatedKey
		}
	}
	a.ID = uint(len(m.attendance) + 1)
	m.attendance = append(m.attendance, *a)
	return nil
}

func (m memAttendance) FindByEventID(ctx context.Context, eventID uint) ([]models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Attendance
	for _, a := range m.attendance {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- TicketRepository ---

type memTickets struct{ *memStore }

func (m memTickets) Create(ctx context.Context, tx *gorm.DB, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.nextCreateErr(); err != nil {
		return err
	}
	t.CreatedAt = time.Now()
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m memTickets) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tickets, id)
	return nil
}

func (m memTickets) find(match func(*models.Ticket) bool) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if match(t) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m memTickets) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	return m.find(func(t *models.Ticket) bool { return t.ID == id })
}

func (m memTickets) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Ticket, error) {
	return m.FindByID(ctx, id)
}

func (m memTickets) FindByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	return m.find(func(t *models.Ticket) bool { return t.TicketNumber == number })
}

func (m memTickets) FindByReference(ctx context.Context, ref string) (*models.Ticket, error) {
	return m.find(func(t *models.Ticket) bool { return t.PaymentReference != nil && *t.PaymentReference == ref })
}

func (m memTickets) FindPendingGateway(ctx context.Context, before time.Time, limit int) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Ticket
	for _, t := range m.tickets {
		if t.PaymentMethod == models.PaymentGateway && t.PaymentStatus == models.PaymentPending &&
			t.PaymentReference != nil && t.CreatedAt.Before(before) && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m memTickets) SetPaymentReference(ctx context.Context, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[id].PaymentReference = &ref
	return nil
}

func (m memTickets) SettlePayment(ctx context.Context, ref string, status models.PaymentStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.PaymentReference != nil && *t.PaymentReference == ref && t.PaymentStatus == models.PaymentPending {
			t.PaymentStatus = status
			if status == models.PaymentPaid {
				t.PaidAt = &at
			}
			return true, nil
		}
	}
	return false, nil
}

func (m memTickets) MarkUsed(ctx context.Context, tx *gorm.DB, id, operatorID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Status != models.TicketActive || t.PaymentStatus != models.PaymentPaid {
		return false, nil
	}
	t.Status = models.TicketUsed
	t.UsedAt = &at
	t.ScannedBy = operatorID
	return true, nil
}

func (m memTickets) MarkExpired(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || t.Status != models.TicketActive {
		return false, nil
	}
	t.Status = models.TicketExpired
	return true, nil
}

func (m memTickets) ApplyTransfer(ctx context.Context, tx *gorm.DB, id string, owner models.TicketOwner) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || !t.IsTransferable || t.Status != models.TicketActive ||
		t.PaymentStatus != models.PaymentPaid || t.TransferCount >= t.MaxTransfers {
		return false, nil
	}
	t.OwnerName, t.OwnerEmail, t.OwnerPhone = owner.Name, owner.Email, owner.Phone
	t.TransferCount++
	return true, nil
}

func (m memTickets) CreateTransfer(ctx context.Context, tx *gorm.DB, tr *models.TicketTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr.ID = uint(len(m.transfers) + 1)
	m.transfers = append(m.transfers, *tr)
	return nil
}

func (m memTickets) FindTransfers(ctx context.Context, ticketID string) ([]models.TicketTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TicketTransfer
	for _, tr := range m.transfers {
		if tr.TicketID == ticketID {
			out = append(out, tr)
		}
	}
	return out, nil
}

// --- collaborators ---

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

type mockGateway struct {
	createFn func(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	verifyFn func(ctx context.Context, ref string) (*payment.Verification, error)
}

func (g *mockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	return g.createFn(ctx, req)
}

func (g *mockGateway) Verify(ctx context.Context, ref string) (*payment.Verification, error) {
	return g.verifyFn(ctx, ref)
}

type mockArchive struct {
	keys    []string
	deleted []string
	err     error
}

func (a *mockArchive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	return nil
}

func (a *mockArchive) Delete(ctx context.Context, key string) error {
	a.deleted = append(a.deleted, key)
	return nil
}

type recordingPresence struct {
	mu      sync.Mutex
	touched []string
}

func (p *recordingPresence) Touch(ctx context.Context, eventID uint, operatorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touched = append(p.touched, operatorID)
	return nil
}

func csvData(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}
