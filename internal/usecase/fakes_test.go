package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

// memConversations mirrors the postgres repository: appends are serialized
// per store, created_at strictly increases per lead, and AppendFollowUp
// checks the snapshot under the same lock.
type memConversations struct {
	mu      sync.Mutex
	entries map[string][]entity.ConversationEntry

	failAppend error
	failRead   map[string]error
	// beforeAppend runs under no lock right before a follow-up append; used
	// to simulate a reply racing the engine.
	beforeAppend func(leadID string)
}

func newMemConversations() *memConversations {
	return &memConversations{entries: map[string][]entity.ConversationEntry{}, failRead: map[string]error{}}
}

func (m *memConversations) List(ctx context.Context, leadID string, f entity.ConversationFilter) ([]entity.ConversationEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.ConversationEntry
	for _, e := range m.entries[leadID] {
		if f.Sender != "" && e.Sender != f.Sender {
			continue
		}
		if f.MessageType != "" && e.MessageType != f.MessageType {
			continue
		}
		if f.After != nil && !e.CreatedAt.After(*f.After) {
			continue
		}
		out = append(out, e)
	}
	if f.Order == entity.OrderDesc {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memConversations) LatestBySender(ctx context.Context, leadID string, sender entity.Sender) (*entity.ConversationEntry, error) {
	if err := m.failRead[leadID]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestLocked(leadID, sender), nil
}

func (m *memConversations) latestLocked(leadID string, sender entity.Sender) *entity.ConversationEntry {
	list := m.entries[leadID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Sender == sender {
			e := list[i]
			return &e
		}
	}
	return nil
}

func (m *memConversations) CountAfter(ctx context.Context, leadID string, t entity.MessageType, after time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(leadID, t, after), nil
}

func (m *memConversations) countLocked(leadID string, t entity.MessageType, after time.Time) int {
	n := 0
	for _, e := range m.entries[leadID] {
		if e.MessageType == t && e.CreatedAt.After(after) {
			n++
		}
	}
	return n
}

func (m *memConversations) Append(ctx context.Context, entry *entity.ConversationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(entry)
}

func (m *memConversations) AppendFollowUp(ctx context.Context, entry *entity.ConversationEntry, expected entity.CadenceSnapshot) error {
	if m.beforeAppend != nil {
		m.beforeAppend(entry.LeadID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	last := m.latestLocked(entry.LeadID, entity.SenderUser)
	if last == nil || last.ID != expected.LastUserEntryID {
		return entity.ErrStaleConversation
	}
	if m.countLocked(entry.LeadID, entity.MessageFollowUp, last.CreatedAt) != expected.FollowUps {
		return entity.ErrStaleConversation
	}
	return m.appendLocked(entry)
}

func (m *memConversations) appendLocked(entry *entity.ConversationEntry) error {
	if m.failAppend != nil {
		return m.failAppend
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	list := m.entries[entry.LeadID]
	if n := len(list); n > 0 && !entry.CreatedAt.After(list[n-1].CreatedAt) {
		entry.CreatedAt = list[n-1].CreatedAt.Add(time.Microsecond)
	}
	m.entries[entry.LeadID] = append(list, *entry)
	return nil
}

// seed writes an entry at an exact time, bypassing the clock.
func (m *memConversations) seed(leadID string, t entity.MessageType, s entity.Sender, at time.Time) entity.ConversationEntry {
	e := entity.NewConversationEntry(leadID, t, s, "seed")
	e.CreatedAt = at
	_ = m.Append(context.Background(), e)
	return *e
}

func (m *memConversations) followUps(leadID string) []entity.ConversationEntry {
	out, _ := m.List(context.Background(), leadID, entity.ConversationFilter{MessageType: entity.MessageFollowUp})
	return out
}

type memLeads struct {
	mu      sync.Mutex
	leads   map[string]*entity.Lead
	order   []string
	listErr error
}

func newMemLeads(leads ...*entity.Lead) *memLeads {
	m := &memLeads{leads: map[string]*entity.Lead{}}
	for _, l := range leads {
		_ = m.Create(context.Background(), l)
	}
	return m
}

func (m *memLeads) Create(ctx context.Context, lead *entity.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.UserID == lead.UserID && l.Email == lead.Email {
			return entity.ErrEmailAlreadyExists
		}
	}
	m.leads[lead.ID] = lead
	m.order = append(m.order, lead.ID)
	return nil
}

func (m *memLeads) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return l, nil
}

func (m *memLeads) ListAll(ctx context.Context) ([]entity.Lead, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Lead, 0, len(m.order))
	for _, id := range m.order {
		if l, ok := m.leads[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memLeads) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[id]; !ok {
		return entity.ErrLeadNotFound
	}
	delete(m.leads, id)
	return nil
}

// MockDeliverer
type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, req usecase.DeliveryRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockUsageRepository
type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) ListAll(ctx context.Context) ([]entity.UsageCounter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UsageCounter), args.Error(1)
}

// MockNotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, notifications []entity.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]entity.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) ListAll(ctx context.Context) ([]entity.Lead, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) List(ctx context.Context, leadID string, f entity.ConversationFilter) ([]entity.ConversationEntry, error) {
	args := m.Called(ctx, leadID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ConversationEntry), args.Error(1)
}

func (m *MockConversationRepository) LatestBySender(ctx context.Context, leadID string, s entity.Sender) (*entity.ConversationEntry, error) {
	args := m.Called(ctx, leadID, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ConversationEntry), args.Error(1)
}

func (m *MockConversationRepository) CountAfter(ctx context.Context, leadID string, t entity.MessageType, after time.Time) (int, error) {
	args := m.Called(ctx, leadID, t, after)
	return args.Int(0), args.Error(1)
}

func (m *MockConversationRepository) Append(ctx context.Context, entry *entity.ConversationEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockConversationRepository) AppendFollowUp(ctx context.Context, entry *entity.ConversationEntry, expected entity.CadenceSnapshot) error {
	args := m.Called(ctx, entry, expected)
	return args.Error(0)
}
