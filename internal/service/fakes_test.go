package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskhive/deskhive/internal/ai"
	"github.com/deskhive/deskhive/internal/domain"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
)

type fakeTicketRepo struct {
	mu           sync.Mutex
	seq          int
	tickets      map[string]*domain.Ticket
	activeCounts map[string]int
	countSince   int
	countErr     error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets:      make(map[string]*domain.Ticket),
		activeCounts: make(map[string]int),
	}
}

func (r *fakeTicketRepo) put(ticket domain.Ticket) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		r.seq++
		ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	stored := ticket
	r.tickets[ticket.ID] = &stored
	return &stored
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	r.mu.Unlock()
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		out = append(out, *ticket)
	}
	return out, nil
}

func (r *fakeTicketRepo) CountActiveByAgent(_ context.Context, agentID string) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeCounts[agentID], nil
}

func (r *fakeTicketRepo) CountByOrganizationSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return r.countSince, nil
}

func (r *fakeTicketRepo) ListUnassignedSince(_ context.Context, _ time.Time, _ int) ([]domain.Ticket, error) {
	return nil, nil
}

func (r *fakeTicketRepo) ListSLACandidates(_ context.Context, _ int) ([]repository.SLACandidate, error) {
	return nil, nil
}

type fakeUserRepo struct {
	mu             sync.Mutex
	seq            int
	users          map[string]*domain.User
	agents         []string
	categoryAgents map[string][]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:          make(map[string]*domain.User),
		categoryAgents: make(map[string][]string),
	}
}

func (r *fakeUserRepo) put(user domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := user
	r.users[user.ID] = &stored
	if user.Role == domain.UserRoleAgent {
		r.agents = append(r.agents, user.ID)
	}
	return &stored
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	r.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	user.CreatedAt = time.Now()
	r.mu.Unlock()
	r.put(*user)
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		if filter.OrganizationID != nil && user.OrganizationID != *filter.OrganizationID {
			continue
		}
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		out = append(out, *user)
	}
	return out, nil
}

func (r *fakeUserRepo) ListAssignableAgents(_ context.Context, _ string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(r.agents), nil
}

func (r *fakeUserRepo) ListAssignableAgentsForCategory(_ context.Context, _, categoryID string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collect(r.categoryAgents[categoryID]), nil
}

// collect preserves registration order, mirroring the SQL ORDER BY
// created_at ASC.
func (r *fakeUserRepo) collect(ids []string) []domain.User {
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, ok := r.users[id]
		if !ok || !user.Assignable() {
			continue
		}
		out = append(out, *user)
	}
	return out
}

func (r *fakeUserRepo) UpdateLastAssigned(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastAssignedAt = &at
	return nil
}

func (r *fakeUserRepo) CountAgents(_ context.Context, _ string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.agents), nil
}

// fakeAssignmentRepo mimics the transactional pair write: on success the
// ticket and agent rows change together, on failure neither does.
type fakeAssignmentRepo struct {
	tickets *fakeTicketRepo
	users   *fakeUserRepo
	fail    error
	calls   int
}

func (r *fakeAssignmentRepo) AssignTicketToAgent(ctx context.Context, ticketID, agentID string, at time.Time) error {
	r.calls++
	if r.fail != nil {
		return r.fail
	}
	ticket, err := r.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	ticket.AssignedAgentID = &agentID
	ticket.Status = domain.TicketStatusAssigned
	ticket.AssignedAt = &at
	if err := r.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	return r.users.UpdateLastAssigned(ctx, agentID, at)
}

type publishedTask struct {
	Queue string
	Task  queue.Task
}

type fakePublisher struct {
	mu    sync.Mutex
	tasks []publishedTask
	fail  error
}

func (p *fakePublisher) Publish(_ context.Context, q string, task queue.Task) error {
	if p.fail != nil {
		return p.fail
	}
	p.mu.Lock()
	p.tasks = append(p.tasks, publishedTask{Queue: q, Task: task})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) byAction(action string) []publishedTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedTask
	for _, t := range p.tasks {
		if t.Task.Action == action {
			out = append(out, t)
		}
	}
	return out
}

type sinkCall struct {
	Kind    string
	UserID  string
	OrgID   string
	Event   string
	Exclude string
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *recordingSink) NotifyUser(_ context.Context, userID, event string, _ any) {
	s.mu.Lock()
	s.calls = append(s.calls, sinkCall{Kind: "user", UserID: userID, Event: event})
	s.mu.Unlock()
}

func (s *recordingSink) BroadcastToOrganization(_ context.Context, orgID, event string, _ any, excludeUserID string) {
	s.mu.Lock()
	s.calls = append(s.calls, sinkCall{Kind: "org", OrgID: orgID, Event: event, Exclude: excludeUserID})
	s.mu.Unlock()
}

type fakeOrgRepo struct {
	orgs map[string]*domain.Organization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[string]*domain.Organization)}
}

func (r *fakeOrgRepo) put(org domain.Organization) *domain.Organization {
	stored := org
	r.orgs[org.ID] = &stored
	return &stored
}

func (r *fakeOrgRepo) Create(_ context.Context, org *domain.Organization) error {
	if org.ID == "" {
		org.ID = fmt.Sprintf("org-%d", len(r.orgs)+1)
	}
	r.put(*org)
	return nil
}

func (r *fakeOrgRepo) Update(_ context.Context, org *domain.Organization) error {
	if _, ok := r.orgs[org.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.put(*org)
	return nil
}

func (r *fakeOrgRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	stored, ok := r.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

type fakeCustomerRepo struct {
	seq       int
	customers map[string]*domain.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[string]*domain.Customer)}
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *domain.Customer) error {
	r.seq++
	customer.ID = fmt.Sprintf("customer-%d", r.seq)
	stored := *customer
	r.customers[customer.ID] = &stored
	return nil
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	stored, ok := r.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *fakeCustomerRepo) GetByChannelIdentifier(_ context.Context, orgID string, channel domain.Channel, identifier string) (*domain.Customer, error) {
	for _, customer := range r.customers {
		if customer.OrganizationID == orgID && customer.Channel == channel && customer.ChannelIdentifier == identifier {
			out := *customer
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCustomerRepo) Upsert(ctx context.Context, customer *domain.Customer) error {
	existing, err := r.GetByChannelIdentifier(ctx, customer.OrganizationID, customer.Channel, customer.ChannelIdentifier)
	if err == nil {
		*customer = *existing
		return nil
	}
	return r.Create(ctx, customer)
}

func (r *fakeCustomerRepo) ListByOrganization(_ context.Context, orgID string, _, _ int) ([]domain.Customer, error) {
	var out []domain.Customer
	for _, customer := range r.customers {
		if customer.OrganizationID == orgID {
			out = append(out, *customer)
		}
	}
	return out, nil
}

type fakeMessageRepo struct {
	seq      int
	fail     error
	messages []domain.TicketMessage
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	if r.fail != nil {
		return r.fail
	}
	r.seq++
	msg.ID = fmt.Sprintf("msg-%d", r.seq)
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	var out []domain.TicketMessage
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeCategoryRepo struct {
	seq         int
	categories  map[string]*domain.Category
	assignments []domain.CategoryAssignment
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: make(map[string]*domain.Category)}
}

func (r *fakeCategoryRepo) put(category domain.Category) *domain.Category {
	stored := category
	r.categories[category.ID] = &stored
	return &stored
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	r.seq++
	category.ID = fmt.Sprintf("cat-%d", r.seq)
	r.put(*category)
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	if _, ok := r.categories[category.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.put(*category)
	return nil
}

func (r *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	stored, ok := r.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (r *fakeCategoryRepo) ListByOrganization(_ context.Context, orgID string, activeOnly bool) ([]domain.Category, error) {
	var out []domain.Category
	for _, category := range r.categories {
		if category.OrganizationID != orgID {
			continue
		}
		if activeOnly && !category.IsActive {
			continue
		}
		out = append(out, *category)
	}
	return out, nil
}

func (r *fakeCategoryRepo) AssignAgent(_ context.Context, userID, categoryID string) error {
	r.assignments = append(r.assignments, domain.CategoryAssignment{
		ID:         fmt.Sprintf("assignment-%d", len(r.assignments)+1),
		UserID:     userID,
		CategoryID: categoryID,
	})
	return nil
}

func (r *fakeCategoryRepo) UnassignAgent(_ context.Context, userID, categoryID string) error {
	kept := r.assignments[:0]
	for _, a := range r.assignments {
		if a.UserID == userID && a.CategoryID == categoryID {
			continue
		}
		kept = append(kept, a)
	}
	r.assignments = kept
	return nil
}

func (r *fakeCategoryRepo) ListAssignmentsForUser(_ context.Context, userID string) ([]domain.CategoryAssignment, error) {
	var out []domain.CategoryAssignment
	for _, a := range r.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeClassifier struct {
	result ai.Classification
	err    error
	calls  int
}

func (c *fakeClassifier) Classify(_ context.Context, _, _, _ string) (ai.Classification, error) {
	c.calls++
	if c.err != nil {
		return ai.Classification{}, c.err
	}
	return c.result, nil
}

type fakeResolver struct {
	outcome ai.Outcome
	err     error
	calls   int
}

func (r *fakeResolver) GenerateSolution(_ context.Context, _ *domain.Ticket, _ string) (ai.Outcome, error) {
	r.calls++
	if r.err != nil {
		return ai.Outcome{}, r.err
	}
	return r.outcome, nil
}

type fakeAnalyzer struct {
	analysis ai.Analysis
	err      error
	calls    int
}

func (a *fakeAnalyzer) AnalyzeResolution(_ context.Context, _ *domain.Ticket, _ string) (ai.Analysis, error) {
	a.calls++
	if a.err != nil {
		return ai.Analysis{}, a.err
	}
	return a.analysis, nil
}

type fakeEnhancer struct {
	polished string
	err      error
}

func (e *fakeEnhancer) Enhance(_ context.Context, text, _ string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if e.polished == "" {
		return text, nil
	}
	return e.polished, nil
}
