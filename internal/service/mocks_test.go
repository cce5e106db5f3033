package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/internal/repo/postgres"
)

// ---------- Users ----------

type mockUsersRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User // by id
	byEmail map[string]string       // email -> id
	nextID  int
}

func newMockUsersRepo() *mockUsersRepo {
	return &mockUsersRepo{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (m *mockUsersRepo) Create(_ context.Context, p postgres.CreateUserParams) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byEmail[p.Email]; taken {
		return nil, domain.ErrEmailTaken
	}
	m.nextID++
	u := &domain.User{
		ID:           fmt.Sprintf("user-%d", m.nextID),
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Name:         p.Name,
		Phone:        p.Phone,
		Role:         p.Role,
		Status:       p.Status,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return u, nil
}

func (m *mockUsersRepo) CreateProfile(_ context.Context, p postgres.CreateProfileParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[p.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Profile = &domain.StaffProfile{
		UserID:         p.UserID,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		JobTitle:       p.JobTitle,
		DepartmentUnit: p.DepartmentUnit,
		StartDate:      p.StartDate,
	}
	return nil
}

func (m *mockUsersRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	return m.users[id], nil
}

func (m *mockUsersRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *mockUsersRepo) AdminExists(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Role == domain.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUsersRepo) ListStaff(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.Role != domain.RolePatient {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUsersRepo) UpdateUserFields(_ context.Context, id string, name, phone, role, status *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if phone != nil {
		u.Phone = *phone
	}
	if role != nil {
		u.Role = *role
	}
	if status != nil {
		u.Status = *status
	}
	return nil
}

func (m *mockUsersRepo) UpdateProfileFields(_ context.Context, userID string, firstName, lastName, jobTitle, departmentUnit *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if u.Profile == nil {
		u.Profile = &domain.StaffProfile{UserID: userID}
	}
	if firstName != nil {
		u.Profile.FirstName = *firstName
	}
	if lastName != nil {
		u.Profile.LastName = *lastName
	}
	if jobTitle != nil {
		u.Profile.JobTitle = *jobTitle
	}
	if departmentUnit != nil {
		u.Profile.DepartmentUnit = *departmentUnit
	}
	return nil
}

func (m *mockUsersRepo) activeAdmins() int {
	n := 0
	for _, u := range m.users {
		if u.Role == domain.RoleAdmin && u.Status == domain.StatusActive {
			n++
		}
	}
	return n
}

func (m *mockUsersRepo) SetStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if status == domain.StatusInactive && u.Role == domain.RoleAdmin &&
		u.Status == domain.StatusActive && m.activeAdmins() == 1 {
		return domain.ErrLastAdmin
	}
	u.Status = status
	return nil
}

func (m *mockUsersRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if u.Role == domain.RoleAdmin && u.Status == domain.StatusActive && m.activeAdmins() == 1 {
		return domain.ErrLastAdmin
	}
	delete(m.byEmail, u.Email)
	delete(m.users, id)
	return nil
}

func (m *mockUsersRepo) CountStaff(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Role != domain.RolePatient {
			n++
		}
	}
	return n, nil
}

func userParams(email, role string) postgres.CreateUserParams {
	return postgres.CreateUserParams{
		Email:        email,
		PasswordHash: "x",
		Name:         "Test User",
		Phone:        "+15550009999",
		Role:         role,
		Status:       domain.StatusActive,
	}
}

// ---------- MFA codes ----------

type mfaRecord struct {
	userID    string
	codeHash  string
	expiresAt time.Time
	attempts  int
	used      bool
}

type mockMFARepo struct {
	mu      sync.Mutex
	records []*mfaRecord
	sweeps  int
}

func newMockMFARepo() *mockMFARepo { return &mockMFARepo{} }

func (m *mockMFARepo) Create(_ context.Context, userID, codeHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, &mfaRecord{userID: userID, codeHash: codeHash, expiresAt: expiresAt})
	return nil
}

func (m *mockMFARepo) Consume(_ context.Context, userID, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Most recent live record wins, same as the SQL implementation.
	var rec *mfaRecord
	now := time.Now()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.userID == userID && !r.used && now.Before(r.expiresAt) {
			rec = r
			break
		}
	}
	if rec == nil {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.codeHash), []byte(code)) != nil {
		rec.attempts++
		return false, nil
	}
	rec.used = true
	return true, nil
}

func (m *mockMFARepo) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	var kept []*mfaRecord
	deleted := int64(0)
	now := time.Now()
	for _, r := range m.records {
		if now.After(r.expiresAt) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

func (m *mockMFARepo) sweepCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweeps
}

// expireAll backdates every record, simulating the TTL running out.
func (m *mockMFARepo) expireAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		r.expiresAt = time.Now().Add(-time.Minute)
	}
}

func (m *mockMFARepo) attemptsFor(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, r := range m.records {
		if r.userID == userID {
			total += r.attempts
		}
	}
	return total
}

// ---------- Events ----------

type mockBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) published(subject string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// ---------- Sessions ----------

type mockSessionStore struct {
	mu     sync.Mutex
	tokens map[string]string
	nextID int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{tokens: make(map[string]string)}
}

func (m *mockSessionStore) Issue(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	token := fmt.Sprintf("token-%d", m.nextID)
	m.tokens[token] = userID
	return token, nil
}

func (m *mockSessionStore) Resolve(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[token]
	if !ok {
		return "", domain.ErrInvalidSession
	}
	return userID, nil
}

func (m *mockSessionStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

// ---------- Notifications ----------

type mockSMS struct {
	mu      sync.Mutex
	phones  []string
	codes   []string
	sendErr error
}

func (m *mockSMS) SendMFACode(phone, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.phones = append(m.phones, phone)
	m.codes = append(m.codes, code)
	return nil
}

func (m *mockSMS) lastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codes) == 0 {
		return ""
	}
	return m.codes[len(m.codes)-1]
}

type mockMailer struct {
	mu        sync.Mutex
	lastEmail string
	lastURL   string
	lastToken string
	sent      int
	sendErr   error
}

func (m *mockMailer) SendInvitation(toEmail, toName, acceptURL, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.lastEmail = toEmail
	m.lastURL = acceptURL
	m.lastToken = token
	m.sent++
	return nil
}

// ---------- Invitations ----------

type mockInvitationsRepo struct {
	mu     sync.Mutex
	users  *mockUsersRepo
	byID   map[string]*domain.Invitation
	nextID int
}

func newMockInvitationsRepo(users *mockUsersRepo) *mockInvitationsRepo {
	return &mockInvitationsRepo{users: users, byID: make(map[string]*domain.Invitation)}
}

func (m *mockInvitationsRepo) Create(_ context.Context, inv *domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == inv.Email && existing.Status == domain.InvitationPending {
			return domain.ErrDuplicateInvitation
		}
	}
	m.nextID++
	inv.ID = fmt.Sprintf("inv-%d", m.nextID)
	inv.Status = domain.InvitationPending
	inv.CreatedAt = time.Now()
	m.byID[inv.ID] = inv
	return nil
}

func (m *mockInvitationsRepo) FindByID(_ context.Context, id string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id], nil
}

func (m *mockInvitationsRepo) List(_ context.Context) ([]domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range m.byID {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *mockInvitationsRepo) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok || inv.Status != domain.InvitationPending {
		return domain.ErrNotFound
	}
	inv.Status = domain.InvitationRevoked
	return nil
}

func (m *mockInvitationsRepo) Redeem(ctx context.Context, token, passwordHash, phone string) (*domain.User, error) {
	m.mu.Lock()
	var match *domain.Invitation
	for _, inv := range m.byID {
		if inv.Token == token {
			match = inv
			break
		}
	}
	if match == nil || !match.IsPending(time.Now()) {
		m.mu.Unlock()
		return nil, domain.ErrInvalidOrExpiredToken
	}
	m.mu.Unlock()

	user, err := m.users.Create(ctx, postgres.CreateUserParams{
		Email:        match.Email,
		PasswordHash: passwordHash,
		Name:         match.FirstName,
		Phone:        phone,
		Role:         match.Role,
		Status:       domain.StatusActive,
	})
	if err != nil {
		return nil, err
	}
	if err := m.users.CreateProfile(ctx, postgres.CreateProfileParams{
		UserID:         user.ID,
		FirstName:      match.FirstName,
		LastName:       match.LastName,
		JobTitle:       match.JobTitle,
		DepartmentUnit: match.DepartmentUnit,
		StartDate:      match.StartDate,
	}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	match.Status = domain.InvitationAccepted
	m.mu.Unlock()
	return user, nil
}

// ---------- Appointments ----------

type mockAppointmentsRepo struct {
	mu           sync.Mutex
	appointments []*domain.Appointment
	patients     map[string]string // phone -> patient id
	nextID       int
}

func newMockAppointmentsRepo() *mockAppointmentsRepo {
	return &mockAppointmentsRepo{patients: make(map[string]string)}
}

func (m *mockAppointmentsRepo) Book(_ context.Context, p postgres.BookAppointmentParams) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	patientID, ok := m.patients[p.PatientPhone]
	if !ok {
		patientID = fmt.Sprintf("patient-%d", len(m.patients)+1)
		m.patients[p.PatientPhone] = patientID
	}
	m.nextID++
	appt := &domain.Appointment{
		ID:               fmt.Sprintf("appt-%d", m.nextID),
		PatientID:        patientID,
		UnitService:      p.UnitService,
		ScheduledAt:      p.ScheduledAt,
		Type:             p.Type,
		Notes:            p.Notes,
		ConfirmationCode: p.Confirmation,
		Status:           domain.AppointmentPending,
		CreatedAt:        time.Now(),
	}
	m.appointments = append(m.appointments, appt)
	return appt, nil
}

func (m *mockAppointmentsRepo) List(_ context.Context, f domain.AppointmentFilter) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Appointment
	for _, a := range m.appointments {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAppointmentsRepo) Update(_ context.Context, id string, status, notes *string, scheduledAt *time.Time) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.ID != id {
			continue
		}
		if status != nil {
			a.Status = *status
		}
		if notes != nil {
			a.Notes = *notes
		}
		if scheduledAt != nil {
			a.ScheduledAt = *scheduledAt
		}
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockAppointmentsRepo) CountByStatus(_ context.Context, status string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.appointments {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}

// ---------- Feedback ----------

type mockFeedbackRepo struct {
	mu     sync.Mutex
	items  []*domain.Feedback
	nextID int
}

func newMockFeedbackRepo() *mockFeedbackRepo { return &mockFeedbackRepo{} }

func (m *mockFeedbackRepo) Create(_ context.Context, fb *domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	fb.ID = fmt.Sprintf("fb-%d", m.nextID)
	fb.Status = domain.FeedbackOpen
	fb.CreatedAt = time.Now()
	m.items = append(m.items, fb)
	return nil
}

func (m *mockFeedbackRepo) FindByID(_ context.Context, id string) (*domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fb := range m.items {
		if fb.ID == id {
			return fb, nil
		}
	}
	return nil, nil
}

func (m *mockFeedbackRepo) List(_ context.Context, f domain.FeedbackFilter) ([]domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Feedback
	for _, fb := range m.items {
		if f.UserID != "" && fb.UserID != f.UserID {
			continue
		}
		if f.Status != "" && fb.Status != f.Status {
			continue
		}
		if f.Type != "" && fb.Type != f.Type {
			continue
		}
		out = append(out, *fb)
	}
	return out, nil
}

func (m *mockFeedbackRepo) Update(_ context.Context, id string, status, adminNotes, assignedTo *string, priority *int) (*domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fb := range m.items {
		if fb.ID != id {
			continue
		}
		if status != nil {
			fb.Status = *status
		}
		if adminNotes != nil {
			fb.AdminNotes = *adminNotes
		}
		if assignedTo != nil {
			fb.AssignedTo = *assignedTo
		}
		if priority != nil {
			fb.Priority = *priority
		}
		return fb, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockFeedbackRepo) Stats(_ context.Context) (*domain.FeedbackStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.FeedbackStats{
		ByType:   make(map[string]int),
		ByStatus: make(map[string]int),
	}
	for _, fb := range m.items {
		stats.Total++
		stats.ByType[fb.Type]++
		stats.ByStatus[fb.Status]++
	}
	return stats, nil
}

func (m *mockFeedbackRepo) CountOpen(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, fb := range m.items {
		if fb.Status == domain.FeedbackOpen {
			n++
		}
	}
	return n, nil
}
