package service

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- Fakes ---

type fakeRecordRepo struct {
	records map[string]*model.ApprovableRecord
	stale   bool
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]*model.ApprovableRecord)}
}

func (f *fakeRecordRepo) Create(_ context.Context, rec *model.ApprovableRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	f.records[rec.ID.String()] = &cp
	return nil
}

func (f *fakeRecordRepo) GetByID(_ context.Context, kind model.Kind, tenantID, id string) (*model.ApprovableRecord, error) {
	rec, ok := f.records[id]
	if !ok || rec.Kind != kind || rec.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecordRepo) GetByName(_ context.Context, kind model.Kind, tenantID, name string) (*model.ApprovableRecord, error) {
	for _, rec := range f.records {
		if rec.Kind == kind && rec.TenantID == tenantID && rec.Name == name {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRecordRepo) List(_ context.Context, kind model.Kind, tenantID, status string, _, _ int) ([]model.ApprovableRecord, int64, error) {
	var out []model.ApprovableRecord
	for _, rec := range f.records {
		if rec.Kind != kind || rec.TenantID != tenantID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, *rec)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecordRepo) Update(_ context.Context, rec *model.ApprovableRecord, expectedVersion int64) error {
	stored, ok := f.records[rec.ID.String()]
	if f.stale || !ok || stored.Version != expectedVersion {
		return repository.ErrStaleRecord
	}
	cp := *rec
	cp.Version = expectedVersion + 1
	f.records[rec.ID.String()] = &cp
	rec.Version = cp.Version
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, rec *model.ApprovableRecord) error {
	delete(f.records, rec.ID.String())
	return nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _ repository.AuditFilter) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fakeHub struct {
	messages [][]byte
}

func (f *fakeHub) Broadcast(message []byte) {
	f.messages = append(f.messages, message)
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) Publish(_ context.Context, queueName string, _ []byte) error {
	f.published = append(f.published, queueName)
	return nil
}

// --- Fixtures ---

var svcTestTime = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type svcFixture struct {
	repo      *fakeRecordRepo
	auditRepo *fakeAuditRepo
	hub       *fakeHub
	events    *fakePublisher
	svc       RecordService
}

func newSvcFixture(t *testing.T) *svcFixture {
	t.Helper()
	f := &svcFixture{
		repo:      newFakeRecordRepo(),
		auditRepo: &fakeAuditRepo{},
		hub:       &fakeHub{},
		events:    &fakePublisher{},
	}
	clock := func() time.Time { return svcTestTime }
	f.svc = NewRecordService(f.repo, f.auditRepo, fakeTxManager{}, f.hub, f.events, clock, zap.NewNop().Sugar())
	return f
}

func (f *svcFixture) seed(t *testing.T, kind model.Kind, tenantID string, status workflow.Status, fields map[string]any) *model.ApprovableRecord {
	t.Helper()
	name, _ := fields["name"].(string)
	rec := &model.ApprovableRecord{
		ID:       uuid.New(),
		TenantID: tenantID,
		Kind:     kind,
		Name:     name,
		Status:   string(status),
		Fields:   model.JSONMap(fields),
	}
	require.NoError(t, f.repo.Create(context.Background(), rec))
	return rec
}

var (
	svcAdmin = workflow.Actor{Username: "admin", Roles: []string{workflow.RoleAdmin}}
	svcStaff = workflow.Actor{Username: "alice", Roles: []string{"STAFF"}}
)

const tenant = "acme"

// --- Tests ---

func TestRecordService_CreatePrivileged(t *testing.T) {
	f := newSvcFixture(t)

	res, err := f.svc.Create(context.Background(), model.KindCustomerClass, svcAdmin, tenant, map[string]any{"name": "vip"})
	require.NoError(t, err)

	assert.Equal(t, string(workflow.StatusActive), res.Status)
	assert.Equal(t, "vip", res.Name)
	assert.Nil(t, res.PendingChange)
	require.Len(t, res.ActivityLog, 1)
	assert.Equal(t, "admin created, status set to ACTIVE", res.ActivityLog[0])

	require.Len(t, f.auditRepo.entries, 1)
	assert.Equal(t, model.ActionCreateRecord, f.auditRepo.entries[0].Action)
	assert.Equal(t, tenant, f.auditRepo.entries[0].TenantID)

	assert.Len(t, f.hub.messages, 1)
	assert.Equal(t, []string{"approval-events"}, f.events.published)
}

func TestRecordService_CreateUnprivilegedLandsOnPendingStatus(t *testing.T) {
	f := newSvcFixture(t)

	// Stocks go straight to FOR_APPROVAL when created without authority.
	res, err := f.svc.Create(context.Background(), model.KindStock, svcStaff, tenant, map[string]any{"name": "pallets", "quantity": 5})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusForApproval), res.Status)
	assert.Equal(t, map[string]any{"name": "pallets", "quantity": 5}, res.PendingChange)

	// Customer classes land on NEW_RECORD instead.
	res, err = f.svc.Create(context.Background(), model.KindCustomerClass, svcStaff, tenant, map[string]any{"name": "vip"})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusNewRecord), res.Status)
}

func TestRecordService_CreateDuplicateName(t *testing.T) {
	f := newSvcFixture(t)
	f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "vip"})

	_, err := f.svc.Create(context.Background(), model.KindCustomerClass, svcAdmin, tenant, map[string]any{"name": "vip"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRecordService_CreateValidation(t *testing.T) {
	f := newSvcFixture(t)

	_, err := f.svc.Create(context.Background(), model.KindStock, svcAdmin, tenant, map[string]any{"name": "pallets"})
	assert.ErrorContains(t, err, `"quantity" is required`)

	_, err = f.svc.Create(context.Background(), model.KindStock, svcAdmin, tenant, map[string]any{"name": "pallets", "quantity": "lots"})
	assert.ErrorContains(t, err, `"quantity" must be numeric`)

	_, err = f.svc.Create(context.Background(), model.KindStock, svcAdmin, tenant, map[string]any{"name": "pallets", "quantity": -1})
	assert.ErrorContains(t, err, "must not be negative")
}

func TestRecordService_UpdateByStaffStagesChange(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "A"})

	res, err := f.svc.Update(context.Background(), model.KindCustomerClass, svcStaff, tenant, rec.ID.String(), map[string]any{"name": "B"})
	require.NoError(t, err)

	assert.Equal(t, string(workflow.StatusForApproval), res.Status)
	assert.Equal(t, map[string]any{"name": "A"}, res.Fields)
	assert.Equal(t, map[string]any{"name": "B"}, res.PendingChange)
	require.NotEmpty(t, res.ActivityLog)
	assert.Equal(t, "alice updated for approval", res.ActivityLog[len(res.ActivityLog)-1])

	// Committed name column keeps the old value until approval.
	stored, err := f.repo.GetByID(context.Background(), model.KindCustomerClass, tenant, rec.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Name)
	assert.Equal(t, int64(1), stored.Version)
}

func TestRecordService_UpdateByAdminCommitsDirectly(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusForApproval, map[string]any{"name": "A"})

	res, err := f.svc.Update(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String(), map[string]any{"name": "B"})
	require.NoError(t, err)

	assert.Equal(t, string(workflow.StatusActive), res.Status)
	assert.Equal(t, "B", res.Fields["name"])
	assert.Nil(t, res.PendingChange)
	assert.Equal(t, "B", res.Name)
}

func TestRecordService_UpdateConflicts(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "A"})
	f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "B"})

	// Renaming onto an existing sibling.
	_, err := f.svc.Update(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String(), map[string]any{"name": "B"})
	assert.ErrorIs(t, err, ErrConflict)

	// Lost read-modify-write race.
	f.repo.stale = true
	_, err = f.svc.Update(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String(), map[string]any{"name": "C"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRecordService_UpdateMissingRecord(t *testing.T) {
	f := newSvcFixture(t)

	_, err := f.svc.Update(context.Background(), model.KindCustomerClass, svcAdmin, tenant, uuid.NewString(), map[string]any{"name": "B"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordService_DeletePrivilegedRemovesRow(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "vip"})

	err := f.svc.Delete(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String())
	require.NoError(t, err)

	_, err = f.repo.GetByID(context.Background(), model.KindCustomerClass, tenant, rec.ID.String())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.Len(t, f.auditRepo.entries, 1)
	assert.Equal(t, model.ActionDeleteRecord, f.auditRepo.entries[0].Action)
}

func TestRecordService_DeleteByStaffStagesDeletion(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "vip"})

	err := f.svc.Delete(context.Background(), model.KindCustomerClass, svcStaff, tenant, rec.ID.String())
	require.NoError(t, err)

	stored, err := f.repo.GetByID(context.Background(), model.KindCustomerClass, tenant, rec.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(workflow.StatusForDeletion), stored.Status)

	require.Len(t, f.auditRepo.entries, 1)
	assert.Equal(t, model.ActionStageDeletion, f.auditRepo.entries[0].Action)
}

func TestRecordService_ApproveCommitsPendingChange(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "A"})

	_, err := f.svc.Update(context.Background(), model.KindCustomerClass, svcStaff, tenant, rec.ID.String(), map[string]any{"name": "B"})
	require.NoError(t, err)

	res, err := f.svc.Approve(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, string(workflow.StatusActive), res.Status)
	assert.Equal(t, "B", res.Fields["name"])
	assert.Equal(t, "B", res.Name)
	assert.Nil(t, res.PendingChange)
}

func TestRecordService_VerdictByStaffForbidden(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusForApproval, map[string]any{"name": "A"})

	_, err := f.svc.Approve(context.Background(), model.KindCustomerClass, svcStaff, tenant, rec.ID.String())
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = f.svc.Deny(context.Background(), model.KindCustomerClass, svcStaff, tenant, rec.ID.String())
	assert.ErrorIs(t, err, workflow.ErrForbidden)
}

func TestRecordService_ApproveDeletionPurgesRecord(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusForDeletion, map[string]any{"name": "vip"})

	res, err := f.svc.Approve(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String())
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = f.repo.GetByID(context.Background(), model.KindCustomerClass, tenant, rec.ID.String())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRecordService_DenyDeletionRestoresActive(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusForDeletion, map[string]any{"name": "vip"})

	res, err := f.svc.Deny(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String())
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, string(workflow.StatusActive), res.Status)
	require.NotEmpty(t, res.ActivityLog)
	assert.Equal(t, "deletion denied", res.ActivityLog[len(res.ActivityLog)-1])
}

func TestRecordService_VerdictOnActiveIsInvalid(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "vip"})

	_, err := f.svc.Deny(context.Background(), model.KindCustomerClass, svcAdmin, tenant, rec.ID.String())
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestRecordService_TenantScoping(t *testing.T) {
	f := newSvcFixture(t)
	rec := f.seed(t, model.KindCustomerClass, "acme", workflow.StatusActive, map[string]any{"name": "vip"})

	_, err := f.svc.Get(context.Background(), model.KindCustomerClass, "globex", rec.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	// Same name in a different tenant is not a conflict.
	_, err = f.svc.Create(context.Background(), model.KindCustomerClass, svcAdmin, "globex", map[string]any{"name": "vip"})
	assert.NoError(t, err)
}

func TestRecordService_ListFiltersByStatus(t *testing.T) {
	f := newSvcFixture(t)
	f.seed(t, model.KindCustomerClass, tenant, workflow.StatusActive, map[string]any{"name": "a"})
	f.seed(t, model.KindCustomerClass, tenant, workflow.StatusForApproval, map[string]any{"name": "b"})

	res, total, err := f.svc.List(context.Background(), model.KindCustomerClass, tenant, string(workflow.StatusForApproval), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, res, 1)
	assert.Equal(t, "b", res[0].Name)
}

func TestRecordService_UnknownKind(t *testing.T) {
	f := newSvcFixture(t)

	_, err := f.svc.Create(context.Background(), model.Kind("WIDGET"), svcAdmin, tenant, map[string]any{"name": "x"})
	assert.ErrorContains(t, err, "unknown record kind")
}

func TestRecordService_AuditAttributesActor(t *testing.T) {
	f := newSvcFixture(t)
	userID := uuid.New()
	ctx := WithActorID(context.Background(), userID.String())

	_, err := f.svc.Create(ctx, model.KindCustomerClass, svcAdmin, tenant, map[string]any{"name": "vip"})
	require.NoError(t, err)

	require.Len(t, f.auditRepo.entries, 1)
	require.NotNil(t, f.auditRepo.entries[0].UserID)
	assert.Equal(t, userID, *f.auditRepo.entries[0].UserID)
}
