package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/queue"
	"backoffice/internal/repository"
	"backoffice/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Broadcaster fans record events out to connected websocket clients.
type Broadcaster interface {
	Broadcast(message []byte)
}

// EventPublisher hands record events to the message broker for the
// notification pipeline. Satisfied by queue.Broker.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, message []byte) error
}

// RecordEvent is the payload fanned out on every record state change, both
// over the websocket hub and onto the approval-events queue.
type RecordEvent struct {
	Event    string    `json:"event"`
	Kind     string    `json:"kind"`
	Resource string    `json:"resource"`
	RecordID string    `json:"record_id"`
	Name     string    `json:"name"`
	Status   string    `json:"status,omitempty"`
	Actor    string    `json:"actor"`
	TenantID string    `json:"tenant_id"`
	At       time.Time `json:"at"`
}

const (
	EventRecordCreated  = "record.created"
	EventRecordUpdated  = "record.updated"
	EventRecordDeleted  = "record.deleted"
	EventRecordApproved = "record.approved"
	EventRecordDenied   = "record.denied"
)

// RecordResponse is the API shape of an approvable record. Activity-log
// entries are rendered to display strings here, at the response boundary.
type RecordResponse struct {
	ID            string         `json:"id"`
	Kind          string         `json:"kind"`
	Name          string         `json:"name"`
	Status        string         `json:"status"`
	Fields        map[string]any `json:"fields"`
	PendingChange map[string]any `json:"pending_change,omitempty"`
	ActivityLog   []string       `json:"activity_log"`
	Version       int64          `json:"version"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// RecordService executes workflow-engine decisions against storage, plus the
// caller-side responsibilities the engine leaves out: existence and
// uniqueness checks, payload validation, optimistic concurrency, audit
// logging and event fan-out.
type RecordService interface {
	Create(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID string, payload map[string]any) (*RecordResponse, error)
	Update(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string, payload map[string]any) (*RecordResponse, error)
	Delete(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string) error
	Approve(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string) (*RecordResponse, error)
	Deny(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string) (*RecordResponse, error)
	Get(ctx context.Context, kind model.Kind, tenantID, id string) (*RecordResponse, error)
	List(ctx context.Context, kind model.Kind, tenantID, status string, page, limit int) ([]RecordResponse, int64, error)
}

type recordService struct {
	repo      repository.RecordRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	hub       Broadcaster
	events    EventPublisher
	engines   map[model.Kind]*workflow.Engine
	logger    *zap.SugaredLogger
}

// NewRecordService wires one workflow engine per registered kind. hub and
// events may be nil; fan-out is then skipped.
func NewRecordService(
	repo repository.RecordRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub Broadcaster,
	events EventPublisher,
	clock workflow.Clock,
	logger *zap.SugaredLogger,
) RecordService {
	engines := make(map[model.Kind]*workflow.Engine)
	for kind, cfg := range model.Kinds() {
		engines[kind] = workflow.NewEngine(workflow.Config{PendingCreateStatus: cfg.PendingCreateStatus}, clock)
	}
	return &recordService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		hub:       hub,
		events:    events,
		engines:   engines,
		logger:    logger,
	}
}

func (s *recordService) Create(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID string, payload map[string]any) (*RecordResponse, error) {
	engine, cfg, err := s.kindSetup(kind)
	if err != nil {
		return nil, err
	}
	name, err := validatePayload(cfg, payload, true)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByName(ctx, kind, tenantID, name); err == nil {
		return nil, fmt.Errorf("%w: %s %q already exists", ErrConflict, cfg.Resource, name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check name uniqueness: %w", err)
	}

	decision := engine.DecideCreate(payload, actor)

	rec := &model.ApprovableRecord{
		TenantID: tenantID,
		Kind:     kind,
		Name:     name,
	}
	rec.ApplyDecision(decision.Record)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.repo.Create(txCtx, rec); createErr != nil {
			return fmt.Errorf("failed to create record: %w", createErr)
		}
		return s.audit(txCtx, actor, tenantID, model.ActionCreateRecord, rec, map[string]any{
			"kind":   kind,
			"status": rec.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, EventRecordCreated, cfg, rec, actor)
	return toRecordResponse(rec), nil
}

func (s *recordService) Update(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string, payload map[string]any) (*RecordResponse, error) {
	engine, cfg, err := s.kindSetup(kind)
	if err != nil {
		return nil, err
	}
	name, err := validatePayload(cfg, payload, false)
	if err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, kind, tenantID, id)
	if err != nil {
		return nil, err
	}

	// A renamed record must not collide with a sibling.
	if name != "" && name != rec.Name {
		if other, lookErr := s.repo.GetByName(ctx, kind, tenantID, name); lookErr == nil && other.ID != rec.ID {
			return nil, fmt.Errorf("%w: %s %q already exists", ErrConflict, cfg.Resource, name)
		} else if lookErr != nil && !errors.Is(lookErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check name uniqueness: %w", lookErr)
		}
	}

	decision := engine.DecideUpdate(rec.Workflow(), payload, actor)
	expectedVersion := rec.Version
	rec.ApplyDecision(decision.Record)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.repo.Update(txCtx, rec, expectedVersion); updateErr != nil {
			if errors.Is(updateErr, repository.ErrStaleRecord) {
				return fmt.Errorf("%w: record was modified concurrently", ErrConflict)
			}
			return fmt.Errorf("failed to update record: %w", updateErr)
		}
		return s.audit(txCtx, actor, tenantID, model.ActionUpdateRecord, rec, map[string]any{
			"kind":    kind,
			"status":  rec.Status,
			"payload": payload,
		})
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, EventRecordUpdated, cfg, rec, actor)
	return toRecordResponse(rec), nil
}

// Delete stages the record for deletion; for a privileged actor the staged
// state never lands because the caller-side branch removes the row outright.
func (s *recordService) Delete(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string) error {
	engine, cfg, err := s.kindSetup(kind)
	if err != nil {
		return err
	}

	rec, err := s.find(ctx, kind, tenantID, id)
	if err != nil {
		return err
	}

	decision := engine.DecideDelete(rec.Workflow(), actor)

	if decision.Privileged {
		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if delErr := s.repo.Delete(txCtx, rec); delErr != nil {
				return fmt.Errorf("failed to delete record: %w", delErr)
			}
			return s.audit(txCtx, actor, tenantID, model.ActionDeleteRecord, rec, map[string]any{"kind": kind})
		})
		if err != nil {
			return err
		}
		s.fanOut(ctx, EventRecordDeleted, cfg, rec, actor)
		return nil
	}

	expectedVersion := rec.Version
	rec.ApplyDecision(decision.Record)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.repo.Update(txCtx, rec, expectedVersion); updateErr != nil {
			if errors.Is(updateErr, repository.ErrStaleRecord) {
				return fmt.Errorf("%w: record was modified concurrently", ErrConflict)
			}
			return fmt.Errorf("failed to stage deletion: %w", updateErr)
		}
		return s.audit(txCtx, actor, tenantID, model.ActionStageDeletion, rec, map[string]any{"kind": kind})
	})
	if err != nil {
		return err
	}

	s.fanOut(ctx, EventRecordUpdated, cfg, rec, actor)
	return nil
}

func (s *recordService) Approve(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string) (*RecordResponse, error) {
	return s.resolve(ctx, kind, actor, tenantID, id, workflow.VerdictApprove)
}

func (s *recordService) Deny(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string) (*RecordResponse, error) {
	return s.resolve(ctx, kind, actor, tenantID, id, workflow.VerdictDeny)
}

// resolve applies an approver's verdict. A nil response with nil error means
// the verdict removed the record from the store.
func (s *recordService) resolve(ctx context.Context, kind model.Kind, actor workflow.Actor, tenantID, id string, verdict workflow.Verdict) (*RecordResponse, error) {
	engine, cfg, err := s.kindSetup(kind)
	if err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, kind, tenantID, id)
	if err != nil {
		return nil, err
	}

	decision, err := engine.DecideVerdict(rec.Workflow(), actor, verdict)
	if err != nil {
		return nil, err
	}

	action := model.ActionApproveRecord
	event := EventRecordApproved
	if verdict == workflow.VerdictDeny {
		action = model.ActionDenyRecord
		event = EventRecordDenied
	}

	if decision.Outcome == workflow.OutcomeDelete {
		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if delErr := s.repo.Delete(txCtx, rec); delErr != nil {
				return fmt.Errorf("failed to delete record: %w", delErr)
			}
			return s.audit(txCtx, actor, tenantID, action, rec, map[string]any{"kind": kind, "purged": true})
		})
		if err != nil {
			return nil, err
		}
		s.fanOut(ctx, EventRecordDeleted, cfg, rec, actor)
		return nil, nil
	}

	expectedVersion := rec.Version
	rec.ApplyDecision(decision.Record)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.repo.Update(txCtx, rec, expectedVersion); updateErr != nil {
			if errors.Is(updateErr, repository.ErrStaleRecord) {
				return fmt.Errorf("%w: record was modified concurrently", ErrConflict)
			}
			return fmt.Errorf("failed to update record: %w", updateErr)
		}
		return s.audit(txCtx, actor, tenantID, action, rec, map[string]any{"kind": kind, "status": rec.Status})
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, event, cfg, rec, actor)
	return toRecordResponse(rec), nil
}

func (s *recordService) Get(ctx context.Context, kind model.Kind, tenantID, id string) (*RecordResponse, error) {
	if _, ok := kind.Config(); !ok {
		return nil, fmt.Errorf("unknown record kind: %s", kind)
	}
	rec, err := s.find(ctx, kind, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toRecordResponse(rec), nil
}

func (s *recordService) List(ctx context.Context, kind model.Kind, tenantID, status string, page, limit int) ([]RecordResponse, int64, error) {
	if _, ok := kind.Config(); !ok {
		return nil, 0, fmt.Errorf("unknown record kind: %s", kind)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	recs, total, err := s.repo.List(ctx, kind, tenantID, status, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]RecordResponse, 0, len(recs))
	for i := range recs {
		res = append(res, *toRecordResponse(&recs[i]))
	}
	return res, total, nil
}

// --- Helpers ---

func (s *recordService) kindSetup(kind model.Kind) (*workflow.Engine, model.KindConfig, error) {
	cfg, ok := kind.Config()
	if !ok {
		return nil, model.KindConfig{}, fmt.Errorf("unknown record kind: %s", kind)
	}
	return s.engines[kind], cfg, nil
}

func (s *recordService) find(ctx context.Context, kind model.Kind, tenantID, id string) (*model.ApprovableRecord, error) {
	rec, err := s.repo.GetByID(ctx, kind, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

func (s *recordService) audit(ctx context.Context, actor workflow.Actor, tenantID, action string, rec *model.ApprovableRecord, details map[string]any) error {
	details["actor"] = actor.Username
	raw, _ := json.Marshal(details)
	entry := &model.AuditLog{
		TenantID:   tenantID,
		Action:     action,
		EntityID:   rec.ID.String(),
		EntityName: rec.Name,
		Details:    string(raw),
	}
	if userID, err := uuid.Parse(actorID(ctx)); err == nil {
		entry.UserID = &userID
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// fanOut pushes the event to the websocket hub and the approval-events
// queue. Failures are logged, never surfaced: the state change already
// committed.
func (s *recordService) fanOut(ctx context.Context, event string, cfg model.KindConfig, rec *model.ApprovableRecord, actor workflow.Actor) {
	payload, err := json.Marshal(RecordEvent{
		Event:    event,
		Kind:     string(rec.Kind),
		Resource: cfg.Resource,
		RecordID: rec.ID.String(),
		Name:     rec.Name,
		Status:   rec.Status,
		Actor:    actor.Username,
		TenantID: rec.TenantID,
		At:       time.Now(),
	})
	if err != nil {
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(payload)
	}
	if s.events != nil {
		if pubErr := s.events.Publish(ctx, queue.QueueApprovalEvents, payload); pubErr != nil {
			s.logger.Warnw("failed to publish record event", "event", event, "record_id", rec.ID, "error", pubErr)
		}
	}
}

// validatePayload enforces the per-kind payload rules. Required fields apply
// to creates only; numeric fields are validated whenever present. It returns
// the trimmed name field, empty if absent.
func validatePayload(cfg model.KindConfig, payload map[string]any, isCreate bool) (string, error) {
	if isCreate {
		for _, field := range cfg.RequiredFields {
			v, ok := payload[field]
			if !ok || v == nil || strings.TrimSpace(fmt.Sprint(v)) == "" {
				return "", fmt.Errorf("field %q is required", field)
			}
		}
	}

	for _, field := range cfg.NumericFields {
		v, ok := payload[field]
		if !ok || v == nil {
			continue
		}
		d, err := toDecimal(v)
		if err != nil {
			return "", fmt.Errorf("field %q must be numeric: %w", field, err)
		}
		if d.IsNegative() {
			return "", fmt.Errorf("field %q must not be negative", field)
		}
	}

	name := ""
	if v, ok := payload["name"]; ok {
		s, isString := v.(string)
		if !isString {
			return "", errors.New(`field "name" must be a string`)
		}
		name = strings.TrimSpace(s)
		payload["name"] = name
	}
	return name, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		return decimal.NewFromString(n)
	case json.Number:
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
	}
}

func toRecordResponse(rec *model.ApprovableRecord) *RecordResponse {
	log := make([]string, 0, len(rec.ActivityLog))
	for _, entry := range rec.ActivityLog {
		log = append(log, entry.String())
	}
	return &RecordResponse{
		ID:            rec.ID.String(),
		Kind:          string(rec.Kind),
		Name:          rec.Name,
		Status:        rec.Status,
		Fields:        rec.Fields,
		PendingChange: rec.PendingChange,
		ActivityLog:   log,
		Version:       rec.Version,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     rec.UpdatedAt.Format(time.RFC3339),
	}
}
