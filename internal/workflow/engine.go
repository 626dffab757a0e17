// Package workflow implements the approval-workflow decision engine shared by
// every approvable entity kind (customer classes, stocks, stock types,
// product classes, product deals, product units).
//
// The engine is pure: given the current record state, the submitted change
// and the acting user, it computes the next record state, the activity-log
// entry to append and how the caller should execute the result against
// storage. It performs no I/O and holds no mutable state, so a single
// instance is safe for any number of concurrent callers.
package workflow

import "time"

// Clock supplies timestamps for activity-log entries. Injected so tests can
// pin time.
type Clock func() time.Time

// Record is the engine's view of an approvable entity. Fields is the
// committed domain payload and PendingChange holds staged edits awaiting a
// second actor; both are semantically opaque to the engine.
type Record struct {
	ID            string
	Status        Status
	Fields        map[string]any
	PendingChange map[string]any
	ActivityLog   []LogEntry
}

// Decision is the engine's output: the next record state, how to execute it,
// and whether the acting user held approval authority. The caller's
// hard-vs-soft delete branch keys off Privileged.
type Decision struct {
	Record     Record
	Outcome    Outcome
	Privileged bool
}

// Config tunes the engine per entity kind.
type Config struct {
	// PendingCreateStatus is the initial status assigned when an actor
	// without approval authority creates a record. Entity kinds disagree on
	// this (NEW_RECORD vs FOR_APPROVAL), so it is configuration rather than
	// a constant. Defaults to NEW_RECORD.
	PendingCreateStatus Status
}

// Engine computes approval-workflow transitions for one entity kind.
type Engine struct {
	cfg   Config
	clock Clock
}

// NewEngine builds an engine with the given per-kind configuration. A nil
// clock falls back to time.Now.
func NewEngine(cfg Config, clock Clock) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if cfg.PendingCreateStatus == "" {
		cfg.PendingCreateStatus = StatusNewRecord
	}
	return &Engine{cfg: cfg, clock: clock}
}

// DecideCreate computes the initial state of a new record. A privileged
// creator activates the record immediately; anyone else stages it for a
// second approver. It never fails on well-formed input.
func (e *Engine) DecideCreate(payload map[string]any, actor Actor) Decision {
	now := e.clock()
	if actor.HasApprovalAuthority() {
		return Decision{
			Record: Record{
				Status:      StatusActive,
				Fields:      cloneFields(payload),
				ActivityLog: appendLog(nil, LogEntry{Actor: actor.Username, Verb: "created, status set to ACTIVE", At: now}),
			},
			Outcome:    OutcomeSave,
			Privileged: true,
		}
	}
	return Decision{
		Record: Record{
			Status:        e.cfg.PendingCreateStatus,
			Fields:        cloneFields(payload),
			PendingChange: cloneFields(payload),
			ActivityLog:   appendLog(nil, LogEntry{Actor: actor.Username, Verb: "created for approval", At: now}),
		},
		Outcome: OutcomeSave,
	}
}

// DecideUpdate computes the next state after an edit. The caller must have
// resolved existence and domain validation (name uniqueness etc.) before
// invoking. A privileged editor commits the payload straight onto the record;
// anyone else leaves the committed fields untouched and stages the payload,
// merged over any edits already pending.
func (e *Engine) DecideUpdate(existing Record, payload map[string]any, actor Actor) Decision {
	next := cloneRecord(existing)
	now := e.clock()

	if actor.HasApprovalAuthority() {
		next.Fields = mergeFields(next.Fields, payload)
		next.PendingChange = nil
		next.Status = StatusActive
		next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Actor: actor.Username, Verb: "updated, status set to ACTIVE", At: now})
		return Decision{Record: next, Outcome: OutcomeSave, Privileged: true}
	}

	next.PendingChange = mergeFields(next.PendingChange, payload)
	next.Status = StatusForApproval
	next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Actor: actor.Username, Verb: "updated for approval", At: now})
	return Decision{Record: next, Outcome: OutcomeSave}
}

// DecideDelete stages a record for deletion. Both permission branches land on
// FOR_DELETION; whether the deletion then executes as an immediate removal or
// waits for an approver is the caller's branch, driven by Privileged.
func (e *Engine) DecideDelete(existing Record, actor Actor) Decision {
	next := cloneRecord(existing)
	next.Status = StatusForDeletion
	now := e.clock()

	if actor.HasApprovalAuthority() {
		next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Actor: actor.Username, Verb: "deleted", At: now})
		return Decision{Record: next, Outcome: OutcomeSave, Privileged: true}
	}
	next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Actor: actor.Username, Verb: "marked for deletion", At: now})
	return Decision{Record: next, Outcome: OutcomeSave}
}

// DecideVerdict resolves a staged record. It returns ErrForbidden when the
// actor lacks approval authority and an InvalidTransitionError when the
// record's status has no rule for the verdict; the record is unchanged in
// both cases.
func (e *Engine) DecideVerdict(existing Record, actor Actor, verdict Verdict) (Decision, error) {
	if !actor.HasApprovalAuthority() {
		return Decision{}, ErrForbidden
	}

	next := cloneRecord(existing)
	now := e.clock()

	switch {
	case existing.Status == StatusForApproval && verdict == VerdictApprove:
		next.Fields = mergeFields(next.Fields, next.PendingChange)
		next.PendingChange = nil
		next.Status = StatusActive
		next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Actor: actor.Username, Verb: "approved, status set to ACTIVE", At: now})
		return Decision{Record: next, Outcome: OutcomeSave, Privileged: true}, nil

	case existing.Status == StatusForApproval && verdict == VerdictDeny:
		next.PendingChange = nil
		next.Status = StatusActive
		next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Actor: actor.Username, Verb: "denied", At: now})
		return Decision{Record: next, Outcome: OutcomeSave, Privileged: true}, nil

	case existing.Status == StatusNewRecord && verdict == VerdictApprove:
		next.Fields = mergeFields(next.Fields, next.PendingChange)
		next.PendingChange = nil
		next.Status = StatusActive
		next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Actor: actor.Username, Verb: "approved, status set to ACTIVE", At: now})
		return Decision{Record: next, Outcome: OutcomeSave, Privileged: true}, nil

	case existing.Status == StatusNewRecord && verdict == VerdictDeny:
		// A denied brand-new record is purged, never activated.
		return Decision{Record: next, Outcome: OutcomeDelete, Privileged: true}, nil

	case existing.Status == StatusForDeletion && verdict == VerdictApprove:
		return Decision{Record: next, Outcome: OutcomeDelete, Privileged: true}, nil

	case existing.Status == StatusForDeletion && verdict == VerdictDeny:
		next.PendingChange = nil
		next.Status = StatusActive
		// Recorded without an actor, as the denial line reads in the trail.
		next.ActivityLog = appendLog(next.ActivityLog, LogEntry{Verb: "deletion denied", At: now})
		return Decision{Record: next, Outcome: OutcomeSave, Privileged: true}, nil
	}

	return Decision{}, &InvalidTransitionError{Status: existing.Status, Verdict: verdict}
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func mergeFields(base, overlay map[string]any) map[string]any {
	if base == nil && overlay == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func cloneRecord(r Record) Record {
	out := r
	out.Fields = cloneFields(r.Fields)
	out.PendingChange = cloneFields(r.PendingChange)
	out.ActivityLog = make([]LogEntry, len(r.ActivityLog))
	copy(out.ActivityLog, r.ActivityLog)
	return out
}
