package workflow

// Status is the lifecycle stage of an approvable record. Exactly one holds at
// any time; physical deletion is the only terminal state.
type Status string

const (
	StatusNewRecord   Status = "NEW_RECORD"
	StatusForApproval Status = "FOR_APPROVAL"
	StatusActive      Status = "ACTIVE"
	StatusForDeletion Status = "FOR_DELETION"
)

// Verdict is an approver's ruling on a staged record.
type Verdict string

const (
	VerdictApprove Verdict = "APPROVE"
	VerdictDeny    Verdict = "DENY"
)

// Outcome tells the caller how to execute a decision against storage.
type Outcome int

const (
	// OutcomeSave persists the decided record state.
	OutcomeSave Outcome = iota
	// OutcomeDelete removes the record from the store.
	OutcomeDelete
)
