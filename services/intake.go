package services

import (
	"context"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/metrics"
	"aftercollage_app_go/models"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeFailed   Outcome = "failed"
	OutcomeBusy     Outcome = "busy"
)

// IntakeResult tells the caller what to do with the form after a submit
type IntakeResult struct {
	Outcome      Outcome
	ID           string
	Notification Notification
	// ResetForm and CloseDialog are only set on success; a failed submit keeps the form for retry
	ResetForm   bool
	CloseDialog bool
	// Err is the underlying cause, for logs only
	Err error
}

// Intake stores validated submissions
type Intake struct {
	store    backend.Store
	inflight InFlight
	log      *zap.Logger
	onStored []func(models.Submission)
}

func NewIntake(store backend.Store, inflight InFlight, log *zap.Logger) *Intake {
	if inflight == nil {
		inflight = NewMemoryInFlight()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Intake{store: store, inflight: inflight, log: log}
}

// OnStored registers fn to run in the background after each successful insert
func (i *Intake) OnStored(fn func(models.Submission)) {
	i.onStored = append(i.onStored, fn)
}

// Submit inserts sub exactly once. formID identifies the form instance; while one submit
// for it is pending, further submits are refused. It never returns an error: failures
// come back as an error notification with the form left intact.
func (i *Intake) Submit(ctx context.Context, formID string, sub models.Submission) IntakeResult {
	kind := sub.Kind()
	log := i.log.With(zap.String("kind", string(kind)), zap.String("form_id", formID))

	if formID != "" {
		key := string(kind) + ":" + formID
		lease, acquired, err := i.inflight.Acquire(ctx, key)
		switch {
		case err != nil:
			// Busy flag store unavailable; the insert still happens once
			log.Warn("busy flag unavailable", zap.Error(err))
		case !acquired:
			metrics.RecordSubmission(string(kind), string(OutcomeBusy))
			return IntakeResult{
				Outcome:      OutcomeBusy,
				Notification: Failure(MsgSubmitBusy),
				Err:          ErrSubmissionInFlight,
			}
		default:
			defer i.inflight.Release(context.WithoutCancel(ctx), key, lease)
		}
	}

	id, err := i.store.Insert(ctx, kind.Collection(), sub)
	if err != nil {
		log.Error("submission insert failed", zap.String("collection", kind.Collection()), zap.Error(err))
		metrics.RecordSubmission(string(kind), string(OutcomeFailed))
		return IntakeResult{
			Outcome:      OutcomeFailed,
			Notification: Failure(MsgSubmitFailed),
			Err:          err,
		}
	}

	log.Info("submission stored", zap.String("id", id))
	metrics.RecordSubmission(string(kind), string(OutcomeAccepted))

	for _, fn := range i.onStored {
		go fn(sub)
	}

	return IntakeResult{
		Outcome:      OutcomeAccepted,
		ID:           id,
		Notification: Success(SuccessMessage(kind)),
		ResetForm:    true,
		CloseDialog:  true,
	}
}
