package scraperun

import "fmt"

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed  bool
	Reason   string
	finished bool
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	if r.finished {
		return fmt.Errorf("%w: %s", ErrRunFinished, r.Reason)
	}
	return fmt.Errorf("%s", r.Reason)
}

// CanRecord evaluates whether an outcome may be added to a run.
// Rules:
// - Run must still be open
func CanRecord(r *Run) GuardResult {
	if !r.IsOpen() {
		return GuardResult{
			Reason:   fmt.Sprintf("cannot record outcome: run %d finished at %s", r.ID, r.FinishedAt.Format("2006-01-02 15:04:05")),
			finished: true,
		}
	}
	return GuardResult{Allowed: true}
}

// CanFinish evaluates whether a run may be finalized.
// Rules:
// - finish happens exactly once
func CanFinish(r *Run) GuardResult {
	if !r.IsOpen() {
		return GuardResult{
			Reason:   fmt.Sprintf("run %d is already finished", r.ID),
			finished: true,
		}
	}
	return GuardResult{Allowed: true}
}

// CanCancel evaluates whether a cancellation request makes sense.
// Rules:
// - there must be an open run
func CanCancel(open []*Run) GuardResult {
	if len(open) == 0 {
		return GuardResult{Reason: "no scrape run is in progress"}
	}
	return GuardResult{Allowed: true}
}
