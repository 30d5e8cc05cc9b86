package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gymvault/gymvault/internal/model"
)

// Trigger fires a callback on a recurring schedule. Implementations hold at
// most one active schedule; Start replaces any previous one and Stop is safe
// to call when nothing is scheduled.
type Trigger interface {
	Start(spec string, fn func()) error
	Stop()
	NextRun() *time.Time
}

// CronExpr maps a backup frequency onto a five-field cron expression.
// Recurring backups fire at 02:00 local time; weekly runs on Sunday, monthly
// on the 1st.
func CronExpr(freq model.Frequency) (string, error) {
	switch freq {
	case model.FrequencyDaily:
		return "0 2 * * *", nil
	case model.FrequencyWeekly:
		return "0 2 * * 0", nil
	case model.FrequencyMonthly:
		return "0 2 1 * *", nil
	default:
		return "", fmt.Errorf("frequency %q has no cron expression", freq)
	}
}

// CronTrigger runs a single recurring job on a cron scheduler.
type CronTrigger struct {
	cron   *cron.Cron
	entry  cron.EntryID
	active bool
	mu     sync.Mutex
}

func NewCronTrigger() *CronTrigger {
	return &CronTrigger{
		cron: cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start schedules fn on the given cron spec, replacing any active schedule.
// The scheduler itself is started lazily on first use.
func (t *CronTrigger) Start(spec string, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		t.cron.Remove(t.entry)
		t.active = false
	}

	entryID, err := t.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	t.entry = entryID
	t.active = true
	t.cron.Start()
	return nil
}

// Stop deactivates the current schedule. A job already running is not
// interrupted. Calling Stop with no active schedule is a no-op.
func (t *CronTrigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return
	}
	t.cron.Remove(t.entry)
	t.cron.Stop()
	t.active = false
}

// NextRun returns the next scheduled execution time, or nil when inactive.
func (t *CronTrigger) NextRun() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return nil
	}
	entry := t.cron.Entry(t.entry)
	if !entry.Valid() || entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}
