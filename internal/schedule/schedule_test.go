package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/gymvault/gymvault/internal/model"
)

func TestCronExpr(t *testing.T) {
	tests := []struct {
		name        string
		freq        model.Frequency
		want        string
		expectError bool
		errorMsg    string
	}{
		{name: "daily at 2am", freq: model.FrequencyDaily, want: "0 2 * * *"},
		{name: "weekly on sunday", freq: model.FrequencyWeekly, want: "0 2 * * 0"},
		{name: "monthly on the 1st", freq: model.FrequencyMonthly, want: "0 2 1 * *"},
		{
			name:        "manual has no expression",
			freq:        model.FrequencyManual,
			expectError: true,
			errorMsg:    "no cron expression",
		},
		{
			name:        "unknown frequency",
			freq:        model.Frequency("hourly"),
			expectError: true,
			errorMsg:    "no cron expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := CronExpr(tt.freq)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if expr != tt.want {
					t.Errorf("expected %q, got %q", tt.want, expr)
				}
			}
		})
	}
}

func TestCronTrigger_StartAndStop(t *testing.T) {
	trigger := NewCronTrigger()
	defer trigger.Stop()

	if next := trigger.NextRun(); next != nil {
		t.Fatalf("idle trigger should have no next run, got %v", next)
	}

	if err := trigger.Start("* * * * *", func() {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	next := trigger.NextRun()
	if next == nil {
		t.Fatalf("active trigger should have a next run")
	}
	if until := time.Until(*next); until <= 0 || until > 61*time.Second {
		t.Fatalf("next run should be within the next minute, got %v", until)
	}

	trigger.Stop()
	if next := trigger.NextRun(); next != nil {
		t.Fatalf("stopped trigger should have no next run, got %v", next)
	}
}

func TestCronTrigger_StartReplacesActiveSchedule(t *testing.T) {
	trigger := NewCronTrigger()
	defer trigger.Stop()

	if err := trigger.Start("0 2 * * *", func() {}); err != nil {
		t.Fatalf("first Start error: %v", err)
	}
	if err := trigger.Start("0 2 * * 0", func() {}); err != nil {
		t.Fatalf("second Start error: %v", err)
	}

	if entries := trigger.cron.Entries(); len(entries) != 1 {
		t.Fatalf("expected exactly 1 active entry after restart, got %d", len(entries))
	}
}

func TestCronTrigger_InvalidSpec(t *testing.T) {
	trigger := NewCronTrigger()
	defer trigger.Stop()

	err := trigger.Start("not a cron", func() {})
	if err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
	if !strings.Contains(err.Error(), "invalid cron expression") {
		t.Fatalf("unexpected error: %v", err)
	}
	if next := trigger.NextRun(); next != nil {
		t.Fatalf("failed Start should leave trigger inactive")
	}
}

func TestCronTrigger_StopWhenIdle(t *testing.T) {
	trigger := NewCronTrigger()

	// Stop before any Start and repeated Stop must both be harmless.
	trigger.Stop()
	trigger.Stop()

	if err := trigger.Start("* * * * *", func() {}); err != nil {
		t.Fatalf("Start after idle stops: %v", err)
	}
	trigger.Stop()
	trigger.Stop()
}

func TestCronTrigger_RestartAfterStop(t *testing.T) {
	trigger := NewCronTrigger()
	defer trigger.Stop()

	if err := trigger.Start("0 2 * * *", func() {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	trigger.Stop()

	if err := trigger.Start("0 2 1 * *", func() {}); err != nil {
		t.Fatalf("Start after Stop error: %v", err)
	}
	if next := trigger.NextRun(); next == nil {
		t.Fatalf("restarted trigger should have a next run")
	}
}
