package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TimLuong/taskrecycler/internal/config"
	"github.com/TimLuong/taskrecycler/internal/types"
)

type record struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// TestSnapshotWriteOnSuccess verifies successful retained results reach the
// snapshot store.
func TestSnapshotWriteOnSuccess(t *testing.T) {
	e := newTestEngine(t, config.ForTestingWithSnapshot())

	u, _, err := e.Submit(context.Background(), "report", func(ctx context.Context) (any, error) {
		return record{Name: "daily", Rows: 10}, nil
	}, &types.SubmitOptions{Retention: time.Minute, RetentionSet: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := waitResult(t, u); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	// The write runs in a tracked background goroutine.
	waitForCondition(t, func() bool { return e.SnapshotStore().EntryCount() == 1 })
}

// TestSnapshotNotWrittenOnFailure verifies failed executions never reach
// the snapshot store.
func TestSnapshotNotWrittenOnFailure(t *testing.T) {
	e := newTestEngine(t, config.ForTestingWithSnapshot())

	u, _, err := e.Submit(context.Background(), "report", func(ctx context.Context) (any, error) {
		return nil, context.DeadlineExceeded
	}, &types.SubmitOptions{Retention: time.Minute, RetentionSet: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	_, _ = waitResult(t, u)

	time.Sleep(30 * time.Millisecond)
	if got := e.SnapshotStore().EntryCount(); got != 0 {
		t.Errorf("EntryCount = %d, want 0", got)
	}
}

// TestSnapshotServesDecodedCopies verifies snapshot-readable submissions
// are answered from the store with raw bytes decoded per caller.
func TestSnapshotServesDecodedCopies(t *testing.T) {
	e := newTestEngine(t, config.ForTestingWithSnapshot())

	var executions atomic.Int64
	fn := func(ctx context.Context) (any, error) {
		executions.Add(1)
		return record{Name: "daily", Rows: 10}, nil
	}
	opts := func() *types.SubmitOptions {
		return &types.SubmitOptions{Retention: time.Minute, RetentionSet: true, SnapshotRead: true}
	}

	u1, _, err := e.Submit(context.Background(), "report", fn, opts())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := waitResult(t, u1); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	waitForCondition(t, func() bool { return e.SnapshotStore().EntryCount() == 1 })

	u2, attached, err := e.Submit(context.Background(), "report", fn, opts())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !attached {
		t.Error("Expected snapshot submission to attach")
	}
	if !u2.FromSnapshot() {
		t.Fatal("Expected a snapshot-backed unit")
	}

	v, err := waitResult(t, u2)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	raw, ok := v.([]byte)
	if !ok {
		t.Fatalf("snapshot unit value = %T, want []byte", v)
	}

	var decoded record
	if err := e.Serializer().Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != (record{Name: "daily", Rows: 10}) {
		t.Errorf("decoded = %+v, want original record", decoded)
	}
	if got := executions.Load(); got != 1 {
		t.Errorf("executions = %d, want 1", got)
	}
}

// TestSnapshotOptInPerSubmission verifies submissions without the opt-in
// attach to the registry instead of reading the store.
func TestSnapshotOptInPerSubmission(t *testing.T) {
	cfg := config.ForTestingWithSnapshot()
	cfg.Defaults.SnapshotReads = false
	e := newTestEngine(t, cfg)

	fn := func(ctx context.Context) (any, error) {
		return record{Name: "daily", Rows: 10}, nil
	}

	u1, _, err := e.Submit(context.Background(), "report", fn,
		&types.SubmitOptions{Retention: time.Minute, RetentionSet: true, SnapshotRead: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := waitResult(t, u1); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	waitForCondition(t, func() bool { return e.SnapshotStore().EntryCount() == 1 })

	// No opt-in: the retained registry unit answers with the live value.
	u2, attached, err := e.Submit(context.Background(), "report", fn,
		&types.SubmitOptions{Retention: time.Minute, RetentionSet: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !attached {
		t.Error("Expected to attach to retained unit")
	}
	if u2.FromSnapshot() {
		t.Error("Expected a live unit, not a snapshot read")
	}
	v, err := waitResult(t, u2)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if _, ok := v.(record); !ok {
		t.Errorf("value = %T, want record", v)
	}
}

// TestInvalidateRemovesSnapshotEntry verifies invalidation clears both the
// registry and the snapshot store.
func TestInvalidateRemovesSnapshotEntry(t *testing.T) {
	e := newTestEngine(t, config.ForTestingWithSnapshot())

	u, _, err := e.Submit(context.Background(), "report", func(ctx context.Context) (any, error) {
		return record{Name: "daily", Rows: 10}, nil
	}, &types.SubmitOptions{Retention: time.Minute, RetentionSet: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := waitResult(t, u); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	waitForCondition(t, func() bool { return e.SnapshotStore().EntryCount() == 1 })

	if !e.Invalidate("report", nil) {
		t.Error("Invalidate = false, want true")
	}
	if got := e.SnapshotStore().EntryCount(); got != 0 {
		t.Errorf("EntryCount after invalidate = %d, want 0", got)
	}

	var executions atomic.Int64
	_, attached, err := e.Submit(context.Background(), "report", func(ctx context.Context) (any, error) {
		executions.Add(1)
		return record{}, nil
	}, &types.SubmitOptions{Retention: time.Minute, RetentionSet: true, SnapshotRead: true})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if attached {
		t.Error("Expected fresh execution after invalidation")
	}
}
