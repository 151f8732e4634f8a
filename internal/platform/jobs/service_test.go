package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"bizdesk/internal/platform/config"
)

type fakeDispatcher struct {
	calls      int
	dispatched int
	err        error
}

func (f *fakeDispatcher) DispatchDue(context.Context, time.Time) (int, error) {
	f.calls++
	return f.dispatched, f.err
}

func TestCampaignDispatchJobDelegates(t *testing.T) {
	dispatcher := &fakeDispatcher{dispatched: 2}
	svc := New(nil, config.Config{}, dispatcher)

	svc.enqueueCampaignDispatch()

	var j job
	select {
	case j = <-svc.queue:
	default:
		t.Fatal("no job enqueued")
	}
	if j.Type != JobCampaignDispatch {
		t.Fatalf("job type = %q, want %q", j.Type, JobCampaignDispatch)
	}

	details, err := svc.runJob(context.Background(), j)
	if err != nil {
		t.Fatalf("runJob: %v", err)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("dispatcher called %d times, want 1", dispatcher.calls)
	}
	got, _ := details.(map[string]any)
	if got["dispatched"] != 2 {
		t.Fatalf("details = %v, want dispatched 2", details)
	}
}

func TestCampaignDispatchJobPropagatesError(t *testing.T) {
	wantErr := errors.New("db gone")
	svc := New(nil, config.Config{}, &fakeDispatcher{err: wantErr})

	svc.enqueueCampaignDispatch()
	j := <-svc.queue

	if _, err := svc.runJob(context.Background(), j); !errors.Is(err, wantErr) {
		t.Fatalf("runJob error = %v, want %v", err, wantErr)
	}
}
