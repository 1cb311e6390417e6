package stt

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEngine struct {
	name  string
	sleep time.Duration
	res   EngineResult
	err   error
}

func (f *fakeEngine) Name() string                         { return f.name }
func (f *fakeEngine) Initialize(ctx context.Context) error  { return nil }
func (f *fakeEngine) Close(ctx context.Context) error       { return nil }
func (f *fakeEngine) Transcribe(ctx context.Context, pcm []byte) (EngineResult, error) {
	select {
	case <-time.After(f.sleep):
	case <-ctx.Done():
		return EngineResult{}, ctx.Err()
	}
	if f.err != nil {
		return EngineResult{}, f.err
	}
	return f.res, nil
}

func TestDispatcherBothSucceed(t *testing.T) {
	primary := &fakeEngine{name: "primary", res: EngineResult{Text: "a", EngineName: "primary"}}
	secondary := &fakeEngine{name: "secondary", res: EngineResult{Text: "b", EngineName: "secondary"}}
	d := NewDispatcher(primary, secondary)

	pair, err := d.TranscribeBoth(context.Background(), []byte{1}, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.Primary == nil || pair.Secondary == nil {
		t.Fatal("expected both fields populated")
	}
}

func TestDispatcherOneFails(t *testing.T) {
	primary := &fakeEngine{name: "primary", err: errors.New("boom")}
	secondary := &fakeEngine{name: "secondary", res: EngineResult{Text: "fallback"}}
	d := NewDispatcher(primary, secondary)

	pair, err := d.TranscribeBoth(context.Background(), []byte{1}, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.Primary != nil {
		t.Error("expected nil primary field")
	}
	if pair.Secondary == nil || pair.Secondary.Text != "fallback" {
		t.Error("expected secondary result present")
	}
}

func TestDispatcherBothFail(t *testing.T) {
	primary := &fakeEngine{name: "primary", err: errors.New("boom")}
	secondary := &fakeEngine{name: "secondary", err: errors.New("boom")}
	d := NewDispatcher(primary, secondary)

	_, err := d.TranscribeBoth(context.Background(), []byte{1}, 5000)
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Errorf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestDispatcherDeadlineExceeded(t *testing.T) {
	primary := &fakeEngine{name: "primary", sleep: time.Second}
	secondary := &fakeEngine{name: "secondary", sleep: time.Second}
	d := NewDispatcher(primary, secondary)

	_, err := d.TranscribeBoth(context.Background(), []byte{1}, 50)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestDispatcherPerformanceProperty(t *testing.T) {
	primary := &fakeEngine{name: "primary", sleep: 200 * time.Millisecond, res: EngineResult{Text: "a"}}
	secondary := &fakeEngine{name: "secondary", sleep: 200 * time.Millisecond, res: EngineResult{Text: "b"}}
	d := NewDispatcher(primary, secondary)

	start := time.Now()
	_, err := d.TranscribeBoth(context.Background(), []byte{1}, 5000)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed >= 400*time.Millisecond {
		t.Errorf("expected parallel dispatch under 400ms, took %v", elapsed)
	}
}
