package stt

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Dispatcher fans a single PCM buffer out to both engines with a shared
// deadline and joins their results. It does not inspect text; it merely
// collects EngineResults.
type Dispatcher struct {
	primary   Engine
	secondary Engine
}

// NewDispatcher builds a Dispatcher over the two configured engines.
func NewDispatcher(primary, secondary Engine) *Dispatcher {
	return &Dispatcher{primary: primary, secondary: secondary}
}

// TranscribeBoth runs both engines concurrently, blocking up to
// deadlineMs. See §4.L for the partial-success / both-fail / timeout
// semantics.
func (d *Dispatcher) TranscribeBoth(ctx context.Context, pcm []byte, deadlineMs int) (EnginePair, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, time.Duration(deadlineMs)*time.Millisecond)
	defer cancel()

	var pair EnginePair
	var primaryErr, secondaryErr error

	g, gctx := errgroup.WithContext(deadlineCtx)
	g.Go(func() error {
		res, err := d.primary.Transcribe(gctx, pcm)
		if err != nil {
			primaryErr = err
			return nil
		}
		pair.Primary = &res
		return nil
	})
	g.Go(func() error {
		res, err := d.secondary.Transcribe(gctx, pcm)
		if err != nil {
			secondaryErr = err
			return nil
		}
		pair.Secondary = &res
		return nil
	})

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-deadlineCtx.Done():
		<-done // best-effort: tasks observe context cancellation and return promptly
	}

	if pair.Primary == nil && pair.Secondary == nil {
		if deadlineCtx.Err() != nil {
			return pair, ErrTimeout
		}
		return pair, ErrTranscriptionFailed
	}

	_ = primaryErr
	_ = secondaryErr
	return pair, nil
}
