package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"geoguidego/pkg/config"
	"geoguidego/pkg/logging"
	"geoguidego/pkg/model"
)

// Queue is the single consumer feeding the speech channel. Enqueue never
// blocks; capacity is unbounded. Items render strictly in FIFO order,
// one at a time: Queued -> Rendering -> {Done | TimedOut | Error}, then
// discarded. A render that never completes is cut off after the render
// timeout, the channel stopped, and the item dropped — never retried.
type Queue struct {
	channel       Channel
	renderTimeout time.Duration
	retryDelay    time.Duration

	mu       sync.Mutex
	items    []*model.SpeechItem
	speaking bool
	wake     chan struct{}
}

// NewQueue creates a queue over the given channel.
func NewQueue(ch Channel, cfg config.SpeechConfig) *Queue {
	renderTimeout := time.Duration(cfg.RenderTimeout)
	if renderTimeout <= 0 {
		renderTimeout = 30 * time.Second
	}
	retryDelay := time.Duration(cfg.RetryDelay)
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Queue{
		channel:       ch,
		renderTimeout: renderTimeout,
		retryDelay:    retryDelay,
		wake:          make(chan struct{}, 1),
	}
}

// Enqueue appends an item to the tail. Never blocks.
func (q *Queue) Enqueue(item *model.SpeechItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Depth returns the number of queued items, excluding the one currently
// rendering.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Speaking reports whether an item is currently rendering.
func (q *Queue) Speaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speaking
}

// Run consumes the queue until the context is cancelled. Cancellation
// stops the channel without draining remaining items.
func (q *Queue) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		item, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		if !q.channel.IsReady() {
			// Back to the tail; retry initialization after a fixed delay
			q.requeue(item)
			slog.Warn("Speech channel not ready, requeued item", "poi", item.POIKey)
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.retryDelay):
			}
			continue
		}

		q.render(ctx, item)
	}
}

// render drives one item through Rendering to a terminal state.
func (q *Queue) render(ctx context.Context, item *model.SpeechItem) {
	q.setSpeaking(true)
	defer q.setSpeaking(false)

	renderCtx, cancel := context.WithTimeout(ctx, q.renderTimeout)
	defer cancel()

	slog.Debug("Rendering speech item", "poi", item.POIKey, "queued_for", time.Since(item.EnqueuedAt))
	done := q.channel.Render(renderCtx, item)

	select {
	case <-ctx.Done():
		q.channel.Stop()
		return
	case <-renderCtx.Done():
		// Hard timeout: force the channel idle and advance. The item is
		// dropped, not retried.
		q.channel.Stop()
		slog.Warn("Speech item timed out, dropped", "poi", item.POIKey, "timeout", q.renderTimeout)
		return
	case err := <-done:
		if err != nil {
			slog.Warn("Speech item failed, dropped", "poi", item.POIKey, "error", err)
			return
		}
	}

	slog.Debug("Speech item done", "poi", item.POIKey)
	logging.TTS().Info("Utterance spoken", "poi", item.POIKey, "chars", len(item.Text),
		"queued_for", time.Since(item.EnqueuedAt).Round(time.Millisecond))

	// Inter-item pause
	if item.Pause > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(item.Pause):
		}
	}
}

func (q *Queue) pop() (*model.SpeechItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *Queue) requeue(item *model.SpeechItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

func (q *Queue) setSpeaking(v bool) {
	q.mu.Lock()
	q.speaking = v
	q.mu.Unlock()
}
