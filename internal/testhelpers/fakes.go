package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/notify"
)

// ========================================
// Mail Sender
// ========================================

// FakeSender records mails and fails for configured recipients.
// Addresses rejected by notify.ValidateRecipient always fail.
type FakeSender struct {
	mu       sync.Mutex
	Sent     []notify.Mail
	Attempts []string
	failFor  map[string]error
	delay    time.Duration
	inFlight int
	maxSeen  int
}

// NewFakeSender creates a sender that accepts every valid address
func NewFakeSender() *FakeSender {
	return &FakeSender{failFor: map[string]error{}}
}

// FailFor makes sends to addr return err
func (f *FakeSender) FailFor(addr string, err error) *FakeSender {
	f.failFor[addr] = err
	return f
}

// WithDelay makes every send sleep for d
func (f *FakeSender) WithDelay(d time.Duration) *FakeSender {
	f.delay = d
	return f
}

func (f *FakeSender) Send(ctx context.Context, m notify.Mail) error {
	f.mu.Lock()
	f.Attempts = append(f.Attempts, m.To)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if _, err := notify.ValidateRecipient(m.To); err != nil {
		return err
	}
	if err, ok := f.failFor[m.To]; ok {
		return err
	}
	f.Sent = append(f.Sent, m)
	return nil
}

// AttemptCount returns the number of Send calls
func (f *FakeSender) AttemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Attempts)
}

// SentTo returns the recipients that were delivered to
func (f *FakeSender) SentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Sent))
	for _, m := range f.Sent {
		out = append(out, m.To)
	}
	return out
}

// MaxConcurrent returns the highest number of simultaneous sends observed
func (f *FakeSender) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSeen
}

// ========================================
// Event Publisher
// ========================================

// RecordingPublisher stores published events
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (r *RecordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Events returns a copy of the recorded events
func (r *RecordingPublisher) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// OfType returns the recorded events of type t
func (r *RecordingPublisher) OfType(t events.Type) []events.Event {
	var out []events.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ========================================
// Regulator Notifier
// ========================================

// FakeNotifier records regulator channel notices
type FakeNotifier struct {
	mu       sync.Mutex
	Messages []string
	Err      error
}

func (f *FakeNotifier) NotifyRegulator(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, text)
	return f.Err
}

// Count returns the number of notices
func (f *FakeNotifier) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Messages)
}
