package clock

import (
	"sync"
	"time"
)

// Fake управляемые вручную часы для тестов.
// Таймеры срабатывают только при вызове Advance.
type Fake struct {
	now    time.Time
	timers []*fakeTimer
	mu     sync.Mutex
}

// NewFake создает часы, показывающие заданное время.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now возвращает текущее время часов.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

// NewTimer создает таймер, срабатывающий после Advance на d и более.
func (f *Fake) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{
		fake:     f,
		deadline: f.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		t.fire(f.now)
		return t
	}
	f.timers = append(f.timers, t)
	return t
}

// Advance сдвигает время и срабатывает все истекшие таймеры.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)

	remaining := f.timers[:0]
	for _, t := range f.timers {
		if !t.deadline.After(f.now) {
			t.fire(f.now)
			continue
		}
		remaining = append(remaining, t)
	}
	f.timers = remaining
}

// Set устанавливает время без срабатывания таймеров.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = now
}

// PendingTimers количество активных таймеров.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.timers)
}

func (f *Fake) stop(t *fakeTimer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, other := range f.timers {
		if other == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	deadline time.Time
	fake     *Fake
	ch       chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool { return t.fake.stop(t) }

func (t *fakeTimer) fire(now time.Time) {
	select {
	case t.ch <- now:
	default:
	}
}
