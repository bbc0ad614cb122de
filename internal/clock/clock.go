// Package clock предоставляет источник времени и таймеры,
// которые можно подменить в тестах.
package clock

import "time"

// Clock источник времени для движка синхронизации и сервисов клиента.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer одноразовый таймер.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Real возвращает Clock на основе пакета time.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) C() <-chan time.Time { return r.t.C }

func (r *realTimer) Stop() bool { return r.t.Stop() }
