package sync

import "time"

// State состояние движка синхронизации
type State int

const (
	StateSuspended State = iota
	StateIdle
	StateAuthenticating
	StatePushing
	StatePulling
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StatePushing:
		return "pushing"
	case StatePulling:
		return "pulling"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// Health агрегированное состояние синхронизации для UI.
// Сведений по отдельным записям не содержит.
type Health struct {
	LastSyncedAt time.Time
	LastError    string
	State        State
	Pending      int
	Parked       int
	// Degraded есть отклоненные сервером изменения
	Degraded bool
}

//go:generate moq -out notifier_mock.go . HealthNotifier

// HealthNotifier получает снимок Health при каждой смене состояния и после каждого цикла.
// Вызывается вне внутренних блокировок движка.
type HealthNotifier interface {
	OnSyncHealthChanged(h Health)
}

// CycleResult итог одного цикла синхронизации
type CycleResult struct {
	Pushed    int // применено сервером
	Pulled    int // применено локально
	Conflicts int
	Skipped   int // некорректные записи с сервера
	Failed    int // отложены до повторной попытки
	Parked    int // отклонены сервером окончательно
	Duration  time.Duration
}
