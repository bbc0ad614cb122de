package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session текущая аутентифицированная сессия
type Session struct {
	ExpiresAt    time.Time // ExpiresAt время истечения access token
	UserID       string
	Username     string
	AccessToken  string
	RefreshToken string
}

// EventKind тип события сессии
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Event изменение состояния сессии. Для SignedOut Session равен nil.
type Event struct {
	Session *Session
	Kind    EventKind
}

// Listener получает события сессии. Не должен блокироваться.
type Listener func(Event)

// Monitor рассылает события сессии подписчикам
type Monitor struct {
	listeners map[int]Listener
	next      int
	mu        sync.RWMutex
}

// NewMonitor создает монитор без подписчиков
func NewMonitor() *Monitor {
	return &Monitor{listeners: make(map[int]Listener)}
}

// Subscribe добавляет подписчика и возвращает функцию отписки
func (m *Monitor) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Publish синхронно доставляет событие всем подписчикам
func (m *Monitor) Publish(ev Event) {
	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

// TokenExpiry читает claim exp из JWT без проверки подписи.
// Подпись проверяет сервер; клиенту нужен только момент обновления.
func TokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
