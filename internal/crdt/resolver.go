// Package crdt содержит детерминированное разрешение конфликтов между
// локальной и удаленной версиями одной записи (Last-Write-Wins на уровне записи).
package crdt

import (
	"bytes"

	"github.com/iudanet/studysync/internal/models"
)

// Reason причина выбора победителя.
type Reason string

const (
	ReasonLocalWins  Reason = "local-wins"
	ReasonRemoteWins Reason = "remote-wins"
	// ReasonMerged зарезервировано для слияния по полям; Resolve его не возвращает.
	ReasonMerged Reason = "merged"
)

// Decision результат разрешения конфликта.
type Decision struct {
	Reason Reason
	Winner models.Record
}

// LocalWins сообщает, что победила локальная версия.
func (d Decision) LocalWins() bool {
	return d.Reason == ReasonLocalWins
}

// Resolve выбирает победителя между локальной и удаленной версиями одной записи.
// Функция чистая и коммутативная: Resolve(a, b) и Resolve(b, a) выбирают одну и ту же запись.
//
// Порядок правил:
//  1. Ровно одна сторона tombstone: tombstone побеждает, только если его UpdatedAt строго новее.
//  2. Большая Version.
//  3. Более поздний UpdatedAt.
//  4. Лексикографически больший ID.
//  5. Больший Kind, затем больший Payload побайтно.
//
// Полностью одинаковые записи разрешаются в пользу удаленной.
// Поля не сливаются: побеждает запись целиком.
func Resolve(local, remote models.Record) Decision {
	if newer(&local, &remote) {
		return Decision{Winner: local, Reason: ReasonLocalWins}
	}
	return Decision{Winner: remote, Reason: ReasonRemoteWins}
}

// newer возвращает true, если a строго предпочтительнее b.
func newer(a, b *models.Record) bool {
	if a.Deleted != b.Deleted {
		tomb, live := a, b
		if b.Deleted {
			tomb, live = b, a
		}
		tombWins := tomb.UpdatedAt.After(live.UpdatedAt)
		return tombWins == a.Deleted
	}

	if a.Version != b.Version {
		return a.Version > b.Version
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	if a.ID != b.ID {
		return a.ID > b.ID
	}
	if a.Kind != b.Kind {
		return a.Kind > b.Kind
	}
	return bytes.Compare(a.Payload, b.Payload) > 0
}
