package models

import "github.com/iudanet/studysync/pkg/api"

// RecordFromWire конвертирует запись из тела запроса
func RecordFromWire(w api.Record) Record {
	return Record{
		ID:        w.ID,
		Kind:      w.Kind,
		Payload:   w.Payload,
		Version:   w.Version,
		Deleted:   w.Deleted,
		UpdatedAt: w.UpdatedAt.UTC(),
	}
}

// Wire конвертирует запись для передачи по сети
func (r *Record) Wire() api.Record {
	return api.Record{
		ID:        r.ID,
		Kind:      r.Kind,
		Payload:   r.Payload,
		Version:   r.Version,
		Deleted:   r.Deleted,
		UpdatedAt: r.UpdatedAt,
	}
}
