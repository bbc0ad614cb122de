package sync

import (
	"context"
	"sort"
	"strconv"
	stdsync "sync"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/syncerr"
)

// fakeRemote хранилище в памяти с семантикой эталонного сервера:
// версия растет на каждой правке, курсор это номер последнего изменения.
type fakeRemote struct {
	records map[string]models.Record
	seqs    map[string]int64
	applied map[string]int

	// beforeApply вызывается перед применением правки; ошибка возвращается клиенту
	beforeApply func(ctx context.Context, call int, m api.Mutation) error

	seq        int64
	applyCalls int
	fetchCalls int
	mu         stdsync.Mutex
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		records: make(map[string]models.Record),
		seqs:    make(map[string]int64),
		applied: make(map[string]int),
	}
}

// seed кладет запись как будто ее записало другое устройство
func (f *fakeRemote) seed(record models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.records[record.ID] = *record.Clone()
	f.seqs[record.ID] = f.seq
}

func (f *fakeRemote) record(id string) (models.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r, ok
}

func (f *fakeRemote) appliedCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied[id]
}

func (f *fakeRemote) calls() (apply, fetch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls, f.fetchCalls
}

func (f *fakeRemote) ApplyMutation(ctx context.Context, _ string, m api.Mutation) (int64, error) {
	f.mu.Lock()
	f.applyCalls++
	call := f.applyCalls
	hook := f.beforeApply
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call, m); err != nil {
			return 0, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	current, exists := f.records[m.Record.ID]
	if exists && current.Version != m.BaseVersion {
		return 0, &syncerr.ConflictError{Current: *current.Clone()}
	}

	next := *m.Record.Clone()
	next.Version = max(current.Version, m.Record.Version) + 1
	f.seq++
	f.records[next.ID] = next
	f.seqs[next.ID] = f.seq
	f.applied[next.ID]++
	return next.Version, nil
}

func (f *fakeRemote) FetchSince(_ context.Context, _ string, cursor models.Cursor, pageSize int) (*api.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++

	var after int64
	if cursor != "" {
		var err error
		after, err = strconv.ParseInt(string(cursor), 10, 64)
		if err != nil {
			return nil, &syncerr.FatalError{Reason: "bad cursor"}
		}
	}

	ids := make([]string, 0, len(f.seqs))
	for id, seq := range f.seqs {
		if seq > after {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return f.seqs[ids[i]] < f.seqs[ids[j]] })

	page := &api.Page{NextCursor: cursor}
	for i, id := range ids {
		if i == pageSize {
			page.HasMore = true
			break
		}
		record := f.records[id]
		page.Records = append(page.Records, *record.Clone())
		page.NextCursor = models.Cursor(strconv.FormatInt(f.seqs[id], 10))
	}
	return page, nil
}

func (f *fakeRemote) VerifySession(context.Context, string) error {
	return nil
}
