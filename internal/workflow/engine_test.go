package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/models"
	"ewaste-backend/internal/store/sqlite"
	"ewaste-backend/internal/workflow"
)

type fixture struct {
	engine    *workflow.Engine
	store     *sqlite.Store
	donor     int
	admin     int
	recycler  int
	other     int
	volunteer int

	mu          sync.Mutex
	transitions []workflow.Transition
}

// stepClock advances one second per call so history order is deterministic.
func stepClock() func() time.Time {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "workflow.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	f := &fixture{store: store}
	f.donor = f.user(t, "donor", models.RoleDonor)
	f.admin = f.user(t, "admin", models.RoleAdmin)
	f.recycler = f.user(t, "recycler", models.RoleRecycler)
	f.other = f.user(t, "other-recycler", models.RoleRecycler)
	f.volunteer = f.user(t, "volunteer", models.RoleVolunteer)

	f.engine = workflow.NewEngine(store,
		workflow.WithClock(stepClock()),
		workflow.WithObserver(func(tr workflow.Transition) {
			f.mu.Lock()
			f.transitions = append(f.transitions, tr)
			f.mu.Unlock()
		}),
	)
	return f
}

func (f *fixture) user(t *testing.T, name string, role models.Role) int {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u.ID
}

func (f *fixture) submit(t *testing.T) *models.DonationRequest {
	t.Helper()
	req, err := f.engine.Submit(context.Background(), f.donor, "Laptop", "Dell, 2015", "North")
	require.NoError(t, err)
	return req
}

func (f *fixture) status(t *testing.T, id int) models.RequestStatus {
	t.Helper()
	req, err := f.engine.Request(context.Background(), id)
	require.NoError(t, err)
	return req.Status
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.engine.Submit(ctx, f.donor, "  Laptop ", "Dell", "North")
	require.NoError(t, err)
	assert.NotZero(t, req.ID)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, "Laptop", req.WasteType)
	assert.Nil(t, req.DateResolved)

	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].OldStatus)
	assert.Equal(t, models.StatusPending, history[0].NewStatus)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name    string
		donorID int
		waste   string
		desc    string
		area    string
		kind    error
	}{
		{"blank waste type", f.donor, "   ", "d", "a", workflow.ErrValidation},
		{"empty description", f.donor, "Phone", "", "a", workflow.ErrValidation},
		{"empty area", f.donor, "Phone", "d", "", workflow.ErrValidation},
		{"no donor", 0, "Phone", "d", "a", workflow.ErrValidation},
		{"unknown donor", 9999, "Phone", "d", "a", workflow.ErrNotFound},
		{"recycler is not a donor", f.recycler, "Phone", "d", "a", workflow.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Submit(ctx, tt.donorID, tt.waste, tt.desc, tt.area)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	all, err := f.store.ListRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFullLifecycleHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)

	a, err := f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, models.StatusProcessing, f.status(t, req.ID))

	done, err := f.engine.CompleteAssignment(ctx, a.ID, req.ID, f.recycler)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.DateResolved)

	stored, err := f.store.GetAssignmentByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CompletedDate)
	assert.True(t, done.DateResolved.Equal(*stored.CompletedDate))

	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, models.StatusCompleted, history[0].NewStatus)
	require.NotNil(t, history[0].OldStatus)
	assert.Equal(t, models.StatusProcessing, *history[0].OldStatus)
	assert.Equal(t, f.recycler, *history[0].ChangedBy)

	assert.Equal(t, models.StatusProcessing, history[1].NewStatus)
	require.NotNil(t, history[1].OldStatus)
	assert.Equal(t, models.StatusPending, *history[1].OldStatus)
	assert.Equal(t, f.admin, *history[1].ChangedBy)

	assert.Equal(t, models.StatusPending, history[2].NewStatus)
	assert.Nil(t, history[2].OldStatus)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.transitions, 3)
	assert.Equal(t, models.StatusCompleted, f.transitions[2].To)
}

// Replaying history oldest first must rebuild the current status without gaps.
func TestHistoryReplaysToCurrentStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assigned := f.submit(t)
	_, err := f.engine.AssignRecycler(ctx, assigned.ID, f.recycler, f.admin)
	require.NoError(t, err)

	approved := f.submit(t)
	_, err = f.engine.UpdateStatus(ctx, approved.ID, models.StatusApproved, f.admin)
	require.NoError(t, err)

	rejected := f.submit(t)
	_, err = f.engine.UpdateStatus(ctx, rejected.ID, models.StatusRejected, f.admin)
	require.NoError(t, err)

	for _, id := range []int{assigned.ID, approved.ID, rejected.ID} {
		history, err := f.engine.History(ctx, id)
		require.NoError(t, err)

		var current *models.RequestStatus
		for i := len(history) - 1; i >= 0; i-- {
			e := history[i]
			if current == nil {
				assert.Nil(t, e.OldStatus)
			} else {
				require.NotNil(t, e.OldStatus)
				assert.Equal(t, *current, *e.OldStatus)
			}
			s := e.NewStatus
			current = &s
		}
		require.NotNil(t, current)
		assert.Equal(t, f.status(t, id), *current)
	}
}

func TestAssignRecyclerTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
	require.NoError(t, err)

	_, err = f.engine.AssignRecycler(ctx, req.ID, f.other, f.admin)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	a, err := f.store.GetAssignmentByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, f.recycler, a.RecyclerID)
	assert.Equal(t, models.StatusProcessing, f.status(t, req.ID))

	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAssignRecyclerPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.engine.AssignRecycler(ctx, 9999, f.recycler, f.admin)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.engine.AssignRecycler(ctx, req.ID, 9999, f.admin)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.engine.AssignRecycler(ctx, req.ID, f.volunteer, f.admin)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.engine.AssignRecycler(ctx, req.ID, f.recycler, 0)
	assert.ErrorIs(t, err, workflow.ErrValidation)

	assert.Equal(t, models.StatusPending, f.status(t, req.ID))
	_, err = f.store.GetAssignmentByRequest(ctx, req.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	approved := f.submit(t)
	_, err = f.engine.UpdateStatus(ctx, approved.ID, models.StatusApproved, f.admin)
	require.NoError(t, err)
	_, err = f.engine.AssignRecycler(ctx, approved.ID, f.recycler, f.admin)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestConcurrentAssignRecycler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)

	const callers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		recycler := f.recycler
		if i%2 == 1 {
			recycler = f.other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.engine.AssignRecycler(ctx, req.ID, recycler, f.admin)
			switch {
			case err == nil:
				successes.Add(1)
			case workflow.KindOf(err) == workflow.ErrInvalidState:
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, callers-1, conflicts.Load())

	var rows int
	require.NoError(t, f.store.DB().QueryRow(
		`SELECT COUNT(*) FROM recycler_assignments WHERE request_id = ?`, req.ID).Scan(&rows))
	assert.Equal(t, 1, rows)

	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCompleteAssignmentByNonOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)
	a, err := f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
	require.NoError(t, err)

	_, err = f.engine.CompleteAssignment(ctx, a.ID, req.ID, f.other)
	assert.ErrorIs(t, err, workflow.ErrAuthorization)
	assert.Equal(t, models.StatusProcessing, f.status(t, req.ID))

	stored, err := f.store.GetAssignmentByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CompletedDate)
}

func TestCompleteAssignmentFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)
	other := f.submit(t)
	a, err := f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
	require.NoError(t, err)

	_, err = f.engine.CompleteAssignment(ctx, 9999, req.ID, f.recycler)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = f.engine.CompleteAssignment(ctx, a.ID, other.ID, f.recycler)
	assert.ErrorIs(t, err, workflow.ErrValidation)

	_, err = f.engine.CompleteAssignment(ctx, a.ID, req.ID, f.recycler)
	require.NoError(t, err)

	_, err = f.engine.CompleteAssignment(ctx, a.ID, req.ID, f.recycler)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req := f.submit(t)
	approved, err := f.engine.UpdateStatus(ctx, req.ID, models.StatusApproved, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Nil(t, approved.DateResolved)

	_, err = f.engine.UpdateStatus(ctx, req.ID, models.StatusRejected, f.admin)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
	assert.Equal(t, models.StatusApproved, f.status(t, req.ID))
	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	declined := f.submit(t)
	rejected, err := f.engine.UpdateStatus(ctx, declined.ID, models.StatusRejected, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.DateResolved)

	_, err = f.engine.UpdateStatus(ctx, declined.ID, models.StatusApproved, f.admin)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	fresh := f.submit(t)
	for _, to := range []models.RequestStatus{models.StatusProcessing, models.StatusCompleted, models.StatusPending, "archived"} {
		_, err = f.engine.UpdateStatus(ctx, fresh.ID, to, f.admin)
		assert.ErrorIs(t, err, workflow.ErrValidation, "target %s", to)
	}
	assert.Equal(t, models.StatusPending, f.status(t, fresh.ID))

	_, err = f.engine.UpdateStatus(ctx, 9999, models.StatusApproved, f.admin)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestNoOrphanAssignments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 4; i++ {
		req := f.submit(t)
		switch i {
		case 0:
			_, err := f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
			require.NoError(t, err)
		case 1:
			a, err := f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
			require.NoError(t, err)
			_, err = f.engine.CompleteAssignment(ctx, a.ID, req.ID, f.recycler)
			require.NoError(t, err)
		case 2:
			_, err := f.engine.UpdateStatus(ctx, req.ID, models.StatusRejected, f.admin)
			require.NoError(t, err)
			_, err = f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
			assert.ErrorIs(t, err, workflow.ErrInvalidState)
		}
	}

	all, err := f.store.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, req := range all {
		_, err := f.store.GetAssignmentByRequest(ctx, req.ID)
		hasAssignment := err == nil
		if !hasAssignment {
			require.ErrorIs(t, err, models.ErrNotFound)
		}
		wantAssignment := req.Status == models.StatusProcessing || req.Status == models.StatusCompleted
		assert.Equal(t, wantAssignment, hasAssignment, "request %d is %s", req.ID, req.Status)
		assert.Equal(t, req.Status.Terminal(), req.DateResolved != nil, "request %d date_resolved", req.ID)
	}
}

func TestAssignVolunteer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)

	v, err := f.engine.AssignVolunteer(ctx, req.ID, f.volunteer, f.admin)
	require.NoError(t, err)
	assert.NotZero(t, v.ID)

	_, err = f.engine.AssignVolunteer(ctx, req.ID, f.volunteer, f.admin)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	_, err = f.engine.AssignVolunteer(ctx, req.ID, f.donor, f.admin)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	assert.Equal(t, models.StatusPending, f.status(t, req.ID))
	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	list, err := f.store.ListVolunteerAssignments(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.engine.UpdateStatus(ctx, req.ID, models.StatusRejected, f.admin)
	require.NoError(t, err)
	other := f.user(t, "second-volunteer", models.RoleVolunteer)
	_, err = f.engine.AssignVolunteer(ctx, req.ID, other, f.admin)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestHistoryUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.History(context.Background(), 9999)
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestCancelledCallerStillCommits(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := f.engine.Submit(ctx, f.donor, "Monitor", "CRT", "South")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, f.status(t, req.ID))
}

var errDiskIO = errors.New("disk I/O error")

// faultyStore fails selected writes inside otherwise real transactions.
type faultyStore struct {
	workflow.Store
	failInsertAssignment bool
	failAppendHistory    bool
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(tx workflow.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx workflow.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	workflow.Tx
	store *faultyStore
}

func (t *faultyTx) InsertAssignment(ctx context.Context, a *models.RecyclerAssignment) error {
	if t.store.failInsertAssignment {
		return errDiskIO
	}
	return t.Tx.InsertAssignment(ctx, a)
}

func (t *faultyTx) AppendHistory(ctx context.Context, e *models.StatusHistoryEntry) error {
	if t.store.failAppendHistory {
		return errDiskIO
	}
	return t.Tx.AppendHistory(ctx, e)
}

func TestAssignRecyclerRollsBackOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)

	faulty := &faultyStore{Store: f.store, failInsertAssignment: true}
	_, err := workflow.NewEngine(faulty).AssignRecycler(ctx, req.ID, f.recycler, f.admin)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrTransientStore, workflow.KindOf(err))
	assert.ErrorIs(t, err, errDiskIO)

	assert.Equal(t, models.StatusPending, f.status(t, req.ID))
	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	_, err = f.store.GetAssignmentByRequest(ctx, req.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The same request can still be assigned once the store recovers.
	_, err = f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, f.status(t, req.ID))
}

func TestCompleteAssignmentRollsBackOnHistoryFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.submit(t)
	a, err := f.engine.AssignRecycler(ctx, req.ID, f.recycler, f.admin)
	require.NoError(t, err)

	faulty := &faultyStore{Store: f.store, failAppendHistory: true}
	_, err = workflow.NewEngine(faulty).CompleteAssignment(ctx, a.ID, req.ID, f.recycler)
	require.Error(t, err)
	assert.Equal(t, workflow.ErrTransientStore, workflow.KindOf(err))

	got, err := f.engine.Request(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Nil(t, got.DateResolved)

	history, err := f.engine.History(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	stored, err := f.store.GetAssignmentByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CompletedDate)
}
