package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/auth"
	"ewaste-backend/internal/cache"
	"ewaste-backend/internal/config"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/store/sqlite"
	"ewaste-backend/internal/workflow"
)

type env struct {
	store    *sqlite.Store
	users    *UserService
	requests *RequestService
	certs    *CertificateService

	admin, donor, otherDonor, recycler, otherRecycler, volunteer workflow.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	// the read cache is package-level; ids restart with every fresh database
	require.NoError(t, cache.Flush(context.Background()))

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "ewaste-test"

	engine := workflow.NewEngine(store, workflow.WithObserver(ObserveTransition))
	e := &env{
		store:    store,
		users:    NewUserService(store, auth.NewJWTManager(cfg), false),
		requests: NewRequestService(engine),
	}
	e.certs = NewCertificateService(e.requests)

	e.admin = e.seed(t, "admin", models.RoleAdmin)
	e.donor = e.seed(t, "donor", models.RoleDonor)
	e.otherDonor = e.seed(t, "donor2", models.RoleDonor)
	e.recycler = e.seed(t, "recycler", models.RoleRecycler)
	e.otherRecycler = e.seed(t, "recycler2", models.RoleRecycler)
	e.volunteer = e.seed(t, "volunteer", models.RoleVolunteer)
	return e
}

func (e *env) seed(t *testing.T, name string, role models.Role) workflow.Actor {
	t.Helper()
	area := "North"
	u := &models.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role, IsActive: true, ServiceArea: &area}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return workflow.Actor{ID: u.ID, Role: role}
}

func (e *env) submit(t *testing.T) *models.DonationRequest {
	t.Helper()
	req, err := e.requests.Submit(context.Background(), e.donor, &models.SubmitRequest{
		WasteType:   "Laptop",
		Description: "Old laptop, battery swollen",
		ServiceArea: "North",
	})
	require.NoError(t, err)
	return req
}

// complete drives a fresh request through to completed and returns it.
func (e *env) complete(t *testing.T) *models.DonationRequest {
	t.Helper()
	ctx := context.Background()
	req := e.submit(t)
	a, err := e.requests.AssignRecycler(ctx, e.admin, &models.AssignRecyclerRequest{RequestID: req.ID, RecyclerID: e.recycler.ID})
	require.NoError(t, err)
	done, err := e.requests.CompleteAssignment(ctx, e.recycler, &models.CompleteAssignmentRequest{AssignmentID: a.ID, RequestID: req.ID})
	require.NoError(t, err)
	return done
}
