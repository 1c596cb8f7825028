package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genads/internal/adapter/memrepo"
	"genads/internal/domain"
)

func newService(t *testing.T) (*Service, *memrepo.Store) {
	t.Helper()
	repo := memrepo.New()
	return NewService(repo.Projects(), repo.Jobs(), nil), repo
}

func serumProject() *domain.Project {
	return &domain.Project{
		Title:           "Serum launch",
		Brief:           "Premium skincare serum",
		BrandName:       "LuxaSkin",
		PrimaryColor:    "#f5e6d3",
		Mood:            "Uplifting",
		DurationSeconds: 15,
	}
}

func createProject(t *testing.T, svc *Service, userID string) *domain.Project {
	t.Helper()
	p, err := svc.CreateProject(context.Background(), userID, serumProject())
	require.NoError(t, err)
	return p
}

func TestCreateProjectNormalizesAndValidates(t *testing.T) {
	svc, _ := newService(t)
	p := createProject(t, svc, "user-1")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "#F5E6D3", p.PrimaryColor)
	assert.Equal(t, domain.MoodUplifting, p.Mood)
	assert.Equal(t, domain.ProjectStatusPending, p.Status)
	assert.Equal(t, "projects/"+p.ID, p.StorageFolder)

	bad := serumProject()
	bad.DurationSeconds = 12
	_, err := svc.CreateProject(context.Background(), "user-1", bad)
	assert.ErrorIs(t, err, domain.ErrInvalidProject)

	_, err = svc.CreateProject(context.Background(), "", serumProject())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProjectsAreOwnerScoped(t *testing.T) {
	svc, _ := newService(t)
	p := createProject(t, svc, "user-1")
	createProject(t, svc, "user-1")
	createProject(t, svc, "user-2")

	_, err := svc.GetProject(context.Background(), "user-2", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.ListProjects(context.Background(), "user-1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	page, err := svc.ListProjects(context.Background(), "user-1", 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestTriggerQueuesJob(t *testing.T) {
	svc, repo := newService(t)
	p := createProject(t, svc, "user-1")

	job, err := svc.Trigger(context.Background(), "user-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)

	stored, err := repo.Projects().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusFor(domain.JobStatusQueued), stored.Status)
}

func TestTriggerRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign project", func(t *testing.T) {
		svc, _ := newService(t)
		p := createProject(t, svc, "user-1")
		_, err := svc.Trigger(ctx, "user-2", p.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("job in flight", func(t *testing.T) {
		svc, _ := newService(t)
		p := createProject(t, svc, "user-1")
		_, err := svc.Trigger(ctx, "user-1", p.ID)
		require.NoError(t, err)
		_, err = svc.Trigger(ctx, "user-1", p.ID)
		assert.ErrorIs(t, err, domain.ErrJobInFlight)
	})

	t.Run("terminal job needs reset", func(t *testing.T) {
		svc, _ := newService(t)
		p := createProject(t, svc, "user-1")
		_, err := svc.Trigger(ctx, "user-1", p.ID)
		require.NoError(t, err)
		_, err = svc.Cancel(ctx, "user-1", p.ID)
		require.NoError(t, err)
		_, err = svc.Trigger(ctx, "user-1", p.ID)
		assert.ErrorIs(t, err, domain.ErrResetRequired)
	})
}

func TestStatusBeforeAndDuringRun(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	p := createProject(t, svc, "user-1")

	st, err := svc.Status(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", st.Status)
	assert.Empty(t, st.JobID)
	assert.Empty(t, st.Ledger)

	job, err := svc.Trigger(ctx, "user-1", p.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Jobs().Advance(ctx, job.ID, domain.JobStatusQueued, domain.JobStatusExtracting))
	require.NoError(t, repo.Jobs().AppendCost(ctx, job.ID, domain.CostEntry{Step: domain.CostStepExtraction}))
	require.NoError(t, repo.Jobs().Advance(ctx, job.ID, domain.JobStatusExtracting, domain.JobStatusPlanning))
	require.NoError(t, repo.Jobs().AppendCost(ctx, job.ID, domain.CostEntry{Step: domain.CostStepScenePlanning, AmountUSD: 0.01}))

	st, err = svc.Status(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, st.JobID)
	assert.Equal(t, string(domain.JobStatusPlanning), st.Status)
	assert.Equal(t, 15, st.Progress)
	assert.Equal(t, domain.JobStatusPlanning.Label(), st.CurrentStep)
	assert.InDelta(t, 0.01, st.CostUSD, 1e-9)
	assert.Len(t, st.Ledger, 2)

	_, err = svc.Status(ctx, "user-2", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelFromEveryNonTerminalState(t *testing.T) {
	ctx := context.Background()
	order := domain.PipelineOrder()
	for i, target := range order {
		if target.Terminal() {
			continue
		}
		t.Run(string(target), func(t *testing.T) {
			svc, repo := newService(t)
			p := createProject(t, svc, "user-1")
			job, err := svc.Trigger(ctx, "user-1", p.ID)
			require.NoError(t, err)
			for j := 1; j <= i; j++ {
				require.NoError(t, repo.Jobs().Advance(ctx, job.ID, order[j-1], order[j]))
			}

			cancelled, err := svc.Cancel(ctx, "user-1", p.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)

			next, _ := target.Next()
			err = repo.Jobs().Advance(ctx, job.ID, target, next)
			assert.Error(t, err, "no advancement after cancel")

			_, err = svc.Cancel(ctx, "user-1", p.ID)
			assert.ErrorIs(t, err, domain.ErrNotCancellable)
		})
	}
}

func TestCancelWithoutJob(t *testing.T) {
	svc, _ := newService(t)
	p := createProject(t, svc, "user-1")
	_, err := svc.Cancel(context.Background(), "user-1", p.ID)
	assert.ErrorIs(t, err, domain.ErrNotCancellable)
}

func TestResetAllowsFreshJob(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p := createProject(t, svc, "user-1")

	first, err := svc.Trigger(ctx, "user-1", p.ID)
	require.NoError(t, err)

	_, err = svc.Reset(ctx, "user-1", p.ID)
	assert.ErrorIs(t, err, domain.ErrJobInFlight)

	_, err = svc.Cancel(ctx, "user-1", p.ID)
	require.NoError(t, err)

	reset, err := svc.Reset(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusPending, reset.Status)

	second, err := svc.Trigger(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, domain.JobStatusQueued, second.Status)

	st, err := svc.Status(ctx, "user-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, st.JobID)
}
