package importer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/hr/internal/hr/db"
	"github.com/gartstein/hr/internal/hr/db/dbtest"
	e "github.com/gartstein/hr/internal/hr/errors"
	"github.com/gartstein/hr/internal/hr/filestore"
	"github.com/gartstein/hr/internal/hr/importer"
	"github.com/gartstein/hr/internal/hr/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type storageEnv struct {
	repo    *db.Repository
	files   *filestore.Local
	dir     string
	runner  *importer.Runner
	company *models.Company
	users   []*models.User
}

func newStorageEnv(t *testing.T, users int) *storageEnv {
	ctx := context.Background()
	repo := dbtest.New(t)
	dir := t.TempDir()
	files, err := filestore.NewLocal(dir)
	require.NoError(t, err)

	company := &models.Company{Name: "Acme"}
	require.NoError(t, repo.CreateCompany(ctx, company))
	env := &storageEnv{repo: repo, files: files, dir: dir, company: company}
	for i := 0; i < users; i++ {
		u := &models.User{
			Name:         "user",
			Email:        strings.Repeat("u", i+1) + "@acme.io",
			PasswordHash: "hash",
			CompanyID:    company.ID,
		}
		require.NoError(t, repo.CreateUser(ctx, u))
		env.users = append(env.users, u)
	}
	env.runner = importer.NewRunner(importer.Config{BatchSize: 2}, repo, repo, repo, files, nil, nil, zaptest.NewLogger(t))
	return env
}

func (env *storageEnv) submit(t *testing.T, content string) *models.ImportJob {
	ctx := context.Background()
	ref, err := env.files.Save(ctx, "employees.csv", strings.NewReader(content))
	require.NoError(t, err)
	job := &models.ImportJob{CompanyID: env.company.ID, FileRef: ref, FileName: "employees.csv"}
	require.NoError(t, env.repo.CreateImportJob(ctx, job))
	return job
}

func (env *storageEnv) csv() string {
	var b strings.Builder
	b.WriteString("responsibility,admission_at,phone,user_id\n")
	phones := []string{"(47) 98877-1122", "47 98877 1123", "47988771124"}
	for i, u := range env.users {
		fmt.Fprintf(&b, "Dev,2024-01-%02d,%s,%s\n", 15+i, phones[i], u.ID)
	}
	return b.String()
}

func TestImportAgainstStorage(t *testing.T) {
	ctx := context.Background()
	env := newStorageEnv(t, 3)
	job := env.submit(t, env.csv())

	summary, err := env.runner.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, models.ImportSucceeded, summary.Status)

	employees, err := env.repo.ListEmployees(ctx, env.company.ID, models.EmployeeFilter{})
	require.NoError(t, err)
	require.Len(t, employees, 3)
	phones := []string{}
	for _, emp := range employees {
		phones = append(phones, emp.Phone)
	}
	assert.ElementsMatch(t, []string{"47988771122", "47988771123", "47988771124"}, phones)

	stored, err := env.repo.ImportSummary(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportSucceeded, stored.Status)
	assert.Equal(t, 3, stored.TotalRows)

	entries, err := os.ReadDir(env.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload must be removed")

	t.Run("running the finished job again changes nothing", func(t *testing.T) {
		again, err := env.runner.Run(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, again.Succeeded)
		employees, err := env.repo.ListEmployees(ctx, env.company.ID, models.EmployeeFilter{})
		require.NoError(t, err)
		assert.Len(t, employees, 3)
	})

	t.Run("importing the same file again rejects every row", func(t *testing.T) {
		second := env.submit(t, env.csv())
		summary, err := env.runner.Run(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Succeeded)
		assert.Equal(t, 3, summary.Failed)
		for _, rowErr := range summary.Errors {
			assert.Equal(t, models.ErrDuplicateEmployee, rowErr.Kind)
		}
		employees, err := env.repo.ListEmployees(ctx, env.company.ID, models.EmployeeFilter{})
		require.NoError(t, err)
		assert.Len(t, employees, 3)
	})
}

func TestImportCrashRecovery(t *testing.T) {
	ctx := context.Background()
	env := newStorageEnv(t, 3)
	job := env.submit(t, env.csv())

	// first batch landed before the worker died
	require.NoError(t, env.repo.MarkImportJobRunning(ctx, job.ID))
	require.NoError(t, env.repo.CommitBatch(ctx, job.ID, []models.ImportedRow{
		{Row: 1, Employee: &models.Employee{
			UserID:         env.users[0].ID,
			Responsibility: "Dev",
			AdmissionAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Phone:          "47988771122",
		}},
	}))

	summary, err := env.runner.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Empty(t, summary.Errors)

	employees, err := env.repo.ListEmployees(ctx, env.company.ID, models.EmployeeFilter{})
	require.NoError(t, err)
	assert.Len(t, employees, 3)
}

// cancelAfterCommit stops the run once a batch is stored, the way a
// shutdown deadline would.
type cancelAfterCommit struct {
	importer.BatchWriter
	cancel context.CancelFunc
}

func (w cancelAfterCommit) CommitBatch(ctx context.Context, jobID uuid.UUID, rows []models.ImportedRow) error {
	err := w.BatchWriter.CommitBatch(ctx, jobID, rows)
	w.cancel()
	return err
}

func TestImportResumesAfterShutdown(t *testing.T) {
	ctx := context.Background()
	env := newStorageEnv(t, 3)
	job := env.submit(t, env.csv())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopping := importer.NewRunner(importer.Config{BatchSize: 2}, env.repo, env.repo,
		cancelAfterCommit{BatchWriter: env.repo, cancel: cancel}, env.files, nil, nil, zaptest.NewLogger(t))

	_, err := stopping.Run(runCtx, job.ID)
	require.ErrorIs(t, err, e.ErrInterrupted)

	pending, err := env.repo.PendingImportJobs(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, job.ID, pending[0].ID)
	assert.Equal(t, models.ImportRunning, pending[0].Status)
	_, err = os.Stat(filepath.Join(env.dir, job.FileRef))
	require.NoError(t, err, "upload is kept for the resumed run")

	summary, err := env.runner.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportSucceeded, summary.Status)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Empty(t, summary.Errors)

	employees, err := env.repo.ListEmployees(ctx, env.company.ID, models.EmployeeFilter{})
	require.NoError(t, err)
	assert.Len(t, employees, 3)

	pending, err = env.repo.PendingImportJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	entries, err := os.ReadDir(env.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportMissingFile(t *testing.T) {
	ctx := context.Background()
	env := newStorageEnv(t, 1)
	job := env.submit(t, env.csv())
	require.NoError(t, os.Remove(filepath.Join(env.dir, job.FileRef)))

	summary, err := env.runner.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportFailed, summary.Status)

	stored, err := env.repo.ImportSummary(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Fatal)
	assert.Equal(t, models.ErrFileRead, stored.Fatal.Kind)
}
