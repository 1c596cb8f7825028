package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"genads/internal/domain"
	"genads/internal/infra"
	"genads/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository backed by PostgreSQL.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// Create assigns the project id and storage folder, then inserts it.
func (r *ProjectRepositoryPG) Create(ctx context.Context, p *domain.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.StorageFolder = domain.StorageFolderFor(p.ID)
	p.Status = domain.ProjectStatusPending
	row := r.sql.QueryRow(ctx, sqlinline.QInsertProject,
		p.ID,
		p.UserID,
		p.Title,
		p.Brief,
		p.BrandName,
		p.PrimaryColor,
		p.SecondaryColor,
		string(p.Mood),
		p.DurationSeconds,
		p.TargetAudience,
		p.ProductImageURL,
		p.StorageFolder,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return scanProject(r.sql.QueryRow(ctx, sqlinline.QSelectProjectByID, id))
}

// GetForUser hides other users' projects behind ErrNotFound.
func (r *ProjectRepositoryPG) GetForUser(ctx context.Context, userID, id string) (*domain.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return scanProject(r.sql.QueryRow(ctx, sqlinline.QSelectProjectForUser, id, userID))
}

func (r *ProjectRepositoryPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Project, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProjectsByUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepositoryPG) SetStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	return r.execOne(ctx, sqlinline.QUpdateProjectStatus, id, string(status))
}

func (r *ProjectRepositoryPG) Finish(ctx context.Context, id string, status domain.ProjectStatus, spentUSD float64, outputs map[string]string, errMsg string) error {
	raw, err := marshalOutputs(outputs)
	if err != nil {
		return err
	}
	return r.execOne(ctx, sqlinline.QFinishProject, id, string(status), spentUSD, raw, domain.TruncateMessage(errMsg, domain.MaxErrorMessageLen))
}

func (r *ProjectRepositoryPG) Reset(ctx context.Context, id string) error {
	return r.execOne(ctx, sqlinline.QResetProject, id)
}

func (r *ProjectRepositoryPG) PurgeFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QPurgeFailedProjects, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ProjectRepositoryPG) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p       domain.Project
		mood    string
		status  string
		outputs []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Brief,
		&p.BrandName,
		&p.PrimaryColor,
		&p.SecondaryColor,
		&mood,
		&p.DurationSeconds,
		&p.TargetAudience,
		&p.ProductImageURL,
		&status,
		&p.CostUSD,
		&outputs,
		&p.StorageFolder,
		&p.ErrorMessage,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Mood = domain.Mood(mood)
	p.Status = domain.ProjectStatus(status)
	var err error
	if p.Outputs, err = unmarshalOutputs(outputs); err != nil {
		return nil, fmt.Errorf("decode project outputs: %w", err)
	}
	return &p, nil
}

func marshalOutputs(outputs map[string]string) ([]byte, error) {
	if outputs == nil {
		outputs = map[string]string{}
	}
	return json.Marshal(outputs)
}

func unmarshalOutputs(raw []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
