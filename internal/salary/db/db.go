package db

import (
	"context"
	"errors"
	"fmt"

	dbmodels "github.com/gartstein/salaries/internal/salary/db/models"
	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// editableColumns are written by UpdateSalary. Moderation columns are left
// out on purpose; they only move through TransitionSalary.
var editableColumns = []string{
	"company_name", "designation", "location", "department",
	"experience", "experience_level", "total_monthly", "which_years_salary",
	"minimum_increment", "years_of_increment", "employment_type", "gender",
	"story_title", "story_description", "pros", "cons",
	"is_anonymous", "is_verified",
}

type Repository struct {
	db *gorm.DB
}

type Config struct {
	// Driver is "postgres" (default) or "sqlite". For sqlite DBName is the
	// database file path.
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (cfg *Config) dialector() (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DBName), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewRepository(cfg *Config) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&dbmodels.SalaryRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// ListOptions narrows ListSalaries. Empty fields match everything.
type ListOptions struct {
	State models.ModerationState
	Kind  models.Kind
}

func (r *Repository) CreateSalary(ctx context.Context, rec *models.SalaryRecord) error {
	row := toRow(rec)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: salary %s already exists", e.ErrConflict, rec.ID)
		}
		return err
	}
	rec.CreatedAt = row.CreatedAt
	rec.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetSalary(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error) {
	var row dbmodels.SalaryRow
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return toModel(&row), nil
}

// UpdateSalary overwrites the editable columns of an existing record.
func (r *Repository) UpdateSalary(ctx context.Context, rec *models.SalaryRecord) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.SalaryRow{}).
		Where("id = ?", rec.ID).
		Select(editableColumns).
		Updates(toRow(rec))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSalary(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.SalaryRow{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// ListSalaries returns matching records, newest first.
func (r *Repository) ListSalaries(ctx context.Context, opts ListOptions) ([]*models.SalaryRecord, error) {
	q := r.db.WithContext(ctx).Model(&dbmodels.SalaryRow{})
	if opts.State != "" {
		q = q.Where("moderation_state = ?", string(opts.State))
	}
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}

	var rows []dbmodels.SalaryRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list salaries: %w", err)
	}

	out := make([]*models.SalaryRecord, 0, len(rows))
	for i := range rows {
		out = append(out, toModel(&rows[i]))
	}
	return out, nil
}

// TransitionSalary moves a record from one moderation state to another. The
// write only lands if the stored state still equals from; otherwise the
// record was moderated concurrently and ErrConflict is returned.
func (r *Repository) TransitionSalary(
	ctx context.Context,
	id uuid.UUID,
	from, to models.ModerationState,
	reason *string,
) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.SalaryRow{}).
		Where("id = ? AND moderation_state = ?", id, string(from)).
		Updates(map[string]interface{}{
			"moderation_state": string(to),
			"rejection_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := r.GetSalary(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: salary %s is no longer %s", e.ErrConflict, id, from)
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// Ping checks the underlying connection; used by the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
