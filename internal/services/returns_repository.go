package services

import (
	"context"
	"database/sql"
	"errors"

	"returnsdesk/internal/models"
	"returnsdesk/internal/observability"
	contextutils "returnsdesk/internal/utils"

	"github.com/jmoiron/sqlx"
)

const returnColumns = "id, order_id, product, brand, platform, reason, return_date, status, image_path, approved_by, created_at"

// ReturnsRepositoryInterface is the persistence contract of the returns table
type ReturnsRepositoryInterface interface {
	List(ctx context.Context) ([]models.Return, error)
	Insert(ctx context.Context, input models.CreateReturnInput, imagePath sql.NullString) (*models.Return, error)
	UpdateStatusIfPending(ctx context.Context, id int64, status models.Status, approver string) (*models.Return, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// ReturnsRepository implements ReturnsRepositoryInterface on Postgres
type ReturnsRepository struct {
	db     *sqlx.DB
	logger *observability.Logger
}

// NewReturnsRepository creates a repository over an open pool
func NewReturnsRepository(db *sqlx.DB, logger *observability.Logger) *ReturnsRepository {
	if db == nil {
		panic("NewReturnsRepository: db is nil")
	}
	if logger == nil {
		panic("NewReturnsRepository: logger is nil")
	}
	return &ReturnsRepository{db: db, logger: logger}
}

// List returns all rows ordered by id
func (r *ReturnsRepository) List(ctx context.Context) (result0 []models.Return, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "returns.list")
	defer observability.FinishSpan(span, &err)

	list := []models.Return{}
	if err := r.db.SelectContext(ctx, &list, "SELECT "+returnColumns+" FROM returns ORDER BY id"); err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "failed to list returns")
	}
	return list, nil
}

// Insert stores a new pending return
func (r *ReturnsRepository) Insert(ctx context.Context, input models.CreateReturnInput, imagePath sql.NullString) (result0 *models.Return, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "returns.insert")
	defer observability.FinishSpan(span, &err)

	query := `INSERT INTO returns (order_id, product, brand, platform, reason, return_date, status, image_path)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + returnColumns
	var ret models.Return
	err = r.db.QueryRowxContext(ctx, query,
		input.OrderID, input.Product, input.Brand, input.Platform, input.Reason, input.ReturnDate,
		models.StatusPending, imagePath,
	).StructScan(&ret)
	if err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "failed to insert return")
	}
	span.SetAttributes(observability.AttributeReturnID(ret.ID))
	return &ret, nil
}

// UpdateStatusIfPending applies a decision only while the row is still Pending.
// It returns sql.ErrNoRows when nothing matched.
func (r *ReturnsRepository) UpdateStatusIfPending(ctx context.Context, id int64, status models.Status, approver string) (result0 *models.Return, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "returns.update_status",
		observability.AttributeReturnID(id),
		observability.AttributeStatus(string(status)),
	)
	defer observability.FinishSpan(span, &err)

	query := `UPDATE returns SET status = $1, approved_by = $2
              WHERE id = $3 AND status = 'Pending' RETURNING ` + returnColumns
	var ret models.Return
	err = r.db.QueryRowxContext(ctx, query, status, approver, id).StructScan(&ret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "failed to update return status")
	}
	return &ret, nil
}

// Exists reports whether a return with the id exists
func (r *ReturnsRepository) Exists(ctx context.Context, id int64) (result0 bool, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "returns.exists", observability.AttributeReturnID(id))
	defer observability.FinishSpan(span, &err)

	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM returns WHERE id = $1)", id); err != nil {
		return false, contextutils.WrapWithCode(err, contextutils.ErrDatabaseQuery, "failed to look up return")
	}
	return exists, nil
}
