package migrations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/assetwatch-backend/internal/data/storeerr"
	types "github.com/yungbote/assetwatch-backend/internal/domain"
	"github.com/yungbote/assetwatch-backend/internal/pkg/dbctx"
	"github.com/yungbote/assetwatch-backend/internal/platform/logger"
)

type MigrationRecordRepo interface {
	Create(dbc dbctx.Context, m *types.MigrationRecord) (*types.MigrationRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MigrationRecord, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Transition(dbc dbctx.Context, id uuid.UUID, from, to string, updates map[string]interface{}) (bool, error)
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.MigrationRecord, error)
	ListDue(dbc dbctx.Context, now time.Time, limit int) ([]*types.MigrationRecord, error)
	ListByBaseName(dbc dbctx.Context, baseName string, limit int) ([]*types.MigrationRecord, error)
	ListUnnotifiedTerminal(dbc dbctx.Context, limit int) ([]*types.MigrationRecord, error)
	MarkNotified(dbc dbctx.Context, ids []uuid.UUID) error
	CountByStatusSince(dbc dbctx.Context, since time.Time) (map[string]int64, error)
	AvgDurationsSince(dbc dbctx.Context, since time.Time) (validationMs, totalMs int64, err error)
	RollupBetween(dbc dbctx.Context, from, to time.Time) (RollupCounts, error)
}

// RollupCounts are the migration counts for one time window, keyed by the
// timestamp of the counted event (creation, start, terminal transition).
type RollupCounts struct {
	Created         int64
	Started         int64
	Completed       int64
	Failed          int64
	RolledBack      int64
	AvgValidationMs int64
	AvgDurationMs   int64
}

type migrationRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMigrationRecordRepo(db *gorm.DB, baseLog *logger.Logger) MigrationRecordRepo {
	return &migrationRecordRepo{
		db:  db,
		log: baseLog.With("repo", "MigrationRecordRepo"),
	}
}

func (r *migrationRecordRepo) Create(dbc dbctx.Context, m *types.MigrationRecord) (*types.MigrationRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if m == nil {
		return nil, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(m).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return m, nil
}

func (r *migrationRecordRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MigrationRecord, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.MigrationRecord
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *migrationRecordRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.MigrationRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
	return storeerr.Classify(err)
}

// Transition applies updates only when the record is still in the expected
// status, so state machine steps cannot race each other or re-fire on a
// terminal record. Returns false when the guard did not match.
func (r *migrationRecordRepo) Transition(dbc dbctx.Context, id uuid.UUID, from, to string, updates map[string]interface{}) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || from == "" || to == "" {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.MigrationRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, storeerr.Classify(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *migrationRecordRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.MigrationRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MigrationRecord
	if status == "" {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *migrationRecordRepo) ListDue(dbc dbctx.Context, now time.Time, limit int) ([]*types.MigrationRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("status = ? AND (scheduled_for IS NULL OR scheduled_for <= ?)", types.MigrationStatusPending, now).
		Order("scheduled_for ASC NULLS FIRST, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.MigrationRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *migrationRecordRepo) ListByBaseName(dbc dbctx.Context, baseName string, limit int) ([]*types.MigrationRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MigrationRecord
	if baseName == "" {
		return out, nil
	}
	q := t.WithContext(dbc.Ctx).
		Where("base_name = ?", baseName).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *migrationRecordRepo) ListUnnotifiedTerminal(dbc dbctx.Context, limit int) ([]*types.MigrationRecord, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Where("notified = ? AND status IN ?", false, []string{
			types.MigrationStatusCompleted,
			types.MigrationStatusFailed,
			types.MigrationStatusRolledBack,
		}).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.MigrationRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	return out, nil
}

func (r *migrationRecordRepo) MarkNotified(dbc dbctx.Context, ids []uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.MigrationRecord{}).
		Where("id IN ?", ids).
		Update("notified", true).Error
	return storeerr.Classify(err)
}

func (r *migrationRecordRepo) CountByStatusSince(dbc dbctx.Context, since time.Time) (map[string]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []struct {
		Status string
		N      int64
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.MigrationRecord{}).
		Select("status, count(*) AS n").
		Where("created_at >= ?", since).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, storeerr.Classify(err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// RollupBetween computes one window's rollup. Failed records carry their
// terminal time in completed_at, same as completed ones; rollbacks are counted
// by rolled_back_at so operator rollbacks land on the day they ran, not the
// day the record was created.
func (r *migrationRecordRepo) RollupBetween(dbc dbctx.Context, from, to time.Time) (RollupCounts, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out RollupCounts

	model := func() *gorm.DB {
		return t.WithContext(dbc.Ctx).Model(&types.MigrationRecord{})
	}

	if err := model().
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&out.Created).Error; err != nil {
		return out, storeerr.Classify(err)
	}
	if err := model().
		Where("started_at >= ? AND started_at < ?", from, to).
		Count(&out.Started).Error; err != nil {
		return out, storeerr.Classify(err)
	}
	if err := model().
		Where("status = ? AND completed_at >= ? AND completed_at < ?", types.MigrationStatusCompleted, from, to).
		Count(&out.Completed).Error; err != nil {
		return out, storeerr.Classify(err)
	}
	if err := model().
		Where("status = ? AND completed_at >= ? AND completed_at < ?", types.MigrationStatusFailed, from, to).
		Count(&out.Failed).Error; err != nil {
		return out, storeerr.Classify(err)
	}
	if err := model().
		Where("status = ? AND rolled_back_at >= ? AND rolled_back_at < ?", types.MigrationStatusRolledBack, from, to).
		Count(&out.RolledBack).Error; err != nil {
		return out, storeerr.Classify(err)
	}

	var avg struct {
		AvgValidation float64
		AvgTotal      float64
	}
	if err := model().
		Select("COALESCE(AVG(validation_ms), 0) AS avg_validation, COALESCE(AVG(duration_ms), 0) AS avg_total").
		Where("status = ? AND completed_at >= ? AND completed_at < ?", types.MigrationStatusCompleted, from, to).
		Scan(&avg).Error; err != nil {
		return out, storeerr.Classify(err)
	}
	out.AvgValidationMs = int64(avg.AvgValidation)
	out.AvgDurationMs = int64(avg.AvgTotal)
	return out, nil
}

func (r *migrationRecordRepo) AvgDurationsSince(dbc dbctx.Context, since time.Time) (int64, int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row struct {
		AvgValidation float64
		AvgTotal      float64
	}
	err := t.WithContext(dbc.Ctx).
		Model(&types.MigrationRecord{}).
		Select("COALESCE(AVG(validation_ms), 0) AS avg_validation, COALESCE(AVG(duration_ms), 0) AS avg_total").
		Where("created_at >= ? AND status IN ?", since, []string{
			types.MigrationStatusCompleted,
			types.MigrationStatusFailed,
			types.MigrationStatusRolledBack,
		}).
		Scan(&row).Error
	if err != nil {
		return 0, 0, storeerr.Classify(err)
	}
	return int64(row.AvgValidation), int64(row.AvgTotal), nil
}
