package repository

import (
	"context"
	"fmt"

	"github.com/platemate/entitlement-reconciler/internal/models"
)

// SaveReconciliation вставляет запись о сверке и возвращает её ID.
func (s *Storage) SaveReconciliation(ctx context.Context, rec models.Reconciliation) (int, error) {
	const op = "storage.SaveReconciliation"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO reconciliations (user_uid, tier, trial_kind, days_remaining,
				  can_extend, computed_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		rec.UserUID, string(rec.Tier), string(rec.TrialKind), rec.DaysRemaining,
		rec.CanExtend, rec.ComputedAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListReconciliations возвращает последние записи журнала сверок
// пользователя, от новых к старым.
func (s *Storage) ListReconciliations(ctx context.Context, userUID string, limit, offset int) ([]*models.Reconciliation, error) {
	const op = "storage.ListReconciliations"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, tier, trial_kind, days_remaining, can_extend, computed_at
			  FROM reconciliations
			  WHERE user_uid = $1
			  ORDER BY computed_at DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Reconciliation
	for rows.Next() {
		var item models.Reconciliation
		var tier, trialKind string
		if err := rows.Scan(&item.ID, &item.UserUID, &tier, &trialKind,
			&item.DaysRemaining, &item.CanExtend, &item.ComputedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item.Tier = models.Tier(tier)
		item.TrialKind = models.TrialKind(trialKind)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// HasUsedExtension сообщает, была ли у пользователя сверка, в которой
// он уже находился в продлённом триале. Координатор отклоняет по этому
// признаку повторное продление до похода к провайдеру.
func (s *Storage) HasUsedExtension(ctx context.Context, userUID string) (bool, error) {
	const op = "storage.HasUsedExtension"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM reconciliations
			      WHERE user_uid = $1 AND trial_kind = $2
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID, string(models.TrialKindExtended)).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
