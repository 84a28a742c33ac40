// Package status реализует чтение статуса подписки через кеш.
// Получение снимка у провайдера и классификация выполняются только
// когда закешированное значение отсутствует или устарело.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/platemate/entitlement-reconciler/internal/lib/sl"
	"github.com/platemate/entitlement-reconciler/internal/models"
	"github.com/platemate/entitlement-reconciler/internal/services/classifier"
)

// SnapshotReader описывает получение свежего снимка entitlement'ов.
type SnapshotReader interface {
	Fetch(ctx context.Context, userUID string) (models.EntitlementSnapshot, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// AuditRepository описывает журнал сверок в хранилище.
type AuditRepository interface {
	SaveReconciliation(ctx context.Context, rec models.Reconciliation) (int, error)
}

// StatusService отдаёт статус подписки пользователя, пряча за собой
// кеш, снимок провайдера и классификатор.
//
// Get никогда не возвращает ошибку: любой отказ (провайдер недоступен,
// снимок нарушает контракт, кеш лёг) деградирует к fail-closed статусу
// free. UI не должен обрабатывать ошибку, чтобы отрисовать бейдж подписки,
// и при неопределённости доступ к премиум-функциям закрывается, а не
// открывается.
type StatusService struct {
	reader   SnapshotReader
	cache    Cache
	audit    AuditRepository
	rules    classifier.Rules
	validity time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// New создает новый StatusService. Часы инжектируются для тестов.
func New(reader SnapshotReader, cache Cache, audit AuditRepository,
	rules classifier.Rules, validity time.Duration, now func() time.Time, log *slog.Logger) *StatusService {
	return &StatusService{
		reader:   reader,
		cache:    cache,
		audit:    audit,
		rules:    rules,
		validity: validity,
		now:      now,
		log:      log,
	}
}

func cacheKey(userUID string) string {
	return fmt.Sprintf("status:%s", userUID)
}

// Get возвращает статус подписки: из кеша, если значение ещё действительно,
// иначе через свежую сверку. Гонка двух Get на устаревшем кеше допустима:
// оба сходят к провайдеру, это дешевле распределённой блокировки.
func (s *StatusService) Get(ctx context.Context, userUID string) models.SubscriptionStatus {
	const op = "status.Get"
	key := cacheKey(userUID)

	var cached models.CachedStatus
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read status cache", slog.String("op", op), sl.UID(userUID), sl.Err(err))
	}
	if found && s.now().Sub(cached.ComputedAt) < s.validity {
		return cached.Status
	}

	return s.reconcile(ctx, userUID)
}

// Refresh принудительно инвалидирует кеш и выполняет сверку заново.
func (s *StatusService) Refresh(ctx context.Context, userUID string) models.SubscriptionStatus {
	if err := s.Invalidate(ctx, userUID); err != nil {
		s.log.Warn("failed to invalidate status cache", sl.UID(userUID), sl.Err(err))
	}
	return s.reconcile(ctx, userUID)
}

// Invalidate сбрасывает закешированный статус. Вызывается сразу после
// любого действия, меняющего entitlement'ы (покупка, восстановление,
// продление), чтобы следующий Get увидел свежие данные.
func (s *StatusService) Invalidate(ctx context.Context, userUID string) error {
	return s.cache.Invalidate(ctx, cacheKey(userUID))
}

// HasPremiumAccess — проверка доступа к премиум-функциям для
// feature-гейтов. При любой неопределённости возвращает false.
func (s *StatusService) HasPremiumAccess(ctx context.Context, userUID string) bool {
	return s.Get(ctx, userUID).HasPremiumAccess
}

func (s *StatusService) reconcile(ctx context.Context, userUID string) models.SubscriptionStatus {
	const op = "status.reconcile"
	now := s.now()

	snap, err := s.reader.Fetch(ctx, userUID)
	if err != nil {
		// Fail-closed: провайдер недоступен — доступ закрыт, без ошибки наверх.
		// Фоллбек не кешируется, чтобы восстановление провайдера
		// не ждало истечения окна валидности.
		s.log.Warn("snapshot fetch failed, serving fail-closed status",
			slog.String("op", op), sl.UID(userUID), sl.Err(err))
		return models.FreeStatus()
	}

	result, err := classifier.Classify(snap, now, s.rules)
	if err != nil {
		if errors.Is(err, classifier.ErrInvariantViolation) {
			s.log.Error("snapshot violates classification contract",
				slog.String("op", op), sl.UID(userUID), sl.Err(err))
		}
		return models.FreeStatus()
	}

	if err := s.cache.Set(ctx, cacheKey(userUID), models.CachedStatus{
		Status:     result,
		ComputedAt: now,
	}, s.validity); err != nil {
		s.log.Warn("failed to cache status", slog.String("op", op), sl.UID(userUID), sl.Err(err))
	}

	if _, err := s.audit.SaveReconciliation(ctx, models.Reconciliation{
		UserUID:       userUID,
		Tier:          result.Tier,
		TrialKind:     result.TrialKind,
		DaysRemaining: result.DaysRemaining,
		CanExtend:     result.CanExtendOrUpgrade,
		ComputedAt:    now,
	}); err != nil {
		s.log.Warn("failed to record reconciliation", slog.String("op", op), sl.UID(userUID), sl.Err(err))
	}

	return result
}
