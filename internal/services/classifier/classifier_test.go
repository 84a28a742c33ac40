package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platemate/entitlement-reconciler/internal/models"
)

var testRules = Rules{
	InitialTrialLengthDays: 20,
	ExtendedTrialDays:      10,
	ExtensionWindowDays:    5,
	AnnualSKUSuffix:        "annual",
}

func strPtr(s string) *string                    { return &s }
func timePtr(t time.Time) *time.Time             { return &t }
func periodPtr(p models.PeriodType) *models.PeriodType { return &p }

func TestClassify_TableTests(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		snap models.EntitlementSnapshot
		want models.SubscriptionStatus
	}{
		{
			name: "новый пользователь без истории",
			snap: models.EntitlementSnapshot{},
			want: models.SubscriptionStatus{
				Tier:      models.TierFree,
				TrialKind: models.TrialKindNone,
			},
		},
		{
			name: "вернувшийся пользователь с истёкшей подпиской",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: false,
				FirstSeenDate:        timePtr(now.AddDate(-1, 0, 0)),
			},
			want: models.SubscriptionStatus{
				Tier:      models.TierFree,
				TrialKind: models.TrialKindNone,
			},
		},
		{
			// Сценарий A: начало триала, окно продления ещё не открыто
			name: "начальный триал за пределами окна продления",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -5)),
				ExpirationDate:       timePtr(now.AddDate(0, 0, 15)),
				WillRenew:            false,
				PeriodType:           periodPtr(models.PeriodTypeTrial),
			},
			want: models.SubscriptionStatus{
				Tier:               models.TierTrial,
				IsInTrial:          true,
				TrialKind:          models.TrialKindInitial,
				DaysRemaining:      15,
				CanExtendOrUpgrade: false,
				TrialEndDate:       timePtr(now.AddDate(0, 0, 15)),
				HasPremiumAccess:   true,
			},
		},
		{
			// Сценарий B: конец начального триала, продление доступно
			name: "начальный триал внутри окна продления",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -18)),
				ExpirationDate:       timePtr(now.AddDate(0, 0, 2)),
				WillRenew:            false,
				PeriodType:           periodPtr(models.PeriodTypeTrial),
			},
			want: models.SubscriptionStatus{
				Tier:               models.TierTrial,
				IsInTrial:          true,
				TrialKind:          models.TrialKindInitial,
				DaysRemaining:      2,
				CanExtendOrUpgrade: true,
				TrialEndDate:       timePtr(now.AddDate(0, 0, 2)),
				HasPremiumAccess:   true,
			},
		},
		{
			// Сценарий C: порог начального триала пройден
			name: "продлённый триал после порога",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -25)),
				ExpirationDate:       timePtr(now.AddDate(0, 0, 5)),
				WillRenew:            false,
			},
			want: models.SubscriptionStatus{
				Tier:               models.TierTrial,
				IsInTrial:          true,
				TrialKind:          models.TrialKindExtended,
				DaysRemaining:      5,
				CanExtendOrUpgrade: false,
				TrialEndDate:       timePtr(now.AddDate(0, 0, 5)),
				HasPremiumAccess:   true,
			},
		},
		{
			// Сценарий D: активная годовая подписка с продлением
			name: "оплаченная годовая подписка",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				ProductIdentifier:    strPtr("platemate_premium_annual"),
				OriginalPurchaseDate: timePtr(now.AddDate(0, -2, 0)),
				ExpirationDate:       timePtr(now.AddDate(0, 10, 0)),
				WillRenew:            true,
				PeriodType:           periodPtr(models.PeriodTypeNormal),
			},
			want: models.SubscriptionStatus{
				Tier:             models.TierPremiumAnnual,
				IsInTrial:        false,
				TrialKind:        models.TrialKindNone,
				DaysRemaining:    304,
				HasPremiumAccess: true,
			},
		},
		{
			name: "конвертирующийся триал с will_renew показывается как оплаченный",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				ProductIdentifier:    strPtr("platemate_premium_monthly"),
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -3)),
				ExpirationDate:       timePtr(now.AddDate(0, 0, 4)),
				WillRenew:            true,
				PeriodType:           periodPtr(models.PeriodTypeIntro),
			},
			want: models.SubscriptionStatus{
				Tier:             models.TierPremiumMonthly,
				IsInTrial:        false,
				TrialKind:        models.TrialKindNone,
				DaysRemaining:    4,
				HasPremiumAccess: true,
			},
		},
		{
			name: "отменённая оплаченная подписка действует до конца периода",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement:  true,
				ProductIdentifier:     strPtr("platemate_premium_monthly"),
				OriginalPurchaseDate:  timePtr(now.AddDate(0, 0, -10)),
				ExpirationDate:        timePtr(now.AddDate(0, 0, 20)),
				WillRenew:             false,
				PeriodType:            periodPtr(models.PeriodTypeNormal),
				UnsubscribeDetectedAt: timePtr(now.AddDate(0, 0, -1)),
			},
			want: models.SubscriptionStatus{
				Tier:             models.TierPremiumMonthly,
				IsInTrial:        false,
				TrialKind:        models.TrialKindNone,
				DaysRemaining:    20,
				HasPremiumAccess: true,
			},
		},
		{
			name: "триал магазина приложений",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				ProductIdentifier:    strPtr("platemate_premium_monthly"),
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -2)),
				ExpirationDate:       timePtr(now.AddDate(0, 0, 5)),
				WillRenew:            false,
				PeriodType:           periodPtr(models.PeriodTypeTrial),
				UnsubscribeDetectedAt: timePtr(now.AddDate(0, 0, -1)),
				Store:                "app_store",
			},
			want: models.SubscriptionStatus{
				Tier:               models.TierTrial,
				IsInTrial:          true,
				TrialKind:          models.TrialKindStore,
				DaysRemaining:      5,
				CanExtendOrUpgrade: false,
				TrialEndDate:       timePtr(now.AddDate(0, 0, 5)),
				HasPremiumAccess:   true,
			},
		},
		{
			name: "длинный промо-грант от поддержки",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -10)),
				ExpirationDate:       timePtr(now.AddDate(0, 0, 50)),
				WillRenew:            false,
				Store:                "promotional",
			},
			want: models.SubscriptionStatus{
				Tier:               models.TierTrial,
				IsInTrial:          true,
				TrialKind:          models.TrialKindPromotional,
				DaysRemaining:      50,
				CanExtendOrUpgrade: false,
				TrialEndDate:       timePtr(now.AddDate(0, 0, 50)),
				HasPremiumAccess:   true,
			},
		},
		{
			name: "стандартный промо-триал онбординга классифицируется как начальный",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -5)),
				ExpirationDate:       timePtr(now.AddDate(0, 0, 15)),
				WillRenew:            false,
				Store:                "promotional",
			},
			want: models.SubscriptionStatus{
				Tier:               models.TierTrial,
				IsInTrial:          true,
				TrialKind:          models.TrialKindInitial,
				DaysRemaining:      15,
				CanExtendOrUpgrade: false,
				TrialEndDate:       timePtr(now.AddDate(0, 0, 15)),
				HasPremiumAccess:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.snap, now, testRules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_SameDayBoundaryRoundsUp(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	snap := models.EntitlementSnapshot{
		HasActiveEntitlement: true,
		OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -19)),
		ExpirationDate:       timePtr(now.Add(3 * time.Hour)),
		WillRenew:            false,
		PeriodType:           periodPtr(models.PeriodTypeTrial),
	}

	got, err := Classify(snap, now, testRules)
	require.NoError(t, err)

	// Истечение через три часа — это ещё "1 день", не "0 дней, истекло"
	assert.Equal(t, 1, got.DaysRemaining)
	assert.True(t, got.IsInTrial)
	assert.True(t, got.CanExtendOrUpgrade)
}

func TestClassify_DaysRemainingMonotonic(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	snap := models.EntitlementSnapshot{
		HasActiveEntitlement: true,
		OriginalPurchaseDate: timePtr(start),
		ExpirationDate:       timePtr(start.AddDate(0, 0, 20)),
		WillRenew:            false,
		PeriodType:           periodPtr(models.PeriodTypeTrial),
	}

	prev := int(^uint(0) >> 1)
	for hour := 0; hour < 21*24; hour += 7 {
		now := start.Add(time.Duration(hour) * time.Hour)
		got, err := Classify(snap, now, testRules)
		require.NoError(t, err)
		assert.LessOrEqual(t, got.DaysRemaining, prev, "days remaining must not grow as time advances")
		assert.GreaterOrEqual(t, got.DaysRemaining, 0)
		prev = got.DaysRemaining
	}
}

func TestClassify_WillRenewNeverTrial(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	for _, pt := range []models.PeriodType{models.PeriodTypeTrial, models.PeriodTypeIntro, models.PeriodTypeNormal} {
		snap := models.EntitlementSnapshot{
			HasActiveEntitlement: true,
			ProductIdentifier:    strPtr("platemate_premium_monthly"),
			OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -5)),
			ExpirationDate:       timePtr(now.AddDate(0, 0, 10)),
			WillRenew:            true,
			PeriodType:           periodPtr(pt),
		}
		got, err := Classify(snap, now, testRules)
		require.NoError(t, err)
		assert.False(t, got.IsInTrial, "period type %s", pt)
		assert.Equal(t, models.TierPremiumMonthly, got.Tier)
	}
}

func TestClassify_CanExtendOnlyForInitialKind(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	snaps := []models.EntitlementSnapshot{
		{
			// продлённый
			HasActiveEntitlement: true,
			OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -25)),
			ExpirationDate:       timePtr(now.AddDate(0, 0, 3)),
		},
		{
			// store
			HasActiveEntitlement: true,
			OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -4)),
			ExpirationDate:       timePtr(now.AddDate(0, 0, 3)),
			PeriodType:           periodPtr(models.PeriodTypeTrial),
			UnsubscribeDetectedAt: timePtr(now.AddDate(0, 0, -1)),
			Store:                "play_store",
		},
		{
			// промо
			HasActiveEntitlement: true,
			OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -40)),
			ExpirationDate:       timePtr(now.AddDate(0, 0, 3)),
			Store:                "promotional",
		},
	}

	for _, snap := range snaps {
		got, err := Classify(snap, now, testRules)
		require.NoError(t, err)
		if got.TrialKind != models.TrialKindInitial {
			assert.False(t, got.CanExtendOrUpgrade, "kind %s", got.TrialKind)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	snap := models.EntitlementSnapshot{
		HasActiveEntitlement: true,
		OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -18)),
		ExpirationDate:       timePtr(now.AddDate(0, 0, 2)),
		PeriodType:           periodPtr(models.PeriodTypeTrial),
	}

	first, err1 := Classify(snap, now, testRules)
	second, err2 := Classify(snap, now, testRules)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestClassify_MalformedSnapshot(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		snap models.EntitlementSnapshot
	}{
		{
			name: "активный без даты покупки",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				ExpirationDate:       timePtr(now.AddDate(0, 0, 5)),
			},
		},
		{
			name: "активный без даты истечения",
			snap: models.EntitlementSnapshot{
				HasActiveEntitlement: true,
				OriginalPurchaseDate: timePtr(now.AddDate(0, 0, -5)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.snap, now, testRules)
			assert.ErrorIs(t, err, ErrInvariantViolation)
			// даже при ошибке возвращается fail-closed значение
			assert.Equal(t, models.FreeStatus(), got)
		})
	}
}
