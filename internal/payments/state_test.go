package payments

import (
	"testing"
	"time"

	"github.com/codr1/Padelicious/internal/models"
)

func payment(id int64, status models.PaymentStatus, age time.Duration) models.Payment {
	base := time.Date(2030, time.March, 4, 12, 0, 0, 0, time.UTC)
	return models.Payment{ID: id, Status: status, CreatedAt: base.Add(-age)}
}

func TestFundingStateOf(t *testing.T) {
	tests := []struct {
		name     string
		payments []models.Payment
		want     FundingState
	}{
		{name: "no payments", want: FundingUnpaid},
		{
			name:     "completed wins",
			payments: []models.Payment{payment(1, models.PaymentFailed, 0), payment(2, models.PaymentCompleted, time.Hour)},
			want:     FundingPaid,
		},
		{
			name:     "pending validation",
			payments: []models.Payment{payment(1, models.PaymentFailed, time.Hour), payment(2, models.PaymentPendingValidation, 0)},
			want:     FundingAwaitingValidation,
		},
		{
			name:     "gateway pending",
			payments: []models.Payment{payment(1, models.PaymentPending, 0)},
			want:     FundingAwaitingValidation,
		},
		{
			name:     "latest failed",
			payments: []models.Payment{payment(1, models.PaymentFailed, time.Hour), payment(2, models.PaymentFailed, 0)},
			want:     FundingFailedRetryable,
		},
		{
			name:     "refunded only",
			payments: []models.Payment{payment(1, models.PaymentRefunded, 0)},
			want:     FundingUnpaid,
		},
		{
			name:     "latest refunded after failure",
			payments: []models.Payment{payment(1, models.PaymentFailed, time.Hour), payment(2, models.PaymentRefunded, 0)},
			want:     FundingUnpaid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FundingStateOf(tc.payments); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestLatestPaymentBreaksTiesByID(t *testing.T) {
	a := payment(1, models.PaymentCompleted, 0)
	b := payment(2, models.PaymentFailed, 0)
	latest, ok := latestPayment([]models.Payment{b, a})
	if !ok || latest.ID != 2 {
		t.Fatalf("expected payment 2, got %+v", latest)
	}
}
