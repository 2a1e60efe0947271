package payments

import "github.com/codr1/Padelicious/internal/models"

// FundingState is derived from a reservation's payments and never stored.
type FundingState string

const (
	FundingUnpaid             FundingState = "UNPAID"
	FundingAwaitingValidation FundingState = "AWAITING_VALIDATION"
	FundingPaid               FundingState = "PAID"
	FundingFailedRetryable    FundingState = "FAILED_RETRYABLE"
)

func (s FundingState) String() string {
	return string(s)
}

// FundingStateOf applies, in order: any COMPLETED is PAID, any PENDING or
// PENDING_VALIDATION is AWAITING_VALIDATION, a FAILED latest payment is
// FAILED_RETRYABLE, anything else is UNPAID.
func FundingStateOf(payments []models.Payment) FundingState {
	awaiting := false
	for _, p := range payments {
		switch p.Status {
		case models.PaymentCompleted:
			return FundingPaid
		case models.PaymentPending, models.PaymentPendingValidation:
			awaiting = true
		}
	}
	if awaiting {
		return FundingAwaitingValidation
	}
	if latest, ok := latestPayment(payments); ok && latest.Status == models.PaymentFailed {
		return FundingFailedRetryable
	}
	return FundingUnpaid
}

func latestPayment(payments []models.Payment) (models.Payment, bool) {
	var (
		latest models.Payment
		found  bool
	)
	for _, p := range payments {
		if !found || p.CreatedAt.After(latest.CreatedAt) ||
			(p.CreatedAt.Equal(latest.CreatedAt) && p.ID > latest.ID) {
			latest = p
			found = true
		}
	}
	return latest, found
}

func hasCompleted(payments []models.Payment) bool {
	for _, p := range payments {
		if p.Status == models.PaymentCompleted {
			return true
		}
	}
	return false
}
