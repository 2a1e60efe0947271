package dbgen

import (
	"context"
)

type Querier interface {
	CountOtherCompletedPayments(ctx context.Context, arg CountOtherCompletedPaymentsParams) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID int64) (int64, error)
	CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error)
	CreateMembershipPlan(ctx context.Context, arg CreateMembershipPlanParams) (MembershipPlan, error)
	CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error)
	CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error)
	CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error)
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	CreateUserMembership(ctx context.Context, arg CreateUserMembershipParams) (UserMembership, error)
	DeletePayment(ctx context.Context, id int64) (int64, error)
	GetActiveUserMembership(ctx context.Context, arg GetActiveUserMembershipParams) (UserMembership, error)
	GetCourt(ctx context.Context, id int64) (Court, error)
	GetMembershipPlan(ctx context.Context, id int64) (MembershipPlan, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	GetPaymentByExternalTransactionID(ctx context.Context, externalTransactionID string) (Payment, error)
	GetReservation(ctx context.Context, id int64) (Reservation, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByPhone(ctx context.Context, phone string) (User, error)
	ListActiveCourts(ctx context.Context) ([]Court, error)
	ListActiveReservationsForCourtDate(ctx context.Context, arg ListActiveReservationsForCourtDateParams) ([]Reservation, error)
	ListCourts(ctx context.Context) ([]Court, error)
	ListElapsedConfirmedReservations(ctx context.Context, arg ListElapsedConfirmedReservationsParams) ([]Reservation, error)
	ListMembershipPlans(ctx context.Context, activeOnly bool) ([]MembershipPlan, error)
	ListNotificationsForUser(ctx context.Context, arg ListNotificationsForUserParams) ([]Notification, error)
	ListPaymentsByStatus(ctx context.Context, status string) ([]Payment, error)
	ListPaymentsForReservation(ctx context.Context, reservationID int64) ([]Payment, error)
	ListReservationDetailsByStatusOnDate(ctx context.Context, arg ListReservationDetailsByStatusOnDateParams) ([]ReservationDetailRow, error)
	ListReservationsForUser(ctx context.Context, userID int64) ([]Reservation, error)
	ListStaffNotifications(ctx context.Context, limit int64) ([]Notification, error)
	ListStaffUsers(ctx context.Context) ([]User, error)
	ListUnpaidPendingReservationDetailsFrom(ctx context.Context, date string) ([]ReservationDetailRow, error)
	ListUserMemberships(ctx context.Context, userID int64) ([]ListUserMembershipsRow, error)
	MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (int64, error)
	UpdateCourt(ctx context.Context, arg UpdateCourtParams) (Court, error)
	UpdateMembershipPlan(ctx context.Context, arg UpdateMembershipPlanParams) (MembershipPlan, error)
	UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (int64, error)
	UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (int64, error)
}

var _ Querier = (*Queries)(nil)
