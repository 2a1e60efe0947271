package models

import (
	"fmt"
	"slices"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCompleted, ReservationCancelled},
	ReservationCancelled: {},
	ReservationCompleted: {},
}

func ParseReservationStatus(s string) (ReservationStatus, error) {
	status := ReservationStatus(s)
	if _, ok := reservationTransitions[status]; !ok {
		return "", fmt.Errorf("invalid reservation status: %s", s)
	}
	return status, nil
}

func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	return slices.Contains(reservationTransitions[s], target)
}

func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

// Blocks reports whether a reservation in this status occupies its slot.
func (s ReservationStatus) Blocks() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

func (s ReservationStatus) String() string {
	return string(s)
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPendingValidation PaymentStatus = "PENDING_VALIDATION"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:           {PaymentCompleted, PaymentFailed},
	PaymentPendingValidation: {PaymentCompleted, PaymentFailed},
	PaymentCompleted:         {PaymentRefunded},
	PaymentFailed:            {},
	PaymentRefunded:          {},
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := paymentTransitions[status]; !ok {
		return "", fmt.Errorf("invalid payment status: %s", s)
	}
	return status, nil
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	return slices.Contains(paymentTransitions[s], target)
}

func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

// Deletable reports whether a payment in this status may be removed without
// losing a settled or in-flight record.
func (s PaymentStatus) Deletable() bool {
	return s == PaymentFailed || s == PaymentPendingValidation
}

func (s PaymentStatus) String() string {
	return string(s)
}

type Channel string

const (
	ChannelGateway        Channel = "GATEWAY"
	ChannelMobileTransfer Channel = "MOBILE_TRANSFER"
	ChannelPeerTransfer   Channel = "PEER_TRANSFER"
	ChannelCash           Channel = "CASH"
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelGateway, ChannelMobileTransfer, ChannelPeerTransfer, ChannelCash:
		return c, nil
	}
	return "", fmt.Errorf("invalid payment channel: %s", s)
}

// IsManual reports whether payments on this channel need staff validation.
func (c Channel) IsManual() bool {
	return c != ChannelGateway
}

// InitialStatus is the status a new payment on this channel starts in.
func (c Channel) InitialStatus() PaymentStatus {
	if c.IsManual() {
		return PaymentPendingValidation
	}
	return PaymentPending
}

func (c Channel) String() string {
	return string(c)
}
