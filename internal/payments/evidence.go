package payments

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/codr1/Padelicious/internal/apperr"
	"github.com/codr1/Padelicious/internal/models"
	"github.com/codr1/Padelicious/internal/storage"
)

type peerTransferEvidence struct {
	ProofImageKey     string `json:"proof_image_key" validate:"required,proofkey"`
	CounterpartyEmail string `json:"counterparty_email" validate:"required,email"`
	HolderName        string `json:"holder_name" validate:"required"`
}

type mobileTransferEvidence struct {
	ReferenceDigits string `json:"reference_digits" validate:"required,len=4,number"`
	Phone           string `json:"phone" validate:"required,phone"`
	Bank            string `json:"bank" validate:"required"`
}

// EvidenceValidator checks the channel-specific evidence of a payment
// submission. It performs no I/O.
type EvidenceValidator struct {
	validate *validator.Validate
	region   string
}

func NewEvidenceValidator(region string) *EvidenceValidator {
	if region == "" {
		region = "VE"
	}
	v := &EvidenceValidator{validate: validator.New(), region: strings.ToUpper(region)}
	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := v.normalizePhone(fl.Field().String())
		return err == nil
	})
	_ = v.validate.RegisterValidation("proofkey", func(fl validator.FieldLevel) bool {
		return storage.ValidKey(fl.Field().String())
	})
	return v
}

func (v *EvidenceValidator) normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, v.region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Validate returns the evidence to store for channel. Values are trimmed,
// phones are normalised to E.164, and fields the channel does not use are
// dropped.
func (v *EvidenceValidator) Validate(channel models.Channel, ev models.Evidence) (models.Evidence, error) {
	switch channel {
	case models.ChannelGateway, models.ChannelCash:
		return models.Evidence{}, nil

	case models.ChannelPeerTransfer:
		in := peerTransferEvidence{
			ProofImageKey:     strings.TrimSpace(ev.ProofImageKey),
			CounterpartyEmail: strings.TrimSpace(ev.CounterpartyEmail),
			HolderName:        strings.TrimSpace(ev.HolderName),
		}
		if err := v.validate.Struct(in); err != nil {
			return models.Evidence{}, evidenceError(err)
		}
		return models.Evidence{
			ProofImageKey:     in.ProofImageKey,
			CounterpartyEmail: strings.ToLower(in.CounterpartyEmail),
			HolderName:        in.HolderName,
		}, nil

	case models.ChannelMobileTransfer:
		in := mobileTransferEvidence{
			ReferenceDigits: strings.TrimSpace(ev.ReferenceDigits),
			Phone:           strings.TrimSpace(ev.Phone),
			Bank:            strings.TrimSpace(ev.Bank),
		}
		if err := v.validate.Struct(in); err != nil {
			return models.Evidence{}, evidenceError(err)
		}
		phone, err := v.normalizePhone(in.Phone)
		if err != nil {
			return models.Evidence{}, apperr.Validation("phone", "phone", err.Error())
		}
		return models.Evidence{
			ReferenceDigits: in.ReferenceDigits,
			Phone:           phone,
			Bank:            in.Bank,
		}, nil
	}
	return models.Evidence{}, apperr.Validation("channel", "invalid_channel", fmt.Sprintf("unsupported channel %q", channel))
}

// evidenceError reports the first failing field.
func evidenceError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("evidence", "invalid_evidence", err.Error())
	}
	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fe.Field() + " is required"
	case "email":
		msg = fe.Field() + " must be a valid email address"
	case "len", "number":
		msg = fe.Field() + " must be exactly 4 digits"
	case "phone":
		msg = fe.Field() + " must be a valid phone number"
	case "proofkey":
		msg = fe.Field() + " must be a key returned by the proof upload"
	default:
		msg = fe.Field() + " is invalid"
	}
	return apperr.Validation(fe.Field(), fe.Tag(), msg)
}
