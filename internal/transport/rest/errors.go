package rest

import (
	"errors"
	"net/http"

	"ahlan-reserve/internal/backend"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/render"
	"ahlan-reserve/internal/service"
)

const (
	msgInternal         = "Ichki xatolik yuz berdi"
	msgUnauthorized     = "Avtorizatsiyadan o'tilmagan"
	msgSessionNotFound  = "Bron qilish sessiyasi topilmadi yoki muddati tugagan"
	msgNoContract       = "Shartnoma hali yaratilmagan"
	msgInvalidState     = "Bu amalni hozirgi holatda bajarib bo'lmaydi"
	msgSubmitInProgress = "Ma'lumotlar yuborilmoqda, iltimos kuting"
	msgPDFDisabled      = "PDF yaratish sozlanmagan"
	msgJournalDisabled  = "Jurnal sozlanmagan"
	msgNotFound         = "Ma'lumot topilmadi"
)

// statusFor maps a service error to its HTTP status and the message shown to staff.
func statusFor(err error) (int, string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Message
	}

	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, msgSessionNotFound
	case errors.Is(err, domain.ErrNoContract):
		return http.StatusNotFound, msgNoContract
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, domain.UserMessage(err, msgNotFound)
	case errors.Is(err, domain.ErrSubmitInProgress):
		return http.StatusConflict, msgSubmitInProgress
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, msgInvalidState
	case errors.Is(err, domain.ErrDataLoad):
		return http.StatusBadGateway, domain.UserMessage(err, msgInternal)
	case errors.Is(err, domain.ErrClientCreation), errors.Is(err, domain.ErrPaymentSubmission):
		// The backend answered and rejected the data: staff can fix the form.
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return http.StatusUnprocessableEntity, domain.UserMessage(err, msgInternal)
		}
		return http.StatusBadGateway, domain.UserMessage(err, msgInternal)
	case errors.Is(err, render.ErrPDFDisabled):
		return http.StatusServiceUnavailable, msgPDFDisabled
	case errors.Is(err, domain.ErrContractRender):
		return http.StatusInternalServerError, domain.UserMessage(err, msgInternal)
	case errors.Is(err, service.ErrJournalDisabled):
		return http.StatusServiceUnavailable, msgJournalDisabled
	case errors.Is(err, domain.ErrAmountOverflow),
		errors.Is(err, domain.ErrInvalidTerm),
		errors.Is(err, domain.ErrInvalidInitialPayment),
		errors.Is(err, domain.ErrInvalidInterestRate),
		errors.Is(err, domain.ErrInvalidPaymentType),
		errors.Is(err, domain.ErrClientRequired),
		errors.Is(err, domain.ErrUnknownClient),
		errors.Is(err, domain.ErrApartmentUnavailable):
		return http.StatusUnprocessableEntity, domain.UserMessage(err, err.Error())
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	Error(w, msg, status, status)
}
