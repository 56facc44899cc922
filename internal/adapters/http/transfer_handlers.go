package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/timkado/api/paramem-service/internal/domain"
)

// TransferOperations is the application surface the gateway exposes.
type TransferOperations interface {
	CommissionCalculate(ctx context.Context, amount, transferType, accountID string) (*domain.Result, error)
	TransferableAmountCalculate(ctx context.Context, transferType, accountID string) (*domain.Result, error)
	EFTStart(ctx context.Context, params map[string]any) (*domain.Result, error)
}

// CommissionRequest is the payload for POST /v1/transfers/commission.
type CommissionRequest struct {
	Amount       string `json:"amount"`
	TransferType string `json:"transferType,omitempty"`
	AccountID    string `json:"accountId,omitempty"`
}

// CommissionHandler forwards a commission calculation to the provider.
func CommissionHandler(ops TransferOperations, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			logger.Warn(r.Context(), "Invalid method for commission endpoint", "method", r.Method)
			domain.NewErrorResponse(domain.ErrMethodNotAllowed, "Method not allowed", "Only POST method is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
			return
		}

		var req CommissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn(r.Context(), "Failed to decode commission payload", "error", err.Error())
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if req.Amount == "" {
			writeError(w, r, logger, &domain.ValidationError{Field: "amount"})
			return
		}

		res, err := ops.CommissionCalculate(r.Context(), req.Amount, req.TransferType, req.AccountID)
		writeOutcome(w, r, logger, res, err)
	}
}

// TransferableAmountHandler reads transferType and accountId from the query string.
func TransferableAmountHandler(ops TransferOperations, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			logger.Warn(r.Context(), "Invalid method for transferable amount endpoint", "method", r.Method)
			domain.NewErrorResponse(domain.ErrMethodNotAllowed, "Method not allowed", "Only GET method is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		res, err := ops.TransferableAmountCalculate(r.Context(), q.Get("transferType"), q.Get("accountId"))
		writeOutcome(w, r, logger, res, err)
	}
}

// EFTStartHandler passes the JSON object through as EFT parameters.
// Numbers are kept as written by the caller.
func EFTStartHandler(ops TransferOperations, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			logger.Warn(r.Context(), "Invalid method for EFT endpoint", "method", r.Method)
			domain.NewErrorResponse(domain.ErrMethodNotAllowed, "Method not allowed", "Only POST method is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var params map[string]any
		if err := dec.Decode(&params); err != nil {
			logger.Warn(r.Context(), "Failed to decode EFT payload", "error", err.Error())
			domain.NewErrorResponse(domain.ErrBadRequest, "Invalid request payload", err.Error()).WriteJSON(w, http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		res, err := ops.EFTStart(r.Context(), params)
		writeOutcome(w, r, logger, res, err)
	}
}

// writeOutcome renders a Result in its JSON shape. Provider failures reach the
// caller in the same shape whichever error mode the client runs in.
func writeOutcome(w http.ResponseWriter, r *http.Request, logger domain.Logger, res *domain.Result, err error) {
	if err != nil {
		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) {
			writeError(w, r, logger, err)
			return
		}
		res = apiErr.Result()
	}
	if res == nil {
		writeError(w, r, logger, errors.New("empty result"))
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = failureStatus(res.Kind)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		logger.Error(r.Context(), "Failed to encode transfer response", "error", err.Error())
	}
}

func failureStatus(kind domain.ErrorKind) int {
	if kind == domain.ErrorKindTransport {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func writeError(w http.ResponseWriter, r *http.Request, logger domain.Logger, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		logger.Warn(r.Context(), "Transfer request missing parameter", "field", vErr.Field)
		domain.NewErrorResponse(domain.ErrMissingParameter, vErr.Error(), vErr.Field).WriteJSON(w, http.StatusUnprocessableEntity)
		return
	}
	logger.Error(r.Context(), "Transfer request failed", "error", err.Error())
	domain.NewErrorResponse(domain.ErrInternal, "An unexpected error occurred.", "Internal server error.").WriteJSON(w, http.StatusInternalServerError)
}
