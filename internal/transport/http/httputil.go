package httptransport

import (
	"encoding/json"
	"math/big"
	"net/http"

	dErrors "tessera/pkg/domain-errors"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string       `json:"error"`
	Code  dErrors.Code `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain error codes to HTTP statuses. Uncoded errors are
// internal.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnauthorized:
		status = http.StatusForbidden
	case dErrors.CodeAlreadyExists:
		status = http.StatusConflict
	case dErrors.CodeInvalidState, dErrors.CodeAlreadyUsed:
		status = http.StatusConflict
	case dErrors.CodeInsufficientFunds, dErrors.CodeTransferFailed:
		status = http.StatusUnprocessableEntity
	case dErrors.CodeExpired:
		status = http.StatusGone
	case dErrors.CodeBadRequest:
		status = http.StatusBadRequest
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: dErrors.MessageOf(err), Code: dErrors.CodeOf(err)})
}

// decode parses the JSON request body into T.
func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	return req, true
}

// parseAmount converts the wire form of an amount (decimal string) into a
// big.Int. Amounts travel as strings because 18-decimal values do not fit
// JSON numbers.
func parseAmount(w http.ResponseWriter, raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "amount must be a decimal string"))
		return nil, false
	}
	return amount, true
}
