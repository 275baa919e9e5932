package webapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/rs/zerolog/log"
)

var httpCodeForError = map[clerk.ErrorCode]int{
	clerk.BadRequest:       400,
	clerk.ValidationFailed: 400,
	clerk.NotFound:         404,
	clerk.FetchFailed:      502,
	clerk.NotAvailable:     503,
	clerk.UnknownError:     500,
}

func HttpStatusForError(code clerk.ErrorCode) int {
	status, found := httpCodeForError[code]
	if !found {
		status = http.StatusInternalServerError
	}
	return status
}

func sendResponse(w http.ResponseWriter, payload any) {
	// note: w.Header after this, so we can call sendError
	b, err := json.Marshal(payload)
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, clerk.UnknownError, fmt.Sprintf("in json.Marshal: %s", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store") // do not cache (Browsers cache GET forever by default)
	w.Write(b)
}

func sendBadRequest(w http.ResponseWriter, message string) {
	sendErrorResponse(w, http.StatusBadRequest, clerk.BadRequest, message)
}

func sendError(w http.ResponseWriter, where string, err error) {
	var info *clerk.ErrorInfo
	if errors.As(err, &info) {
		status := HttpStatusForError(info.Code)
		message := fmt.Sprintf("%s: %s", where, info.Error())
		sendErrorResponse(w, status, info.Code, message)
	} else {
		message := fmt.Sprintf("%s: %s", where, err.Error())
		sendErrorResponse(w, http.StatusInternalServerError, clerk.UnknownError, message)
	}
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, code clerk.ErrorCode, message string) {
	log.Warn().Str("component", "WebAPI").Str("code", string(code)).Int("status", statusCode).Msg(message)
	// would prefer to use json.Marshal, but this avoids the need
	// to handle encoding errors arising from json.Marshal itself!
	payload := fmt.Sprintf("{\"error\":{\"code\":%q,\"message\":%q}}", code, message)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store") // do not cache (Browsers cache GET forever by default)
	w.WriteHeader(statusCode)
	w.Write([]byte(payload))
}

// parseAddress reads a base58 address path or query value; empty means
// the zero address when optional.
func parseAddress(value string, optional bool) (clerk.Address, error) {
	if value == "" && optional {
		return clerk.Address{}, nil
	}
	a, err := clerk.ParseAddress(value)
	if err != nil {
		return clerk.Address{}, clerk.NewErr(clerk.BadRequest, "invalid address %q: %v", value, err)
	}
	return a, nil
}

// decodeBody reads a JSON request body into out; an empty body leaves out
// unchanged. Sends a 400 and returns false on error.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendBadRequest(w, "cannot read request body")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return false
	}
	return true
}
