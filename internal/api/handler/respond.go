package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"podpal/internal/api/middleware"
	"podpal/internal/common"
	"podpal/internal/common/security"
	"podpal/internal/platform/logging"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// respondError renders err for the client and logs anything the client only
// sees as a server error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatusFromError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", "status", status, "error", err)
	}
	common.RespondWithErr(w, err)
}

// mustIdentity returns the caller set by middleware.Authenticator.
func mustIdentity(w http.ResponseWriter, r *http.Request) (security.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return identity, ok
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
