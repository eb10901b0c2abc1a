package interfaces

import (
	"context"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type pathParamKey string

// ValidateIDPathParamMiddleware parses the named path parameter as a
// positive integer id and stores it on the request context. Anything else
// cannot name an existing row, so it answers 404 with notFoundMessage.
func ValidateIDPathParamMiddleware(
	next http.Handler,
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
	param, notFoundMessage string,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.PathValue(param)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			log.WithFields(log.Fields{"param": param, "value": raw}).Debug("Rejected malformed path id")
			respondError(w, http.StatusNotFound, notFoundMessage)
			return
		}
		ctx := context.WithValue(r.Context(), pathParamKey(param), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func pathID(r *http.Request, param string) (int64, bool) {
	id, ok := r.Context().Value(pathParamKey(param)).(int64)
	return id, ok
}
