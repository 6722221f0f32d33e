// Package health serves the liveness and readiness probes.
package health

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/star/assetlist/internal/catalog"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz reports ready once any catalog fetch has resolved into the store.
// The body starts with "ready" and describes the latest dataset.
func Readyz(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		sum, ok := store.Summary()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("waiting for catalog data\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ready\nlatest: %s records, object types %s, fetched %s\nqueries resolved: %d\n",
			humanize.Comma(int64(sum.Records)),
			strings.Join(sum.ObjectTypes, ","),
			humanize.Time(sum.FetchedAt),
			sum.Queries,
		)
	}
}
