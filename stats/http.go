package stats

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omniscale/osmpipe/log"
)

// StartHttpPProf serves pprof and /metrics on bind in the background.
func StartHttpPProf(bind string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Println("[error]", http.ListenAndServe(bind, nil))
	}()
}
