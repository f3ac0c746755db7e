// Command mocksource serves a result list the way the local results source
// does, for running the relay without timing software.
package main

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/mux"
	"github.com/n0needt0/go-goodies/log"
	"github.com/spf13/pflag"
)

const (
	resultsReport = "ResultsIof30Xml"

	emptyResultList = `<?xml version="1.0" encoding="UTF-8"?>
<ResultList xmlns="http://www.orienteering.org/datastandard/3.0" iofVersion="3.0">
  <Event>
    <Name>Mock event</Name>
  </Event>
</ResultList>
`
)

// source answers with the empty result list until resultsAfter requests
// have been served, then with the configured results.
type source struct {
	mu           sync.Mutex
	served       int
	resultsAfter int
	results      []byte
}

func (s *source) next() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.served++
	if s.results == nil || s.served <= s.resultsAfter {
		return []byte(emptyResultList)
	}
	return s.results
}

func newRouter(s *source) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/reports/{report}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["report"] != resultsReport {
			http.NotFound(w, r)
			return
		}
		log.Debugf("serving results to %s", r.UserAgent())
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.Write(s.next())
	}).Methods("GET")

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return r
}

func main() {
	port := pflag.Int("port", 8080, "port to listen on")
	file := pflag.String("file", "", "IOF 3.0 result list to serve (default: an empty result list)")
	after := pflag.Int("results-after", 0, "serve the empty list for this many requests first")
	pflag.Parse()

	s := &source{resultsAfter: *after}
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", *file, err)
		}
		s.results = data
	}

	addr := fmt.Sprintf(":%d", *port)
	log.Infof("mock source listening on %s", addr)
	if err := http.ListenAndServe(addr, newRouter(s)); err != nil {
		log.Fatalf("mock source failed: %v", err)
	}
}
