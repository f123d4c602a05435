package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dnsscience/tagdnsd/internal/configpb"
	"github.com/dnsscience/tagdnsd/internal/eventbus"
	"github.com/dnsscience/tagdnsd/internal/records"
	"github.com/dnsscience/tagdnsd/internal/udpserver"
)

var configFlag = flag.String("config", "", "path to an optional daemon YAML config")

const dnsListenAddr = "0.0.0.0:53"

func main() {
	flag.Parse()

	daemonCfg, err := loadDaemonConfig(*configFlag)
	if err != nil {
		log.Fatalf("tagdnsd: loading daemon config %q: %v", *configFlag, err)
	}

	configBytes, err := os.ReadFile(daemonCfg.ConfigPath)
	if err != nil {
		log.Fatalf("tagdnsd: opening configuration file %q: %v", daemonCfg.ConfigPath, err)
	}
	if len(configBytes) == 0 {
		log.Printf("tagdnsd: configuration file %q is empty, starting with no records", daemonCfg.ConfigPath)
	}

	extracted, err := configpb.Walk(configBytes)
	if err != nil {
		log.Fatalf("tagdnsd: parsing configuration file %q: %v", daemonCfg.ConfigPath, err)
	}

	table, err := records.Build(extracted)
	if err != nil {
		log.Fatalf("tagdnsd: building record table: %v", err)
	}
	if table.Len() == 0 {
		log.Printf("tagdnsd: no valid records configured; server will answer every query NXDOMAIN")
	} else {
		log.Printf("tagdnsd: table ready, %d tags, fingerprint=%016x", table.Len(), table.Fingerprint())
	}

	bus := eventbus.New(64)

	reg := prometheus.NewRegistry()
	metrics := udpserver.NewMetrics(reg)
	metrics.SetRecordTableSize(table.Len())

	if daemonCfg.MetricsAddr != "" {
		go serveMetrics(daemonCfg.MetricsAddr, reg, table)
	}

	if daemonCfg.Verbose {
		go logQueryEvents(bus)
	}

	srv := udpserver.New(udpserver.Config{
		Addr:               dnsListenAddr,
		RateLimitPerSecond: daemonCfg.RateLimit.PerSecond,
		RateLimitBurst:     daemonCfg.RateLimit.Burst,
		Bus:                bus,
	}, table, metrics, metrics, metrics.ParseErrors())

	if err := srv.Listen(); err != nil {
		log.Fatalf("tagdnsd: binding %s: %v", dnsListenAddr, err)
	}
	log.Printf("tagdnsd: DNS server listening on %s", dnsListenAddr)

	installSignalHandler()

	if err := srv.Run(); err != nil {
		log.Fatalf("tagdnsd: server loop exited: %v", err)
	}
}

// installSignalHandler flushes a log line and exits the process on
// SIGINT/SIGTERM. The UDP loop itself has no cancellation protocol — this
// handler only keeps the process from disappearing silently in a terminal
// or under a supervisor. It exits 130 (128+SIGINT), not 0: a signal-driven
// stop is still not a clean, deliberate shutdown of the server loop.
func installSignalHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("tagdnsd: received %s, exiting", sig)
		os.Exit(130)
	}()
}

func serveMetrics(addr string, reg *prometheus.Registry, table *records.Table) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if table == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Printf("tagdnsd: metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("tagdnsd: metrics listener stopped: %v", err)
	}
}

func logQueryEvents(bus *eventbus.Bus) {
	sub := bus.Subscribe(context.Background(), eventbus.TopicQuery)
	for ev := range sub.Ch {
		q := ev.Data
		log.Printf("tagdnsd: query=%q type=%d rcode=%d answered=%v", q.Question, q.QType, q.RCode, q.Answered)
	}
}
