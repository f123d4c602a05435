package udpserver

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dnsscience/tagdnsd/internal/dnswire"
)

// Metrics bundles the counters/gauges the UDP loop updates once per
// datagram. None of it is consulted when building a response — it exists
// purely for external observability.
type Metrics struct {
	queriesTotal    prometheus.Counter
	parseErrsTotal  prometheus.Counter
	responsesTotal  *prometheus.CounterVec
	recordTableSize prometheus.Gauge
}

// NewMetrics constructs and registers the tagdnsd_* collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagdnsd_queries_total",
			Help: "Total UDP datagrams received on the DNS listener.",
		}),
		parseErrsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tagdnsd_parse_errors_total",
			Help: "Total datagrams that failed DNS query parsing.",
		}),
		responsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tagdnsd_responses_total",
			Help: "Total responses built, including any whose send failed, labeled by RCODE.",
		}, []string{"rcode"}),
		recordTableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tagdnsd_record_table_size",
			Help: "Number of distinct tags currently served.",
		}),
	}
	reg.MustRegister(m.queriesTotal, m.parseErrsTotal, m.responsesTotal, m.recordTableSize)
	return m
}

// Inc implements Counter for queriesTotal.
func (m *Metrics) Inc() { m.queriesTotal.Inc() }

// IncRCode implements RCodeCounter.
func (m *Metrics) IncRCode(rcode uint16) {
	m.responsesTotal.WithLabelValues(rcodeLabel(rcode)).Inc()
}

// ParseErrors exposes the parse-error counter as a Counter for Server.
func (m *Metrics) ParseErrors() Counter {
	return parseErrCounter{m}
}

type parseErrCounter struct{ m *Metrics }

func (p parseErrCounter) Inc() { p.m.parseErrsTotal.Inc() }

// SetRecordTableSize publishes the table size gauge once at startup.
func (m *Metrics) SetRecordTableSize(n int) {
	m.recordTableSize.Set(float64(n))
}

func rcodeLabel(rcode uint16) string {
	switch rcode {
	case dnswire.RCodeNoError:
		return "noerror"
	case dnswire.RCodeNXDomain:
		return "nxdomain"
	case dnswire.RCodeServFail:
		return "servfail"
	default:
		return "other"
	}
}
