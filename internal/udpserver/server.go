// Package udpserver runs the synchronous UDP query loop: bind, then
// receive-parse-build-send, one datagram at a time, forever.
package udpserver

import (
	"context"
	"errors"
	"log"
	"net"

	"golang.org/x/time/rate"

	"github.com/dnsscience/tagdnsd/internal/dnswire"
	"github.com/dnsscience/tagdnsd/internal/eventbus"
	"github.com/dnsscience/tagdnsd/internal/records"
)

const recvBufferSize = 512

// Config controls optional ambient behavior around the core query loop.
// None of these fields change a single DNS response byte.
type Config struct {
	Addr string // e.g. "0.0.0.0:53"

	// RateLimitPerSecond and RateLimitBurst configure a per-source-IP
	// token bucket. RateLimitPerSecond <= 0 disables rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int

	Bus *eventbus.Bus // may be nil
}

// Server owns the UDP socket and the record table it answers from. It is
// built once, Run once; there is no reload or restart primitive.
type Server struct {
	cfg   Config
	table *records.Table
	conn  *net.UDPConn

	limiter   *perSourceLimiter
	queries   Counter
	responses RCodeCounter
	parseErrs Counter
}

// Counter is the minimal interface Server needs from a metric counter, so
// this package does not import the Prometheus client directly.
type Counter interface {
	Inc()
}

// RCodeCounter records a response by its RCODE label.
type RCodeCounter interface {
	IncRCode(rcode uint16)
}

// noopCounter discards increments; used when the caller wires no metrics.
type noopCounter struct{}

func (noopCounter) Inc() {}

type noopRCodeCounter struct{}

func (noopRCodeCounter) IncRCode(uint16) {}

// New builds a Server bound to table. Metrics may be left nil; Run then
// records nothing beyond log lines.
func New(cfg Config, table *records.Table, queries Counter, responses RCodeCounter, parseErrs Counter) *Server {
	s := &Server{cfg: cfg, table: table, queries: queries, responses: responses, parseErrs: parseErrs}
	if s.queries == nil {
		s.queries = noopCounter{}
	}
	if s.responses == nil {
		s.responses = noopRCodeCounter{}
	}
	if s.parseErrs == nil {
		s.parseErrs = noopCounter{}
	}
	if cfg.RateLimitPerSecond > 0 {
		s.limiter = newPerSourceLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	}
	return s
}

// Listen binds the UDP socket. It must be called before Run.
func (s *Server) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", s.cfg.Addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// Close releases the socket.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Run executes the receive-parse-build-send loop until the socket is
// closed; any other receive error is logged and the loop continues. It
// never spawns a goroutine per
// query and never times out a query in flight: a bad client can only ever
// cost one synchronous iteration.
func (s *Server) Run() error {
	buf := make([]byte, recvBufferSize)

	for {
		n, clientAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isClosedConnError(err) {
				return nil
			}
			log.Printf("udpserver: recv error: %v", err)
			continue
		}

		s.queries.Inc()
		s.handleDatagram(buf[:n], clientAddr)
	}
}

func (s *Server) handleDatagram(packet []byte, clientAddr *net.UDPAddr) {
	if s.limiter != nil && !s.limiter.allow(clientAddr.IP) {
		log.Printf("udpserver: rate limit exceeded for %s, dropping", clientAddr.IP)
		return
	}

	query, err := dnswire.ParseQuery(packet)
	if err != nil {
		s.parseErrs.Inc()
		log.Printf("udpserver: parse error from %s: %v", clientAddr, err)
		if s.cfg.Bus != nil {
			s.cfg.Bus.Publish(context.Background(), eventbus.TopicQuery, eventbus.QueryEvent{})
		}
		return
	}

	response, err := dnswire.BuildResponse(query, s.table)
	if err != nil {
		log.Printf("udpserver: build response error for %s: %v", query.Question.QName, err)
		return
	}

	if _, err := s.conn.WriteToUDP(response, clientAddr); err != nil {
		log.Printf("udpserver: send error to %s: %v", clientAddr, err)
	}

	rcode := response[3] & 0x0F
	answerCount := uint16(response[6])<<8 | uint16(response[7])
	s.responses.IncRCode(uint16(rcode))

	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(context.Background(), eventbus.TopicQuery, eventbus.QueryEvent{
			Question: query.Question.QName,
			QType:    query.Question.QType,
			RCode:    uint16(rcode),
			Answered: answerCount > 0,
		})
	}
}

func isClosedConnError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
