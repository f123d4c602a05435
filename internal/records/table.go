// Package records turns the walker's flat ExtractedInfo list into the
// immutable lookup table the DNS response builder queries.
package records

import (
	"fmt"
	"log"
	"net"
	"sort"
	"strings"

	"github.com/dchest/siphash"

	"github.com/dnsscience/tagdnsd/internal/configpb"
)

// Entry is the value side of the Table map: the IPv4 address and port
// configured for a tag.
type Entry struct {
	IP   net.IP // always a 4-byte (IPv4) address
	Port uint16
}

// Table is the immutable-after-construction tag -> (IPv4, port) lookup
// built once at startup and shared read-only by the server loop.
type Table struct {
	entries     map[string]Entry
	fingerprint uint64
}

// Build validates and normalizes a walker's output into a Table.
//
// For each ExtractedInfo: the ip string is parsed as dotted-quad IPv4; on
// failure the whole entry is dropped with a warning, not aborted. port is
// narrowed from int32 to uint16 by plain Go conversion, which wraps
// two's-complement on overflow — values outside [0, 65535] silently wrap
// rather than erroring.
//
// Each tag is normalized (ASCII-lowercased, one trailing dot stripped)
// before insertion; a later record wins over an earlier one for the same
// normalized tag, with a warning logged at the overwrite.
func Build(extracted []configpb.ExtractedInfo) (*Table, error) {
	t := &Table{entries: make(map[string]Entry)}

	for _, info := range extracted {
		ip := net.ParseIP(info.IP).To4()
		if ip == nil {
			log.Printf("records: skipping entry for tags %v: %q is not a valid IPv4 address", info.Tags, info.IP)
			continue
		}

		port := uint16(info.Port)
		entry := Entry{IP: ip, Port: port}

		for _, tag := range info.Tags {
			key := normalizeTag(tag)
			if key == "" {
				continue
			}
			if _, exists := t.entries[key]; exists {
				log.Printf("records: tag %q redefined, latest configuration wins", key)
			}
			t.entries[key] = entry
		}
	}

	t.fingerprint = t.computeFingerprint()
	return t, nil
}

// normalizeTag lowercases (ASCII case folding) and strips at most one
// trailing dot, matching the lookup-key normalization the response
// builder applies to an incoming QNAME.
func normalizeTag(tag string) string {
	tag = strings.TrimSuffix(tag, ".")
	return strings.ToLower(tag)
}

// Lookup returns the entry for a normalized tag key and whether it exists.
func (t *Table) Lookup(key string) (Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Len returns the number of distinct tags served.
func (t *Table) Len() int {
	return len(t.entries)
}

// Fingerprint returns a SipHash-2-4 digest over the table's sorted
// (tag, ip, port) tuples. It never affects lookup or response bytes; it
// exists purely for log correlation. The key is drawn fresh per process,
// so fingerprints are comparable only between tables built in the same
// process.
func (t *Table) Fingerprint() uint64 {
	return t.fingerprint
}

// fingerprintKey is process-random so the fingerprint cannot be used to
// probe configuration contents across restarts of a different process.
var fingerprintKey = randomSipHashKey()

func (t *Table) computeFingerprint() uint64 {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		e := t.entries[k]
		fmt.Fprintf(&sb, "%s=%s:%d;", k, e.IP.String(), e.Port)
	}

	return siphash.Hash(fingerprintKey[0], fingerprintKey[1], []byte(sb.String()))
}
