package dnswire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const headerSize = 12

// DNS type/class constants this server recognizes. Anything else is
// either rejected at parse time (wrong class) or answered with
// NOERROR/ANCOUNT=0 (unsupported type on a known name).
const (
	TypeA   uint16 = 1
	TypeTXT uint16 = 16

	ClassIN uint16 = 1
)

// RCODE values used by the response builder.
const (
	RCodeNoError  uint16 = 0
	RCodeServFail uint16 = 2
	RCodeNXDomain uint16 = 3
)

var (
	// ErrPacketTooShort indicates fewer than 12 bytes (the fixed header size).
	ErrPacketTooShort = errors.New("dnswire: packet shorter than DNS header")

	// ErrNotAQuery indicates the QR bit was already set (a response, not a query).
	ErrNotAQuery = errors.New("dnswire: packet is a response, not a query")

	// ErrUnsupportedOpcode indicates a non-zero (non-QUERY) opcode.
	ErrUnsupportedOpcode = errors.New("dnswire: unsupported opcode")

	// ErrWrongQuestionCount indicates QDCOUNT != 1.
	ErrWrongQuestionCount = errors.New("dnswire: query must have exactly one question")

	// ErrUnsupportedClass indicates QCLASS != IN.
	ErrUnsupportedClass = errors.New("dnswire: unsupported query class")
)

// Question is a single DNS question section entry.
type Question struct {
	QName  string
	QType  uint16
	QClass uint16
}

// QueryInfo is everything the response builder needs from a parsed query.
type QueryInfo struct {
	TransactionID uint16
	Question      Question
}

// ParseQuery validates and parses a single-question, standard-query,
// class-IN DNS query packet: it checks length, QR bit clear, opcode 0,
// QDCOUNT == 1, a cleanly decodable QNAME with 4 trailing bytes for
// QTYPE/QCLASS, and QCLASS == IN, in that order. The first failing
// precondition aborts with an error; ANCOUNT/NSCOUNT/ARCOUNT in the query
// are ignored.
func ParseQuery(packet []byte) (*QueryInfo, error) {
	if len(packet) < headerSize {
		return nil, ErrPacketTooShort
	}

	transactionID := binary.BigEndian.Uint16(packet[0:2])
	flags := binary.BigEndian.Uint16(packet[2:4])
	qdCount := binary.BigEndian.Uint16(packet[4:6])

	if flags&0x8000 != 0 {
		return nil, ErrNotAQuery
	}

	opcode := (flags >> 11) & 0x0F
	if opcode != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedOpcode, opcode)
	}

	if qdCount != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrWrongQuestionCount, qdCount)
	}

	offset := headerSize
	qname, n, err := DecodeName(packet, offset)
	if err != nil {
		return nil, fmt.Errorf("dnswire: QNAME: %w", err)
	}
	offset += n

	if len(packet) < offset+4 {
		return nil, fmt.Errorf("%w: missing QTYPE/QCLASS", ErrPacketTooShort)
	}
	qtype := binary.BigEndian.Uint16(packet[offset : offset+2])
	qclass := binary.BigEndian.Uint16(packet[offset+2 : offset+4])

	if qclass != ClassIN {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedClass, qclass)
	}

	return &QueryInfo{
		TransactionID: transactionID,
		Question: Question{
			QName:  qname,
			QType:  qtype,
			QClass: qclass,
		},
	}, nil
}
