package dnswire

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/dnsscience/tagdnsd/internal/records"
)

// answerTTL is the fixed TTL stamped on every answer record — this server
// never negotiates or varies TTL per record.
const answerTTL uint32 = 60

// maxTXTCharString is the largest a single DNS character-string (the
// length-prefixed payload of a TXT RDATA) can be.
const maxTXTCharString = 255

// BuildResponse looks up the query's QNAME in table and constructs the
// full response packet: header, echoed question, and zero-or-one answer.
// Every response has QDCOUNT=1 and echoes the original question's
// QNAME/QTYPE/QCLASS exactly, regardless of RCODE.
//
// The QNAME is re-encoded from the decoded dotted form when building both
// the question and the answer sections, rather than copying the original
// bytes verbatim. This is intentional and preserved from how the answer
// builder has always worked here: it's observable only for unusual-but-
// legal original encodings, such as a label that itself contains a '.'
// byte, which re-encoding splits into two labels. Case is preserved.
func BuildResponse(query *QueryInfo, table *records.Table) ([]byte, error) {
	lookupKey := normalizeQName(query.Question.QName)
	entry, found := table.Lookup(lookupKey)

	var rcode uint16
	var answerCount uint16
	var answerSection []byte

	switch {
	case !found:
		rcode = RCodeNXDomain

	case query.Question.QType == TypeA:
		nameBytes, err := EncodeName(query.Question.QName)
		if err != nil {
			return nil, err
		}
		answerSection = buildAnswerHeader(nameBytes, TypeA, answerTTL, 4)
		answerSection = append(answerSection, entry.IP.To4()...)
		answerCount = 1

	case query.Question.QType == TypeTXT:
		payload := []byte(entry.IP.String() + ":" + strconv.Itoa(int(entry.Port)))
		if len(payload) > maxTXTCharString {
			rcode = RCodeServFail
			break
		}
		nameBytes, err := EncodeName(query.Question.QName)
		if err != nil {
			return nil, err
		}
		rdlength := 1 + len(payload)
		answerSection = buildAnswerHeader(nameBytes, TypeTXT, answerTTL, uint16(rdlength))
		answerSection = append(answerSection, byte(len(payload)))
		answerSection = append(answerSection, payload...)
		answerCount = 1

	default:
		// Known name, unsupported type: NOERROR with no answer, so the
		// negative result can still be cached by the asking resolver.
		rcode = RCodeNoError
	}

	return assembleResponse(query, rcode, answerCount, answerSection)
}

// normalizeQName strips at most one trailing dot and lowercases ASCII,
// matching the normalization records.Build applies to configured tags.
func normalizeQName(qname string) string {
	qname = strings.TrimSuffix(qname, ".")
	return strings.ToLower(qname)
}

func buildAnswerHeader(nameBytes []byte, rrType uint16, ttl uint32, rdlength uint16) []byte {
	var b []byte
	b = append(b, nameBytes...)
	b = append(b, beUint16(rrType)...)
	b = append(b, beUint16(ClassIN)...)
	b = append(b, beUint32(ttl)...)
	b = append(b, beUint16(rdlength)...)
	return b
}

func assembleResponse(query *QueryInfo, rcode uint16, answerCount uint16, answerSection []byte) ([]byte, error) {
	var resp []byte

	resp = append(resp, beUint16(query.TransactionID)...)
	flags := uint16(0x8400) | (rcode & 0x000F) // QR=1, AA=1, RCODE
	resp = append(resp, beUint16(flags)...)
	resp = append(resp, beUint16(1)...)           // QDCOUNT
	resp = append(resp, beUint16(answerCount)...) // ANCOUNT
	resp = append(resp, beUint16(0)...)           // NSCOUNT
	resp = append(resp, beUint16(0)...)           // ARCOUNT

	questionNameBytes, err := EncodeName(query.Question.QName)
	if err != nil {
		return nil, err
	}
	resp = append(resp, questionNameBytes...)
	resp = append(resp, beUint16(query.Question.QType)...)
	resp = append(resp, beUint16(query.Question.QClass)...)

	resp = append(resp, answerSection...)
	return resp, nil
}

func beUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func beUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
