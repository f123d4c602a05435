// Command tagdig sends a single A or TXT query at a running tagdnsd and
// prints the decoded answer. It is a development convenience, not part of
// the server process, and uses github.com/miekg/dns as a normal client
// library — the server's own wire codec never goes near this package.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/miekg/dns"
)

var (
	target  = flag.String("target", "127.0.0.1:53", "tagdnsd address")
	name    = flag.String("name", "", "name to query (required)")
	qtype   = flag.String("type", "A", "A or TXT")
	timeout = flag.Duration("timeout", 2*time.Second, "query timeout")
)

func main() {
	flag.Parse()

	if *name == "" {
		log.Fatal("tagdig: -name is required")
	}

	var queryType uint16
	switch *qtype {
	case "A":
		queryType = dns.TypeA
	case "TXT":
		queryType = dns.TypeTXT
	default:
		log.Fatalf("tagdig: unsupported type %q, only A and TXT are served", *qtype)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(*name), queryType)
	msg.RecursionDesired = false

	client := new(dns.Client)
	client.Timeout = *timeout

	resp, rtt, err := client.Exchange(msg, *target)
	if err != nil {
		log.Fatalf("tagdig: exchange with %s failed: %v", *target, err)
	}

	fmt.Printf(";; rcode: %s, rtt: %v\n", dns.RcodeToString[resp.Rcode], rtt)
	if len(resp.Answer) == 0 {
		fmt.Println(";; no answer")
		return
	}
	for _, rr := range resp.Answer {
		fmt.Println(rr.String())
	}
}
