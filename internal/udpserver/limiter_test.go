package udpserver

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestPerSourceLimiterAllowsUpToBurst(t *testing.T) {
	l := newPerSourceLimiter(rate.Limit(1), 2)
	ip := net.ParseIP("192.0.2.1")

	assert.True(t, l.allow(ip))
	assert.True(t, l.allow(ip))
	assert.False(t, l.allow(ip))
}

func TestPerSourceLimiterTracksSourcesIndependently(t *testing.T) {
	l := newPerSourceLimiter(rate.Limit(1), 1)
	first := net.ParseIP("192.0.2.1")
	second := net.ParseIP("192.0.2.2")

	assert.True(t, l.allow(first))
	assert.False(t, l.allow(first))
	assert.True(t, l.allow(second))
}
