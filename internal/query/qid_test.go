package query

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryIDRoundTripsOriginatorIP(t *testing.T) {
	ips := []net.IP{
		net.IPv4(10, 0, 0, 1),
		net.IPv4(192, 168, 1, 254),
		net.IPv4(127, 0, 0, 1),
	}
	for _, ip := range ips {
		id := NewQueryID(ip)
		got := OriginatorIP(id)
		assert.True(t, ip.To4().Equal(got), "want %s got %s", ip, got)
	}
}

func TestQueryIDsAreDistinctForSameIP(t *testing.T) {
	ip := net.IPv4(10, 0, 0, 1)
	a := NewQueryID(ip)
	b := NewQueryID(ip)
	assert.NotEqual(t, a, b)
}
