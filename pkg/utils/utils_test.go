package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustCIDR(t *testing.T, s string) net.IPNet {
	t.Helper()

	_, network, err := net.ParseCIDR(s)
	if err != nil {
		t.Fatal(err)
	}

	return *network
}

func Test_NetworksOverlap(t *testing.T) {
	testCases := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{
			name:     "disjoint",
			a:        "10.0.0.0/24",
			b:        "10.0.1.0/24",
			expected: false,
		},
		{
			name:     "identical",
			a:        "10.0.0.0/24",
			b:        "10.0.0.0/24",
			expected: true,
		},
		{
			name:     "nested",
			a:        "10.0.0.0/16",
			b:        "10.0.5.0/24",
			expected: true,
		},
	}

	for _, tc := range testCases {
		actual := NetworksOverlap(mustCIDR(t, tc.a), mustCIDR(t, tc.b))
		assert.Equal(t, tc.expected, actual, tc.name)
	}
}

func Test_HostAddress(t *testing.T) {
	testCases := []struct {
		network  string
		host     byte
		expected net.IP
	}{
		{
			network:  "10.0.1.0/24",
			host:     1,
			expected: net.ParseIP("10.0.1.1").To4(),
		},
		{
			network:  "192.168.7.0/24",
			host:     255,
			expected: net.ParseIP("192.168.7.255").To4(),
		},
	}

	for _, tc := range testCases {
		actual := HostAddress(mustCIDR(t, tc.network), tc.host)
		assert.Equal(t, tc.expected, actual)
	}
}
