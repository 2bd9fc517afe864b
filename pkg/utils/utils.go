package utils

import (
	"net"
)

func NetworksOverlap(a, b net.IPNet) bool {
	return a.Contains(b.IP) || b.Contains(a.IP)
}

// HostAddress returns the address with the given last octet inside a
// /24 network.
func HostAddress(network net.IPNet, host byte) net.IP {
	ip := dupIP(network.IP.To4()).Mask(network.Mask)
	ip[len(ip)-1] = host

	return ip
}

func dupIP(ip net.IP) net.IP {
	dup := make(net.IP, len(ip))
	copy(dup, ip)
	return dup
}
