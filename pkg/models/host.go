package models

import (
	"encoding/binary"
	"net"
)

// HostRecord is a live host found during a scan pass. Records are keyed by
// IPv4 address and never modified after construction.
type HostRecord struct {
	IPv4 string `json:"ipv4" example:"192.168.1.10"`
	MAC  string `json:"mac" example:"aa:bb:cc:dd:ee:ff"`
}

// NewHostRecord returns a record with the MAC normalized to lowercase
// colon-separated form. Unparseable MACs are kept as given.
func NewHostRecord(ip, mac string) HostRecord {
	if hw, err := net.ParseMAC(mac); err == nil {
		mac = hw.String()
	}
	return HostRecord{IPv4: ip, MAC: mac}
}

// IPv4Value returns the big-endian 32-bit value of a dotted-quad address.
// The second result is false if s is not an IPv4 address.
func IPv4Value(s string) (uint32, bool) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(ip), true
}

// CanonicalIPv4 returns s in dotted-quad form, so "::ffff:10.0.0.5" and
// "10.0.0.5" yield the same key. Non-IPv4 strings are returned unchanged.
func CanonicalIPv4(s string) string {
	if ip := net.ParseIP(s).To4(); ip != nil {
		return ip.String()
	}
	return s
}

// CompareIPv4 orders two addresses by numeric value. Strings that do not
// parse as IPv4 sort after every valid address, then lexically.
func CompareIPv4(a, b string) int {
	av, aok := IPv4Value(a)
	bv, bok := IPv4Value(b)
	switch {
	case aok && bok:
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
