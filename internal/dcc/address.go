// Package dcc implements the Direct Client-to-Client proxy: short-lived
// TCP relays between the local client and a remote IRC peer for CHAT and
// SEND, with the in-band CTCP address rewritten to the proxy's own
// address.
package dcc

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
)

// EncodeAddress renders ip as the decimal unsigned 32-bit integer the DCC
// convention uses in CTCP tokens. The source converts the address via
// ntohl before formatting it with a plain decimal conversion; the
// resulting value is numerically identical to the big-endian (network
// byte order) interpretation of the four octets, e.g. 203.0.113.7 encodes
// as 3405803783.
func EncodeAddress(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// EncodeAddressString is EncodeAddress rendered as a decimal string, the
// form CTCP DCC tokens actually carry.
func EncodeAddressString(ip net.IP) string {
	return strconv.FormatUint(uint64(EncodeAddress(ip)), 10)
}

// DecodeAddress parses a DCC decimal address token back into an IPv4
// address.
func DecodeAddress(token string) (net.IP, error) {
	v, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parsing DCC address %q: %w", token, err)
	}
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return net.IP(b), nil
}
