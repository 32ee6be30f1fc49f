package dcc

import (
	"net"
	"testing"
)

func TestEncodeAddressMatchesSpecExample(t *testing.T) {
	got := EncodeAddress(net.ParseIP("203.0.113.7"))
	if got != 3405803783 {
		t.Errorf("EncodeAddress(203.0.113.7) = %d, want 3405803783", got)
	}
}

func TestDecodeAddressRoundTrip(t *testing.T) {
	ip := net.ParseIP("192.168.1.1").To4()
	s := EncodeAddressString(ip)
	if s != "3232235777" {
		t.Errorf("EncodeAddressString(192.168.1.1) = %q, want 3232235777", s)
	}
	back, err := DecodeAddress(s)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if !back.Equal(ip) {
		t.Errorf("DecodeAddress(%q) = %v, want %v", s, back, ip)
	}
}
