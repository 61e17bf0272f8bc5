package discovery

import (
	"net"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grandcat/zeroconf"
)

func entry(instance string, port int, ttl uint32, v4, v6 []net.IP) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, DefaultService, DefaultDomain)
	e.Port = port
	e.TTL = ttl
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	return e
}

func TestFromEntry(t *testing.T) {
	cases := []struct {
		name   string
		entry  *zeroconf.ServiceEntry
		want   Found
		wantOK bool
	}{
		{
			name:   "ipv4 preferred",
			entry:  entry("kitchen", 8765, 120, []net.IP{net.IPv4(192, 168, 1, 7)}, []net.IP{net.ParseIP("fe80::1")}),
			want:   Found{Instance: "kitchen", Addr: "192.168.1.7:8765"},
			wantOK: true,
		},
		{
			name:   "ipv6 only",
			entry:  entry("desk", 9000, 120, nil, []net.IP{net.ParseIP("fe80::1")}),
			want:   Found{Instance: "desk", Addr: "[fe80::1]:9000"},
			wantOK: true,
		},
		{
			name:   "goodbye",
			entry:  entry("desk", 9000, 0, []net.IP{net.IPv4(10, 0, 0, 2)}, nil),
			want:   Found{Instance: "desk", Addr: "10.0.0.2:9000", Lost: true},
			wantOK: true,
		},
		{name: "no address", entry: entry("x", 8765, 120, nil, nil)},
		{name: "no port", entry: entry("x", 0, 120, []net.IP{net.IPv4(10, 0, 0, 2)}, nil)},
		{name: "nil"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FromEntry(tc.entry)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("FromEntry (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAdvertisementShutdownNil(t *testing.T) {
	var a *Advertisement
	a.Shutdown()
}
