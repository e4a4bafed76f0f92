package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when a fetch would connect to a loopback,
// private, link-local or otherwise non-public address.
var ErrBlockedAddress = errors.New("destination address not allowed")

// guardedDialer dials only public addresses, except for hosts that were
// explicitly allow-listed. The check runs on the resolved IP of every
// connection, so redirects are covered too.
type guardedDialer struct {
	open    *net.Dialer
	guarded *net.Dialer
	trusted []string
}

func newGuardedDialer(trustedHosts []string) *guardedDialer {
	trusted := make([]string, 0, len(trustedHosts))
	for _, h := range trustedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			trusted = append(trusted, h)
		}
	}

	return &guardedDialer{
		open: &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second},
		guarded: &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
			Control:   rejectNonPublic,
		},
		trusted: trusted,
	}
}

func (d *guardedDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	if slices.Contains(d.trusted, strings.ToLower(host)) {
		return d.open.DialContext(ctx, network, addr)
	}
	return d.guarded.DialContext(ctx, network, addr)
}

func rejectNonPublic(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified())
}
