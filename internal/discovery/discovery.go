package discovery

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// DNS-SD naming.
const (
	ServiceType = "_lightshow-dmx._udp"
	Domain      = "local."
)

// TXT record keys.
const (
	txtWidth   = "width"
	txtVersion = "version"
)

// Info describes the local receiver being advertised.
type Info struct {
	Instance string
	Port     int
	Width    int
	Version  string
}

// Service is a receiver found on the network.
type Service struct {
	Instance  string   `json:"instance"`
	Host      string   `json:"host"`
	Port      int      `json:"port"`
	Addresses []string `json:"addresses"`
	Width     int      `json:"width"`
	Version   string   `json:"version,omitempty"`
}

// Endpoint returns "addr:port" for the service's preferred address, IPv4
// first. It is empty if the service has no addresses.
func (s Service) Endpoint() string {
	if len(s.Addresses) == 0 {
		return ""
	}
	addr := s.Addresses[0]
	for _, a := range s.Addresses {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			addr = a
			break
		}
	}
	return net.JoinHostPort(addr, strconv.Itoa(s.Port))
}

// EncodeTXT renders info as TXT strings.
func EncodeTXT(info Info) []string {
	txt := []string{txtWidth + "=" + strconv.Itoa(info.Width)}
	if info.Version != "" {
		txt = append(txt, txtVersion+"="+info.Version)
	}
	return txt
}

// DecodeTXT reads the width and version from TXT strings. Unknown keys are
// ignored; a missing or malformed width is an error.
func DecodeTXT(txt []string) (width int, version string, err error) {
	found := false
	for _, kv := range txt {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case txtWidth:
			width, err = strconv.Atoi(value)
			if err != nil || width <= 0 {
				return 0, "", fmt.Errorf("%w: width %q", ErrInvalidTXT, value)
			}
			found = true
		case txtVersion:
			version = value
		}
	}
	if !found {
		return 0, "", fmt.Errorf("%w: no width", ErrInvalidTXT)
	}
	return width, version, nil
}

// Advertiser keeps a service registered until Stop.
type Advertiser struct {
	mu     sync.Mutex
	server *zeroconf.Server
}

// Advertise registers info on ifaces (nil for all multicast interfaces).
func Advertise(info Info, ifaces []net.Interface) (*Advertiser, error) {
	if info.Instance == "" || info.Port <= 0 {
		return nil, fmt.Errorf("%w: instance %q port %d", ErrInvalidInfo, info.Instance, info.Port)
	}
	server, err := zeroconf.Register(info.Instance, ServiceType, Domain, info.Port, EncodeTXT(info), ifaces)
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", info.Instance, err)
	}
	return &Advertiser{server: server}, nil
}

// Stop withdraws the service. It is safe to call more than once.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Browse collects services for up to timeout, merging the addresses of an
// instance seen on several interfaces. Services with unusable TXT records
// are skipped. The result is sorted by instance name.
func Browse(ctx context.Context, timeout time.Duration, ifaces []net.Interface) ([]Service, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var opts []zeroconf.ClientOption
	if len(ifaces) > 0 {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	browseErr := make(chan error, 1)
	go func() {
		browseErr <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	found := make(map[string]*Service)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			svc, err := serviceFromEntry(entry)
			if err != nil {
				continue
			}
			merge(found, svc)

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			delete(found, entry.Instance)

		case err := <-browseErr:
			if err != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("browsing %s: %w", ServiceType, err)
			}
			return collect(found), nil

		case <-ctx.Done():
			return collect(found), nil
		}
	}
}

func serviceFromEntry(entry *zeroconf.ServiceEntry) (Service, error) {
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)
	return newService(entry.Instance, entry.HostName, entry.Port, entry.Text, ips)
}

func newService(instance, host string, port int, txt []string, ips []net.IP) (Service, error) {
	width, version, err := DecodeTXT(txt)
	if err != nil {
		return Service{}, err
	}
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}
	return Service{
		Instance:  instance,
		Host:      host,
		Port:      port,
		Addresses: addrs,
		Width:     width,
		Version:   version,
	}, nil
}

func merge(found map[string]*Service, svc Service) {
	existing, ok := found[svc.Instance]
	if !ok {
		found[svc.Instance] = &svc
		return
	}
	for _, a := range svc.Addresses {
		if !slices.Contains(existing.Addresses, a) {
			existing.Addresses = append(existing.Addresses, a)
		}
	}
}

func collect(found map[string]*Service) []Service {
	out := make([]Service, 0, len(found))
	for _, s := range found {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Service) int { return cmp.Compare(a.Instance, b.Instance) })
	return out
}

// Endpoints returns the endpoints of services whose universe width matches
// width, in service order. A width of 0 accepts every service.
func Endpoints(services []Service, width int) []string {
	var out []string
	for _, s := range services {
		if width > 0 && s.Width != width {
			continue
		}
		if ep := s.Endpoint(); ep != "" && !slices.Contains(out, ep) {
			out = append(out, ep)
		}
	}
	return out
}
