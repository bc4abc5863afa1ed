package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/google/uuid"
)

const (
	// ServiceType is the DNS-SD service type.
	ServiceType = "_gatekeeper._udp"
	// Domain is the mDNS domain.
	Domain = "local."
	// DefaultBrowseTimeout bounds Browse when the caller gives no deadline.
	DefaultBrowseTimeout = 3 * time.Second

	txtVersion = "version"
	txtID      = "id"
	txtTTL     = "ttl"
)

var (
	// ErrNoPort is returned when the advertised port is zero.
	ErrNoPort = errors.New("advertised port must be set")
	// errMalformedTXT is returned for TXT strings without a key.
	errMalformedTXT = errors.New("malformed TXT record")
)

// Info is what a daemon advertises.
type Info struct {
	// Instance is the human-readable service instance name.
	Instance string
	// ID is a stable identifier of this daemon.
	ID uuid.UUID
	// Version is the daemon build version.
	Version string
	// Port is the UDP command port.
	Port int
	// SubscriptionTTL is the subscription lifetime.
	SubscriptionTTL time.Duration
}

// Service is a daemon found by Browse.
type Service struct {
	// Instance is the service instance name.
	Instance string
	// Host is the advertised host name.
	Host string
	// ID is the advertised instance ID, or uuid.Nil when missing.
	ID uuid.UUID
	// Version is the advertised build version.
	Version string
	// SubscriptionTTL is the advertised subscription lifetime.
	SubscriptionTTL time.Duration
	// Addresses lists the reachable command endpoints.
	Addresses []netip.AddrPort
}

// Advertiser keeps an mDNS registration alive.
type Advertiser struct {
	// server is the running responder.
	server *zeroconf.Server
}

// Advertise registers the service on all interfaces.
func Advertise(info Info) (*Advertiser, error) {
	if info.Port == 0 {
		return nil, ErrNoPort
	}

	server, err := zeroconf.Register(info.Instance, ServiceType, Domain, info.Port, EncodeTXT(info), nil)
	if err != nil {
		return nil, fmt.Errorf("register mDNS service: %w", err)
	}

	return &Advertiser{
		server: server,
	}, nil
}

// Shutdown withdraws the registration.
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Browse collects the services that answer until ctx is done. Without a ctx
// deadline it waits DefaultBrowseTimeout.
func Browse(ctx context.Context) ([]Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, DefaultBrowseTimeout)
		defer cancel()
	}

	var (
		entries = make(chan *zeroconf.ServiceEntry)
		removed = make(chan *zeroconf.ServiceEntry)
		browsed = make(chan error, 1)
	)

	go func() {
		browsed <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	found := make(map[string]*Service)
	order := make([]string, 0)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil

				continue
			}

			svc := entryToService(entry)
			if existing, dup := found[svc.Instance]; dup {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)

				continue
			}

			found[svc.Instance] = &svc
			order = append(order, svc.Instance)
		case entry, ok := <-removed:
			if !ok {
				removed = nil

				continue
			}

			delete(found, entry.Instance)
		case <-ctx.Done():
			select {
			case err := <-browsed:
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					return nil, fmt.Errorf("browse mDNS: %w", err)
				}
			default:
			}

			services := make([]Service, 0, len(found))

			for _, name := range order {
				if svc, ok := found[name]; ok {
					services = append(services, *svc)
				}
			}

			return services, nil
		}
	}
}

// EncodeTXT renders the TXT strings for info.
func EncodeTXT(info Info) []string {
	txt := []string{
		txtVersion + "=" + info.Version,
		txtID + "=" + info.ID.String(),
	}

	if info.SubscriptionTTL > 0 {
		txt = append(txt, txtTTL+"="+strconv.Itoa(int(info.SubscriptionTTL.Seconds())))
	}

	return txt
}

// DecodeTXT parses TXT strings into a key-value map.
func DecodeTXT(txt []string) (map[string]string, error) {
	records := make(map[string]string, len(txt))

	for _, s := range txt {
		key, value, _ := strings.Cut(s, "=")
		if key == "" {
			return nil, fmt.Errorf("%w: %q", errMalformedTXT, s)
		}

		records[key] = value
	}

	return records, nil
}

// entryToService converts a resolved entry. Bad TXT fields are left empty.
func entryToService(entry *zeroconf.ServiceEntry) Service {
	svc := Service{
		Instance: entry.Instance,
		Host:     entry.HostName,
	}

	if records, err := DecodeTXT(entry.Text); err == nil {
		svc.Version = records[txtVersion]

		if id, err := uuid.Parse(records[txtID]); err == nil {
			svc.ID = id
		}

		if secs, err := strconv.Atoi(records[txtTTL]); err == nil {
			svc.SubscriptionTTL = time.Duration(secs) * time.Second
		}
	}

	port := uint16(entry.Port) //nolint:gosec // mDNS ports are 16-bit.

	for _, ip := range entry.AddrIPv4 {
		if addr, ok := netip.AddrFromSlice(ip); ok {
			svc.Addresses = append(svc.Addresses, netip.AddrPortFrom(addr.Unmap(), port))
		}
	}

	for _, ip := range entry.AddrIPv6 {
		if addr, ok := netip.AddrFromSlice(ip); ok {
			svc.Addresses = append(svc.Addresses, netip.AddrPortFrom(addr, port))
		}
	}

	return svc
}

func mergeAddresses(existing, more []netip.AddrPort) []netip.AddrPort {
	for _, addr := range more {
		dup := false

		for _, have := range existing {
			if have == addr {
				dup = true

				break
			}
		}

		if !dup {
			existing = append(existing, addr)
		}
	}

	return existing
}
