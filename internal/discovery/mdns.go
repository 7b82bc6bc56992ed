// ABOUTME: mDNS discovery for network speakers
// ABOUTME: Advertises a speaker and browses for speakers on the local network
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"
)

// ServiceType is the mDNS service type speakers advertise under.
const ServiceType = "_chipstream._tcp"

// Config holds discovery configuration.
type Config struct {
	// Name is the instance name to advertise.
	Name string

	// Port is the speaker's websocket port.
	Port int
}

// Speaker describes a discovered speaker.
type Speaker struct {
	Name string
	Host string
	Port int
}

// Addr returns the host:port dial address for the speaker.
func (s Speaker) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Manager handles mDNS advertisement and browsing.
type Manager struct {
	config   Config
	log      *logrus.Entry
	ctx      context.Context
	cancel   context.CancelFunc
	speakers chan Speaker
}

// NewManager creates a discovery manager.
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:   config,
		log:      logrus.WithField("component", "discovery"),
		ctx:      ctx,
		cancel:   cancel,
		speakers: make(chan Speaker, 10),
	}
}

// Advertise announces this speaker on the local network until Stop.
func (m *Manager) Advertise() error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.Name,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=/chipstream"},
	)
	if err != nil {
		return fmt.Errorf("failed to create mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.log.Infof("advertising %q (%s) on port %d", m.config.Name, ServiceType, m.config.Port)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse starts querying for speakers; results arrive on Speakers until Stop.
func (m *Manager) Browse() {
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		go func() {
			for entry := range entries {
				if entry.AddrV4 == nil {
					continue
				}
				speaker := Speaker{
					Name: entry.Name,
					Host: entry.AddrV4.String(),
					Port: entry.Port,
				}
				m.log.Debugf("discovered speaker %s at %s", speaker.Name, speaker.Addr())

				select {
				case m.speakers <- speaker:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		mdns.Query(&mdns.QueryParam{
			Service: ServiceType,
			Domain:  "local",
			Timeout: 3 * time.Second,
			Entries: entries,
		})
		close(entries)
	}
}

// Speakers returns the channel of discovered speakers.
func (m *Manager) Speakers() <-chan Speaker {
	return m.speakers
}

// FindFirst browses until one speaker is found or the timeout elapses.
func (m *Manager) FindFirst(timeout time.Duration) (Speaker, error) {
	m.Browse()

	select {
	case speaker := <-m.speakers:
		return speaker, nil
	case <-time.After(timeout):
		return Speaker{}, fmt.Errorf("no speaker found within %s", timeout)
	case <-m.ctx.Done():
		return Speaker{}, fmt.Errorf("discovery stopped")
	}
}

// Stop shuts down advertisement and browsing.
func (m *Manager) Stop() {
	m.cancel()
}

// localIPs returns the non-loopback IPv4 addresses of up interfaces.
func localIPs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}
