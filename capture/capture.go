package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/vearne/lwsniffer/filter"
	"github.com/vearne/lwsniffer/util"
	slog "github.com/vearne/simplelog"
)

const DefaultSnaplen = 5000

// PcapOptions options that can be set on a pcap capture handle,
// these options take effect on inactive pcap handles
type PcapOptions struct {
	Snaplen       int
	Promiscuous   bool
	BufferTimeout time.Duration
	// BPF installs a kernel filter built from Ports
	BPF   bool
	Ports filter.PortSet
}

// Target is an interface to capture on and the local address used to tell
// outgoing packets from incoming ones.
type Target struct {
	Name string
	IP   string
}

func (t Target) String() string {
	return t.Name + "(" + t.IP + ")"
}

// PcapStatProvider is implemented by *pcap.Handle.
type PcapStatProvider interface {
	Stats() (*pcap.Stats, error)
}

// FindTargets lists the interfaces to capture on. An empty result is an error.
func FindTargets(name, ip string) ([]Target, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, errors.Wrap(err, "list capture devices")
	}
	stats, err := psnet.Interfaces()
	if err != nil {
		slog.Warn("list interfaces error:%v", err)
	}

	targets := selectTargets(devs, stats, name, ip)
	if len(targets) == 0 {
		return nil, errors.Errorf("no capture device matches interface %q with ip %q", name, ip)
	}
	return targets, nil
}

func selectTargets(devs []pcap.Interface, stats []psnet.InterfaceStat, name, ip string) []Target {
	byName := make(map[string]psnet.InterfaceStat, len(stats))
	for _, st := range stats {
		byName[st.Name] = st
	}

	var targets []Target
	for _, dev := range devs {
		if name != "" && dev.Name != name {
			continue
		}
		st, known := byName[dev.Name]
		if name == "" && known && !isUp(st) {
			continue
		}

		addrs := interfaceIPv4s(dev, st)
		if ip == "" {
			if len(addrs) > 0 {
				targets = append(targets, Target{Name: dev.Name, IP: addrs[0]})
			}
			continue
		}
		for _, a := range addrs {
			if a == ip {
				targets = append(targets, Target{Name: dev.Name, IP: ip})
				break
			}
		}
	}
	return targets
}

func isUp(st psnet.InterfaceStat) bool {
	for _, f := range st.Flags {
		if f == "up" {
			return true
		}
	}
	return false
}

// interfaceIPv4s merges the addresses pcap reports with the ones the OS reports,
// in that order, without duplicates.
func interfaceIPv4s(dev pcap.Interface, st psnet.InterfaceStat) []string {
	var res []string
	seen := make(map[string]bool)
	add := func(a string) {
		if !util.IsIPv4(a) || seen[a] {
			return
		}
		seen[a] = true
		res = append(res, a)
	}

	for _, addr := range dev.Addresses {
		if v4 := addr.IP.To4(); v4 != nil {
			add(v4.String())
		}
	}
	for _, addr := range st.Addrs {
		add(util.StripMask(addr.Addr))
	}
	return res
}

// Filter returns the BPF expression matching TCP traffic on any of the ports.
func Filter(ports filter.PortSet) string {
	// https://www.tcpdump.org/manpages/pcap-filter.7.html
	return fmt.Sprintf("ip and (%s)", portsFilter("tcp", "", ports.Sorted()))
}

func portsFilter(transport string, direction string, ports []uint16) string {
	prefix := transport
	if direction != "" {
		prefix += " " + direction
	}
	if len(ports) == 0 {
		return fmt.Sprintf("%s portrange 0-%d", prefix, 1<<16-1)
	}

	var filters []string
	for _, port := range ports {
		filters = append(filters, fmt.Sprintf("%s port %d", prefix, port))
	}
	return strings.Join(filters, " or ")
}

// OpenHandle returns new pcap Handle for target on success.
func OpenHandle(target Target, config PcapOptions) (handle *pcap.Handle, err error) {
	var inactive *pcap.InactiveHandle
	inactive, err = pcap.NewInactiveHandle(target.Name)
	if err != nil {
		return nil, fmt.Errorf("inactive handle error: %q, interface: %q", err, target.Name)
	}
	defer inactive.CleanUp()

	if config.Promiscuous {
		if err = inactive.SetPromisc(config.Promiscuous); err != nil {
			return nil, fmt.Errorf("promiscuous mode error: %q, interface: %q", err, target.Name)
		}
	}

	snap := config.Snaplen
	if snap == 0 {
		snap = DefaultSnaplen
	}
	err = inactive.SetSnapLen(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot length error: %q, interface: %q", err, target.Name)
	}
	if config.BufferTimeout == 0 {
		config.BufferTimeout = time.Second
	}
	err = inactive.SetTimeout(config.BufferTimeout)
	if err != nil {
		return nil, fmt.Errorf("handle buffer timeout error: %q, interface: %q", err, target.Name)
	}
	handle, err = inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("PCAP Activate device error: %q, interface: %q", err, target.Name)
	}

	// the decoder only understands Ethernet II framing
	if handle.LinkType() != layers.LinkTypeEthernet {
		handle.Close()
		return nil, fmt.Errorf("unsupported link type %v, interface: %q", handle.LinkType(), target.Name)
	}

	if config.BPF {
		bpfFilter := Filter(config.Ports)
		slog.Info("Interface:%v, BPF Filter:%v", target.Name, bpfFilter)
		if err = handle.SetBPFFilter(bpfFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("BPF filter error: %q%s, interface: %q", err, bpfFilter, target.Name)
		}
	}
	return handle, nil
}
