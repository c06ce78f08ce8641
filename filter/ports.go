package filter

import (
	"sort"
	"strconv"
	"strings"
)

// PortSet is the TCP port allow-list. It is built once and only read afterwards.
type PortSet map[uint16]struct{}

func NewPortSet(ports ...uint16) PortSet {
	s := make(PortSet, len(ports))
	for _, p := range ports {
		s[p] = struct{}{}
	}
	return s
}

// ParsePorts reads a comma separated list; entries that are not valid
// 16-bit port numbers are skipped.
func ParsePorts(str string) PortSet {
	s := make(PortSet)
	for _, item := range strings.Split(str, ",") {
		port, err := strconv.ParseUint(strings.TrimSpace(item), 10, 16)
		if err != nil {
			continue
		}
		s[uint16(port)] = struct{}{}
	}
	return s
}

// Match reports whether either port is in the allow-list.
func (s PortSet) Match(srcPort, dstPort uint16) bool {
	if _, ok := s[srcPort]; ok {
		return true
	}
	_, ok := s[dstPort]
	return ok
}

// Sorted returns the ports in ascending order.
func (s PortSet) Sorted() []uint16 {
	res := make([]uint16, 0, len(s))
	for p := range s {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
