package model

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// Identity is the static part of every record, copied from the settings.
type Identity struct {
	ComponentName string
	Environment   string
	HostHTTP      string
}

// Packet is one admitted IPv4/TCP packet carrying an HTTP request line.
type Packet struct {
	Version       uint8
	HeaderLength  uint8
	TotalLength   uint16
	TTL           uint8
	Protocol      uint8
	SourceIP      string
	DestinationIP string
	SourcePort    uint16
	DestPort      uint16

	HTTPResource string
	LinkedKey    string
	Time         time.Time

	ServerIP  string
	Direction string

	Identity
}

// AssignDirection marks the packet OUT when it was sent from serverIP, IN otherwise.
func (p *Packet) AssignDirection(serverIP string) {
	p.ServerIP = serverIP
	if p.SourceIP == serverIP {
		p.Direction = DirectionOut
	} else {
		p.Direction = DirectionIn
	}
}

// Unix returns the capture time in epoch seconds; times before the epoch map to 0.
func (p *Packet) Unix() int64 {
	sec := p.Time.Unix()
	if sec < 0 {
		return 0
	}
	return sec
}

// AppendLine appends the tab separated log line, newline included.
// Field values are written as-is, tabs and newlines are not escaped.
func (p *Packet) AppendLine(dst []byte) []byte {
	for _, f := range [...]string{
		p.Environment,
		p.ComponentName,
		p.HostHTTP,
		p.Direction,
		p.SourceIP,
		p.DestinationIP,
		p.HTTPResource,
		p.LinkedKey,
	} {
		dst = append(dst, f...)
		dst = append(dst, '\t')
	}
	dst = strconv.AppendInt(dst, p.Unix(), 10)
	return append(dst, '\n')
}

func (p *Packet) String() string {
	return fmt.Sprintf("%v:%v -> %v:%v %v", p.SourceIP, p.SourcePort,
		p.DestinationIP, p.DestPort, p.HTTPResource)
}

// Dump writes every field, one per line, followed by a separator.
func (p *Packet) Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Time: %v\n"+
		"IPv4 Version: %d\n"+
		"Header Length: %d bytes\n"+
		"Total Length: %d bytes\n"+
		"TTL: %d\n"+
		"Protocol: %d\n"+
		"Source IP: %s\n"+
		"Destination IP: %s\n"+
		"Component: %s\n"+
		"ServerName: %s\n"+
		"Source Port: %d\n"+
		"Destination Port: %d\n"+
		"Resource: %s\n"+
		"LinkedKey: %s\n"+
		"Direction: %s\n"+
		"Server IP: %s\n"+
		"--------------------------------------------------------------------------\n\n",
		p.Time, p.Version, p.HeaderLength, p.TotalLength, p.TTL, p.Protocol,
		p.SourceIP, p.DestinationIP, p.ComponentName, p.HostHTTP,
		p.SourcePort, p.DestPort, p.HTTPResource, p.LinkedKey,
		p.Direction, p.ServerIP)
	return err
}
