// Package config holds lwsniffer settings.
// AppSettings is filled once by Load and must be treated as read-only afterwards:
// every capture worker shares the same pointer without locking.
package config

import (
	"time"

	"github.com/vearne/lwsniffer/filter"
	"github.com/vearne/lwsniffer/model"
)

// AppSettings mirrors the keys of config.properties.
type AppSettings struct {
	ComponentName string
	Server        ServerSettings
	Sniffer       SnifferSettings

	// ExitAfter comes from the command line only.
	ExitAfter time.Duration
}

type ServerSettings struct {
	HostHTTP     string
	Environment  string
	Interface    InterfaceSettings
	OutputFolder string
}

type InterfaceSettings struct {
	// empty means every interface
	Name string
	// empty means the first IPv4 address of each selected interface
	IP string
}

type SnifferSettings struct {
	Active bool
	Ports  filter.PortSet
	Log    LogSettings
	// correlation header name
	LinkedKey string

	ResourceMatch   string
	ResourceExclude string

	// records per second per interface, 0 disables the limit
	RateLimitQPS int

	CaptureBPF     bool
	CaptureTimeout time.Duration

	RestartMax     int
	RestartBackoff time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	MetricsAddress string
}

type LogSettings struct {
	// MaxSizeFile is the size in MiB above which the output file is rotated.
	// 0 disables rotation.
	MaxSizeFile int
	Verbose     bool
	// VerboseFile redirects the verbose dump from stdout to a rotated file.
	VerboseFile string
}

// MaxSizeBytes converts MaxSizeFile to bytes.
func (s *LogSettings) MaxSizeBytes() int64 {
	return int64(s.MaxSizeFile) * 1024 * 1024
}

// Identity returns the static fields copied into every record.
func (s *AppSettings) Identity() model.Identity {
	return model.Identity{
		ComponentName: s.ComponentName,
		Environment:   s.Server.Environment,
		HostHTTP:      s.Server.HostHTTP,
	}
}
