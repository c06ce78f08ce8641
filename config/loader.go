package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/vearne/lwsniffer/filter"
	"github.com/vearne/lwsniffer/util"
)

const (
	DefaultConfigFile = "config.properties"
	EnvPrefix         = "LWS"
)

const (
	keyComponentName   = "component_name"
	keyHostHTTP        = "server.host_http"
	keyEnvironment     = "server.environment"
	keyInterfaceName   = "server.interface.name"
	keyInterfaceIP     = "server.interface.ip"
	keyOutputFolder    = "server.outputfolder"
	keyActive          = "sniffer.active"
	keyPorts           = "sniffer.ports"
	keyMaxSizeFile     = "sniffer.log.max_size_file"
	keyVerbose         = "sniffer.log.verbose"
	keyVerboseFile     = "sniffer.log.verbose_file"
	keyLinkedKey       = "sniffer.header.linkedkey"
	keyResourceMatch   = "sniffer.filter.resource_match"
	keyResourceExclude = "sniffer.filter.resource_exclude"
	keyRateLimitQPS    = "sniffer.ratelimit.qps"
	keyCaptureBPF      = "sniffer.capture.bpf"
	keyCaptureTimeout  = "sniffer.capture.timeout"
	keyRestartMax      = "sniffer.restart.max"
	keyRestartBackoff  = "sniffer.restart.backoff"
	keyKafkaBrokers    = "sniffer.kafka.brokers"
	keyKafkaTopic      = "sniffer.kafka.topic"
	keyMetricsAddress  = "sniffer.metrics.address"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyActive, false)
	v.SetDefault(keyMaxSizeFile, 0)
	v.SetDefault(keyVerbose, false)
	v.SetDefault(keyCaptureBPF, true)
	v.SetDefault(keyCaptureTimeout, time.Second)
	v.SetDefault(keyRestartMax, 3)
	v.SetDefault(keyRestartBackoff, time.Second)
	v.SetDefault(keyKafkaTopic, "lwsniffer")
	return v
}

// Load reads a .properties file (LWS_* environment variables take precedence)
// and validates the result.
func Load(path string) (*AppSettings, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %v", path)
	}

	s := fromViper(v)
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %v", path)
	}
	return s, nil
}

func fromViper(v *viper.Viper) *AppSettings {
	var s AppSettings
	s.ComponentName = v.GetString(keyComponentName)

	s.Server.HostHTTP = v.GetString(keyHostHTTP)
	s.Server.Environment = v.GetString(keyEnvironment)
	s.Server.Interface.Name = v.GetString(keyInterfaceName)
	s.Server.Interface.IP = v.GetString(keyInterfaceIP)
	s.Server.OutputFolder = v.GetString(keyOutputFolder)

	s.Sniffer.Active = v.GetBool(keyActive)
	s.Sniffer.Ports = filter.ParsePorts(v.GetString(keyPorts))
	s.Sniffer.Log.MaxSizeFile = v.GetInt(keyMaxSizeFile)
	s.Sniffer.Log.Verbose = v.GetBool(keyVerbose)
	s.Sniffer.Log.VerboseFile = v.GetString(keyVerboseFile)
	s.Sniffer.LinkedKey = v.GetString(keyLinkedKey)
	s.Sniffer.ResourceMatch = v.GetString(keyResourceMatch)
	s.Sniffer.ResourceExclude = v.GetString(keyResourceExclude)
	s.Sniffer.RateLimitQPS = v.GetInt(keyRateLimitQPS)
	s.Sniffer.CaptureBPF = v.GetBool(keyCaptureBPF)
	s.Sniffer.CaptureTimeout = v.GetDuration(keyCaptureTimeout)
	s.Sniffer.RestartMax = v.GetInt(keyRestartMax)
	s.Sniffer.RestartBackoff = v.GetDuration(keyRestartBackoff)
	s.Sniffer.KafkaBrokers = splitList(v.GetString(keyKafkaBrokers))
	s.Sniffer.KafkaTopic = v.GetString(keyKafkaTopic)
	s.Sniffer.MetricsAddress = v.GetString(keyMetricsAddress)
	return &s
}

func splitList(str string) []string {
	var res []string
	for _, item := range strings.Split(str, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			res = append(res, item)
		}
	}
	return res
}

// Validate rejects settings that would only fail later, inside a capture worker.
func (s *AppSettings) Validate() error {
	if s.Sniffer.Log.MaxSizeFile < 0 {
		return errors.Errorf("%v must not be negative, got %v", keyMaxSizeFile, s.Sniffer.Log.MaxSizeFile)
	}
	if s.Server.Interface.IP != "" && !util.IsIPv4(s.Server.Interface.IP) {
		return errors.Errorf("%v is not an IPv4 address: %q", keyInterfaceIP, s.Server.Interface.IP)
	}
	if s.Sniffer.RateLimitQPS < 0 {
		return errors.Errorf("%v must not be negative, got %v", keyRateLimitQPS, s.Sniffer.RateLimitQPS)
	}
	if s.Sniffer.RestartMax < 0 {
		return errors.Errorf("%v must not be negative, got %v", keyRestartMax, s.Sniffer.RestartMax)
	}
	if s.Sniffer.CaptureTimeout <= 0 {
		return errors.Errorf("%v must be positive, got %v", keyCaptureTimeout, s.Sniffer.CaptureTimeout)
	}
	if s.Sniffer.Active && len(s.Sniffer.Ports) == 0 {
		return errors.Errorf("%v is empty, nothing would be captured", keyPorts)
	}
	return nil
}
