package biz

import (
	"fmt"
	"io"

	"github.com/vearne/lwsniffer/config"
	"github.com/vearne/lwsniffer/plugin"
	slog "github.com/vearne/simplelog"
)

// verbose dump files are capped at 100MB x 5
const (
	verboseFileMaxSize    = 100
	verboseFileMaxBackups = 5
)

// InOutPlugins holds the outputs shared by every worker.
// The log file output is not among them: each worker owns its own file.
type InOutPlugins struct {
	Outputs []PluginWriter
	All     []interface{}
}

// NewPlugins creates the shared outputs enabled in settings.
func NewPlugins(settings *config.AppSettings) (*InOutPlugins, error) {
	plugins := new(InOutPlugins)

	if settings.Sniffer.Log.Verbose {
		plugins.registerPlugin(plugin.NewVerboseOutput(&plugin.VerboseOutputConfig{
			Path:       settings.Sniffer.Log.VerboseFile,
			MaxSize:    verboseFileMaxSize,
			MaxBackups: verboseFileMaxBackups,
		}))
	}

	if len(settings.Sniffer.KafkaBrokers) > 0 {
		o, err := plugin.NewKafkaOutput(&plugin.KafkaOutputConfig{
			Brokers: settings.Sniffer.KafkaBrokers,
			Topic:   settings.Sniffer.KafkaTopic,
		})
		if err != nil {
			plugins.Close()
			return nil, err
		}
		plugins.registerPlugin(o)
	}

	return plugins, nil
}

func (plugins *InOutPlugins) registerPlugin(p interface{}) {
	if w, ok := p.(PluginWriter); ok {
		plugins.Outputs = append(plugins.Outputs, w)
	}
	plugins.All = append(plugins.All, p)
}

// Close closes every plugin that implements io.Closer.
func (plugins *InOutPlugins) Close() {
	for _, p := range plugins.All {
		if cp, ok := p.(io.Closer); ok {
			if err := cp.Close(); err != nil {
				slog.Error("close plugin %v, error:%v", p, err)
			}
		}
	}
	plugins.All = nil
}

func (plugins *InOutPlugins) String() string {
	return fmt.Sprintf("#####  len(Outputs):%d, len(All):%d   #####",
		len(plugins.Outputs), len(plugins.All))
}
