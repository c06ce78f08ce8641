package plugin

import (
	"io"
	"os"
	"sync"

	"github.com/vearne/lwsniffer/model"
	"gopkg.in/natefinch/lumberjack.v2"
)

// VerboseOutputConfig ...
type VerboseOutputConfig struct {
	// Path of a rotated dump file; empty writes to stdout.
	Path string
	// MaxSize is the maximum size in megabytes of the dump file before it gets rotated.
	MaxSize int
	// MaxBackups is the maximum number of old dump files to retain.
	MaxBackups int
}

// VerboseOutput prints every field of each record, for debugging.
type VerboseOutput struct {
	sync.Mutex
	w io.Writer
}

// NewVerboseOutput writes to stdout, or to a lumberjack-rotated file when config.Path is set.
// Several workers may share one VerboseOutput.
func NewVerboseOutput(config *VerboseOutputConfig) *VerboseOutput {
	var o VerboseOutput
	if config == nil || config.Path == "" {
		o.w = os.Stdout
		return &o
	}
	o.w = &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSize, // megabytes
		MaxBackups: config.MaxBackups,
	}
	return &o
}

func (o *VerboseOutput) Write(p *model.Packet) error {
	o.Lock()
	defer o.Unlock()
	return p.Dump(o.w)
}

func (o *VerboseOutput) Close() error {
	if c, ok := o.w.(io.Closer); ok && o.w != os.Stdout {
		return c.Close()
	}
	return nil
}

func (o *VerboseOutput) String() string {
	return "Verbose output"
}
