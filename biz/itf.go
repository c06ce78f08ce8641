// Package biz ties the pieces together: one Worker per interface reads
// frames, the Processor turns them into records and hands them to the
// outputs, and the Supervisor keeps the workers running.
package biz

import "github.com/vearne/lwsniffer/model"

// PluginWriter is an interface for output plugins
type PluginWriter interface {
	Write(p *model.Packet) error
}

// Limiter drops records once a rate is exceeded.
type Limiter interface {
	Allow() bool
}
