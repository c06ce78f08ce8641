package filter

import (
	"strings"

	"github.com/vearne/lwsniffer/model"
)

type ResourceExcludeFilter struct {
	exclude string
}

func NewResourceExcludeFilter(exclude string) *ResourceExcludeFilter {
	var f ResourceExcludeFilter
	f.exclude = exclude
	return &f
}

// Filter :If ok is true, it means that the packet can pass
func (f *ResourceExcludeFilter) Filter(p *model.Packet) (*model.Packet, bool) {
	if strings.Contains(p.HTTPResource, f.exclude) {
		return nil, false
	}
	return p, true
}
