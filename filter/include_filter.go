package filter

import (
	"regexp"

	"github.com/pkg/errors"
	"github.com/vearne/lwsniffer/model"
)

type ResourceMatchIncludeFilter struct {
	r *regexp.Regexp
}

func NewResourceMatchIncludeFilter(expr string) (*ResourceMatchIncludeFilter, error) {
	var f ResourceMatchIncludeFilter
	var err error
	f.r, err = regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "resource match expr %q", expr)
	}
	return &f, nil
}

// Filter :If ok is true, it means that the packet can pass
func (f *ResourceMatchIncludeFilter) Filter(p *model.Packet) (*model.Packet, bool) {
	if f.r.MatchString(p.HTTPResource) {
		return p, true
	}
	return nil, false
}
