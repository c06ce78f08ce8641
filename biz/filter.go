package biz

import (
	"github.com/vearne/lwsniffer/config"
	"github.com/vearne/lwsniffer/filter"
)

func NewFilterChain(settings *config.AppSettings) (filter.Filter, error) {
	c := filter.NewFilterChain()

	if len(settings.Sniffer.ResourceMatch) > 0 {
		f, err := filter.NewResourceMatchIncludeFilter(settings.Sniffer.ResourceMatch)
		if err != nil {
			return nil, err
		}
		c.AddIncludeFilter(f)
	}
	if len(settings.Sniffer.ResourceExclude) > 0 {
		c.AddExcludeFilter(filter.NewResourceExcludeFilter(settings.Sniffer.ResourceExclude))
	}
	return c, nil
}
