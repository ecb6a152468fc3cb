package analysis

import (
	"slices"

	"github.com/Sumatoshi-tech/codealong/pkg/config"
)

// DefaultWeight applies when no glob matches a file.
const DefaultWeight = 1.0

// ConfigContext is the configuration in force for one file of one commit.
type ConfigContext struct {
	Tags   []string
	Weight float64
	Ignore bool
}

// NewConfigContext combines the resolved file config with the commit author's
// contributor config. Either may be absent. Tags are the sorted union of both;
// the weight comes from the file alone.
func NewConfigContext(file config.FileConfig, fileFound bool, author *config.ContributorConfig) ConfigContext {
	cc := ConfigContext{Weight: DefaultWeight}

	if fileFound {
		cc.Weight = file.Weight
		cc.Ignore = file.Ignore
		cc.Tags = append(cc.Tags, file.Tags...)
	}

	if author != nil {
		cc.Tags = append(cc.Tags, author.Tags...)
		cc.Ignore = cc.Ignore || author.Ignore
	}

	slices.Sort(cc.Tags)

	cc.Tags = slices.Compact(cc.Tags)

	return cc
}
