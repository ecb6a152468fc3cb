package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/codealong/pkg/version"
)

func TestString(t *testing.T) {
	version.InitBinaryVersion()

	assert.Contains(t, version.String(), "codealong "+version.Version)
	assert.NotEmpty(t, version.Commit)
	assert.NotEmpty(t, version.Date)
}
