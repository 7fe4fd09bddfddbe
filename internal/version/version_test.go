package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	t.Cleanup(func() {
		Version, GitCommit = origVersion, origCommit
	})

	Version, GitCommit = "", ""
	assert.Equal(t, "MattGitReview version dev", String())

	Version = "1.4.0"
	GitCommit = "0123456789abcdef"
	assert.Equal(t, "MattGitReview version 1.4.0 (0123456)", String())
}
