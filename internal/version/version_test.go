package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "aquaboard/dev", UserAgent())
}

func TestFullWithPlatform(t *testing.T) {
	assert.Equal(t,
		"aquaboard dev (commit: unknown, unknown/unknown)",
		FullWithPlatform(),
	)
}
