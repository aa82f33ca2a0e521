package wardenerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vireo-systems/warden/internal/wardenerr"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	underlying := errors.New("boom")
	err := wardenerr.Wrap(wardenerr.ErrSpawn, "spawn", underlying)

	assert.ErrorIs(t, err, wardenerr.ErrSpawn)
	assert.ErrorIs(t, err, underlying)
	assert.Equal(t, "spawn: boom", err.Error())
}

func TestWrapNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, wardenerr.Wrap(wardenerr.ErrConfig, "load", nil))
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	underlying := errors.New("x")
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"config", wardenerr.Config("load", underlying), wardenerr.ErrConfig},
		{"spawn", wardenerr.Spawn("fork", underlying), wardenerr.ErrSpawn},
		{"probe", wardenerr.Probe("http", underlying), wardenerr.ErrProbe},
		{"signal", wardenerr.SignalDelivery("term", underlying), wardenerr.ErrSignalDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.ErrorIs(t, tt.err, underlying)
		})
	}
}
