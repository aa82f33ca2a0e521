package spec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vireo-systems/warden/internal/spec"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		specs   []spec.ServiceSpec
		wantErr error
	}{
		{
			name:    "no services",
			specs:   nil,
			wantErr: spec.ErrNoServices,
		},
		{
			name: "empty name",
			specs: []spec.ServiceSpec{
				{Command: "/bin/true"},
			},
			wantErr: spec.ErrEmptyServiceName,
		},
		{
			name: "empty command",
			specs: []spec.ServiceSpec{
				{Name: "a"},
			},
			wantErr: spec.ErrEmptyCommand,
		},
		{
			name: "duplicate name",
			specs: []spec.ServiceSpec{
				{Name: "a", Command: "/bin/true"},
				{Name: "a", Command: "/bin/false"},
			},
			wantErr: spec.ErrDuplicateServiceName,
		},
		{
			name: "unresolved dependency",
			specs: []spec.ServiceSpec{
				{Name: "a", Command: "/bin/true", StartAfter: []string{"missing"}},
			},
			wantErr: spec.ErrUnresolvedDependency,
		},
		{
			name: "direct cycle",
			specs: []spec.ServiceSpec{
				{Name: "a", Command: "/bin/true", StartAfter: []string{"b"}},
				{Name: "b", Command: "/bin/true", StartAfter: []string{"a"}},
			},
			wantErr: spec.ErrDependencyCycle,
		},
		{
			name: "self cycle",
			specs: []spec.ServiceSpec{
				{Name: "a", Command: "/bin/true", StartAfter: []string{"a"}},
			},
			wantErr: spec.ErrDependencyCycle,
		},
		{
			name: "negative max attempts",
			specs: []spec.ServiceSpec{
				{Name: "a", Command: "/bin/true", Restart: spec.RestartPolicy{MaxAttempts: -1}},
			},
			wantErr: spec.ErrNegativeMaxAttempts,
		},
		{
			name: "valid chain",
			specs: []spec.ServiceSpec{
				{Name: "db", Command: "/bin/true"},
				{Name: "app", Command: "/bin/true", StartAfter: []string{"db"}},
				{Name: "worker", Command: "/bin/true", StartAfter: []string{"app", "db"}},
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := spec.Validate(tt.specs)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFailurePolicy_IsSuccessfulExit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fp   spec.FailurePolicy
		code int
		want bool
	}{
		{name: "default only zero", fp: spec.FailurePolicy{}, code: 0, want: true},
		{name: "default nonzero fails", fp: spec.FailurePolicy{}, code: 1, want: false},
		{
			name: "configured set includes code",
			fp:   spec.FailurePolicy{SuccessfulExitCodes: map[int]struct{}{0: {}, 2: {}}},
			code: 2,
			want: true,
		},
		{
			name: "configured set excludes code",
			fp:   spec.FailurePolicy{SuccessfulExitCodes: map[int]struct{}{0: {}, 2: {}}},
			code: 1,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.fp.IsSuccessfulExit(tt.code))
		})
	}
}
