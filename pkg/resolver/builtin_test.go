package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/stack"
)

func TestEnvVar(t *testing.T) {
	t.Setenv("STACKCTL_TEST_VALUE", "hello")

	r, err := NewEnvVar("STACKCTL_TEST_VALUE")
	require.NoError(t, err)

	v, err := r.Resolve(context.Background(), &stack.ResolveContext{})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestEnvVar_Missing(t *testing.T) {
	r, err := NewEnvVar("STACKCTL_TEST_DEFINITELY_UNSET")
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), &stack.ResolveContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeResolution))
}

func TestFileContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents\n"), 0o600))

	r, err := NewFileContents(path)
	require.NoError(t, err)

	v, err := r.Resolve(context.Background(), &stack.ResolveContext{})
	require.NoError(t, err)
	assert.Equal(t, "contents\n", v)
}

func TestFileContents_Missing(t *testing.T) {
	r, err := NewFileContents(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), &stack.ResolveContext{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeResolution))
}

func TestNoValue(t *testing.T) {
	r, err := NewNoValue(nil)
	require.NoError(t, err)

	v, err := r.Resolve(context.Background(), &stack.ResolveContext{})
	require.NoError(t, err)
	assert.Equal(t, stack.NoValue, v)
}

type fakeOutputs struct {
	values map[string]string
}

func (f *fakeOutputs) GetOutput(ctx context.Context, stackName, key string) (string, error) {
	v, ok := f.values[stackName+"::"+key]
	if !ok {
		return "", fmt.Errorf("stack %q has no output %q", stackName, key)
	}
	return v, nil
}

func TestStackOutput_ParsesArgument(t *testing.T) {
	r, err := NewStackOutput("network/vpc::VpcId")
	require.NoError(t, err)

	so := r.(*StackOutput)
	assert.Equal(t, "network/vpc", so.Target)
	assert.Equal(t, "VpcId", so.Key)
	assert.Equal(t, []string{"network/vpc"}, so.Dependencies())
}

func TestStackOutput_BadArgument(t *testing.T) {
	for _, arg := range []string{"no-separator", "::key", "stack::", ""} {
		_, err := NewStackOutput(arg)
		assert.Error(t, err, arg)
	}
	_, err := NewStackOutput(42)
	assert.Error(t, err)
}

func TestStackOutput_Resolve(t *testing.T) {
	r, err := NewStackOutput("base::Endpoint")
	require.NoError(t, err)

	rc := &stack.ResolveContext{
		Outputs: &fakeOutputs{values: map[string]string{"base::Endpoint": "https://api"}},
	}
	v, err := r.Resolve(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, "https://api", v)
}

func TestStackOutput_PlaceholderWhenUnavailable(t *testing.T) {
	r, err := NewStackOutput("base::Endpoint")
	require.NoError(t, err)

	// Missing output, placeholders on: substitute instead of failing.
	rc := &stack.ResolveContext{Outputs: &fakeOutputs{}, Placeholders: true}
	v, err := r.Resolve(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, "{{ base::Endpoint }}", v)

	// Same miss with placeholders off is a resolution error.
	rc.Placeholders = false
	_, err = r.Resolve(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeResolution))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"env", "file", "no_value", "stack_output"}, r.Tags())

	_, err := r.Create("nope", "arg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resolver")

	res, err := r.Create("env", "HOME")
	require.NoError(t, err)
	assert.IsType(t, &EnvVar{}, res)
}
