package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	SetVersion("test-version-1.0.0")
	defer func() { version = originalVersion }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "trialdex version test-version-1.0.0")
}

func TestVersionCmd_SkipsBootstrap(t *testing.T) {
	restore := setServices(t, nil, nil)
	defer restore()

	called := false
	SetBootstrap(func(_ context.Context, _ Options) (*Services, func(), error) {
		called = true
		return &Services{}, nil, nil
	})
	defer SetBootstrap(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	assert.NoError(t, rootCmd.Execute())
	assert.False(t, called)
}
