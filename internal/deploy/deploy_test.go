package deploy

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eteu-technologies/containerapp-deployer/internal/config"
	"github.com/eteu-technologies/containerapp-deployer/internal/credential"
)

// fakeBackend stands in for the docker and az tools. It records every
// invocation and tracks which resources exist, transitioning absent
// resources to present when their create command runs.
type fakeBackend struct {
	groupExists bool
	envExists   bool
	appExists   bool

	calls    [][]string
	failures map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{failures: map[string]error{}}
}

func (f *fakeBackend) record(argv []string) string {
	f.calls = append(f.calls, argv)
	return strings.Join(argv, " ")
}

func (f *fakeBackend) failure(cmd string) error {
	for prefix, err := range f.failures {
		if strings.HasPrefix(cmd, prefix) {
			return err
		}
	}
	return nil
}

func (f *fakeBackend) Run(ctx context.Context, argv ...string) error {
	cmd := f.record(argv)
	if err := f.failure(cmd); err != nil {
		return err
	}

	switch {
	case strings.HasPrefix(cmd, "az group create"):
		f.groupExists = true
	case strings.HasPrefix(cmd, "az group delete"):
		f.groupExists = false
		f.envExists = false
		f.appExists = false
	case strings.HasPrefix(cmd, "az containerapp env create"):
		f.envExists = true
	case strings.HasPrefix(cmd, "az containerapp create"):
		f.appExists = true
	}
	return nil
}

func (f *fakeBackend) Output(ctx context.Context, argv ...string) (string, error) {
	cmd := f.record(argv)
	if err := f.failure(cmd); err != nil {
		return "", err
	}

	switch {
	case strings.HasPrefix(cmd, "az group exists"):
		return strconv.FormatBool(f.groupExists), nil
	case strings.HasPrefix(cmd, "az containerapp env show"):
		if !f.envExists {
			return "", errors.New("ResourceNotFound")
		}
		return "{}", nil
	case strings.HasPrefix(cmd, "az containerapp show"):
		if !f.appExists {
			return "", errors.New("ResourceNotFound")
		}
		return "{}", nil
	}
	return "", nil
}

func (f *fakeBackend) count(prefix string) (n int) {
	for _, argv := range f.calls {
		if strings.HasPrefix(strings.Join(argv, " "), prefix) {
			n++
		}
	}
	return
}

func (f *fakeBackend) indexOf(prefix string) int {
	for i, argv := range f.calls {
		if strings.HasPrefix(strings.Join(argv, " "), prefix) {
			return i
		}
	}
	return -1
}

type countingProvider struct {
	obtained int
}

func (p *countingProvider) Obtain() (credential.Credentials, error) {
	p.obtained++
	return credential.Credentials{Username: "puller", Secret: []byte("hunter2")}, nil
}

func testConfig() *config.DeployConfig {
	return &config.DeployConfig{
		Region:                   "westeurope",
		ResourceGroup:            "demo-rg",
		ContainerAppEnv:          "demo-env",
		ContainerAppName:         "demo-app",
		ContainerImage:           "myacr.azurecr.io/demo:v1",
		ContainerImageWithoutTag: "myacr.azurecr.io/demo",
	}
}

func testOptions() Options {
	return Options{
		RebuildImage: true,
		Dockerfile:   "./Dockerfile",
		ContextDir:   ".",
	}
}

func TestRebuildBuildsThenPushes(t *testing.T) {
	backend := newFakeBackend()
	d := New(testConfig(), testOptions(), backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	build := backend.indexOf("docker build")
	push := backend.indexOf("docker push")
	require.NotEqual(t, -1, build)
	require.NotEqual(t, -1, push)
	assert.Less(t, build, push)
	assert.Less(t, push, backend.indexOf("az group exists"))
}

func TestRebuildDisabledSkipsBuildAndPush(t *testing.T) {
	backend := newFakeBackend()
	opts := testOptions()
	opts.RebuildImage = false
	d := New(testConfig(), opts, backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, backend.count("docker build"))
	assert.Zero(t, backend.count("docker push"))
}

func TestBuildFailureAbortsSequence(t *testing.T) {
	backend := newFakeBackend()
	backend.failures["docker build"] = errors.New("build exploded")
	d := New(testConfig(), testOptions(), backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.Error(t, err)

	assert.Zero(t, backend.count("docker push"))
	assert.Zero(t, backend.count("az"))
}

func TestDeleteRunsBeforeEnsure(t *testing.T) {
	backend := newFakeBackend()
	backend.groupExists = true
	opts := testOptions()
	opts.DeleteResourceGroup = true
	d := New(testConfig(), opts, backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	del := backend.indexOf("az group delete")
	require.NotEqual(t, -1, del)
	assert.Less(t, del, backend.indexOf("az group exists"))
	// The delete wiped the group, so the run recreates everything.
	assert.Equal(t, 1, backend.count("az group create"))
}

func TestExistingGroupSkipsCreate(t *testing.T) {
	backend := newFakeBackend()
	backend.groupExists = true
	d := New(testConfig(), testOptions(), backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, backend.count("az group create"))
}

func TestAbsentGroupCreatedOnce(t *testing.T) {
	backend := newFakeBackend()
	d := New(testConfig(), testOptions(), backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.count("az group create"))
}

func TestProviderRegistrationAlwaysRuns(t *testing.T) {
	backend := newFakeBackend()
	backend.groupExists = true
	backend.envExists = true
	backend.appExists = true
	d := New(testConfig(), testOptions(), backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.count("az provider register --namespace Microsoft.App"))
}

func TestAbsentAppPromptsOnceAndCreates(t *testing.T) {
	backend := newFakeBackend()
	creds := &countingProvider{}
	d := New(testConfig(), testOptions(), backend, creds, zap.NewNop())

	result, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, creds.obtained)
	assert.Equal(t, 1, backend.count("az containerapp create"))
	assert.Equal(t, 1, backend.count("az containerapp registry set"))
	assert.Zero(t, backend.count("az containerapp update"))
	assert.True(t, result.Created)
}

func TestCreatePassesFixedSizingAndIngress(t *testing.T) {
	backend := newFakeBackend()
	d := New(testConfig(), testOptions(), backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	idx := backend.indexOf("az containerapp create")
	require.NotEqual(t, -1, idx)
	cmd := strings.Join(backend.calls[idx], " ")
	assert.Contains(t, cmd, "--target-port 80")
	assert.Contains(t, cmd, "--ingress external")
	assert.Contains(t, cmd, "--cpu 0.5")
	assert.Contains(t, cmd, "--memory 1.0Gi")

	idx = backend.indexOf("az containerapp registry set")
	require.NotEqual(t, -1, idx)
	cmd = strings.Join(backend.calls[idx], " ")
	assert.Contains(t, cmd, "--server myacr.azurecr.io")
	assert.Contains(t, cmd, "--username puller")
}

func TestExistingAppUpdatesWithoutPrompt(t *testing.T) {
	backend := newFakeBackend()
	backend.groupExists = true
	backend.envExists = true
	backend.appExists = true
	creds := &countingProvider{}
	d := New(testConfig(), testOptions(), backend, creds, zap.NewNop())

	result, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, creds.obtained)
	assert.Zero(t, backend.count("az containerapp create"))
	assert.Equal(t, 1, backend.count("az containerapp update"))
	assert.False(t, result.Created)
}

func TestSecondRunIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	creds := &countingProvider{}
	opts := testOptions()
	opts.RebuildImage = false

	first := New(testConfig(), opts, backend, creds, zap.NewNop())
	_, err := first.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, backend.count("az group create"))
	require.Equal(t, 1, backend.count("az containerapp env create"))
	require.Equal(t, 1, backend.count("az containerapp create"))

	second := New(testConfig(), opts, backend, creds, zap.NewNop())
	_, err = second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.count("az group create"))
	assert.Equal(t, 1, backend.count("az containerapp env create"))
	assert.Equal(t, 1, backend.count("az containerapp create"))
	assert.Equal(t, 1, backend.count("az containerapp update"))
	assert.Equal(t, 1, creds.obtained)
}

func TestEnvironmentCreateFailureHaltsRun(t *testing.T) {
	backend := newFakeBackend()
	backend.failures["az containerapp env create"] = errors.New("quota exceeded")
	d := New(testConfig(), testOptions(), backend, &countingProvider{}, zap.NewNop())

	_, err := d.Run(context.Background())
	require.Error(t, err)

	assert.Zero(t, backend.count("az containerapp show"))
	assert.Zero(t, backend.count("az containerapp create"))
}
