package azure

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eteu-technologies/containerapp-deployer/internal/credential"
	"github.com/eteu-technologies/containerapp-deployer/internal/execute"
)

// ProviderNamespace is required for the Container Apps resource types.
const ProviderNamespace = "Microsoft.App"

// App sizing and ingress are fixed; the service scales within these bounds.
const (
	appTargetPort = "80"
	appCPU        = "0.5"
	appMemory     = "1.0Gi"
)

// CLI wraps the az command-line tool. Every method is a single synchronous
// invocation; failure is the tool's nonzero exit code.
type CLI struct {
	runner execute.Runner
}

func NewCLI(runner execute.Runner) *CLI {
	return &CLI{runner: runner}
}

func (c *CLI) GroupExists(ctx context.Context, name string) (exists bool, err error) {
	var out string
	if out, err = c.runner.Output(ctx, "az", "group", "exists", "--name", name); err != nil {
		err = fmt.Errorf("failed to query resource group %s: %w", name, err)
		return
	}

	exists = strings.EqualFold(out, "true")
	return
}

func (c *CLI) CreateGroup(ctx context.Context, name, region string) (err error) {
	if err = c.runner.Run(ctx, "az", "group", "create", "--name", name, "--location", region); err != nil {
		err = fmt.Errorf("failed to create resource group %s: %w", name, err)
		return
	}
	return
}

func (c *CLI) DeleteGroup(ctx context.Context, name string) (err error) {
	if err = c.runner.Run(ctx, "az", "group", "delete", "--name", name, "--yes"); err != nil {
		err = fmt.Errorf("failed to delete resource group %s: %w", name, err)
		return
	}
	return
}

// RegisterProvider blocks until the namespace registration completes.
func (c *CLI) RegisterProvider(ctx context.Context, namespace string) (err error) {
	if err = c.runner.Run(ctx, "az", "provider", "register", "--namespace", namespace, "--wait"); err != nil {
		err = fmt.Errorf("failed to register provider %s: %w", namespace, err)
		return
	}
	return
}

// EnvironmentExists probes via show; az exits nonzero when the environment
// is absent, so a failed probe reads as "does not exist".
func (c *CLI) EnvironmentExists(ctx context.Context, name, group string) bool {
	_, err := c.runner.Output(ctx, "az", "containerapp", "env", "show", "--name", name, "--resource-group", group)
	if err != nil {
		zap.L().Debug("environment probe failed, assuming absent", zap.String("name", name), zap.Error(err))
		return false
	}
	return true
}

func (c *CLI) CreateEnvironment(ctx context.Context, name, group, region string) (err error) {
	err = c.runner.Run(ctx,
		"az", "containerapp", "env", "create",
		"--name", name,
		"--resource-group", group,
		"--location", region,
	)
	if err != nil {
		err = fmt.Errorf("failed to create environment %s: %w", name, err)
		return
	}
	return
}

func (c *CLI) AppExists(ctx context.Context, name, group string) bool {
	_, err := c.runner.Output(ctx, "az", "containerapp", "show", "--name", name, "--resource-group", group)
	if err != nil {
		zap.L().Debug("container app probe failed, assuming absent", zap.String("name", name), zap.Error(err))
		return false
	}
	return true
}

func (c *CLI) CreateApp(ctx context.Context, name, group, environment, imageRef string) (err error) {
	err = c.runner.Run(ctx,
		"az", "containerapp", "create",
		"--name", name,
		"--resource-group", group,
		"--environment", environment,
		"--image", imageRef,
		"--target-port", appTargetPort,
		"--ingress", "external",
		"--cpu", appCPU,
		"--memory", appMemory,
	)
	if err != nil {
		err = fmt.Errorf("failed to create container app %s: %w", name, err)
		return
	}
	return
}

func (c *CLI) UpdateAppImage(ctx context.Context, name, group, imageRef string) (err error) {
	err = c.runner.Run(ctx,
		"az", "containerapp", "update",
		"--name", name,
		"--resource-group", group,
		"--image", imageRef,
	)
	if err != nil {
		err = fmt.Errorf("failed to update container app %s: %w", name, err)
		return
	}
	return
}

func (c *CLI) SetRegistryCredentials(ctx context.Context, name, group, server string, creds credential.Credentials) (err error) {
	err = c.runner.Run(ctx,
		"az", "containerapp", "registry", "set",
		"--name", name,
		"--resource-group", group,
		"--server", server,
		"--username", creds.Username,
		"--password", string(creds.Secret),
	)
	if err != nil {
		err = fmt.Errorf("failed to set registry credentials for %s: %w", name, err)
		return
	}
	return
}

// RegistryServer extracts the registry host from an image reference,
// e.g. "myacr.azurecr.io/app" -> "myacr.azurecr.io".
func RegistryServer(imageRef string) string {
	if idx := strings.Index(imageRef, "/"); idx > 0 {
		return imageRef[:idx]
	}
	return imageRef
}
