package deploy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eteu-technologies/containerapp-deployer/internal/azure"
	"github.com/eteu-technologies/containerapp-deployer/internal/config"
	"github.com/eteu-technologies/containerapp-deployer/internal/credential"
	"github.com/eteu-technologies/containerapp-deployer/internal/docker"
	"github.com/eteu-technologies/containerapp-deployer/internal/execute"
	"github.com/eteu-technologies/containerapp-deployer/internal/message"
)

// Options select the optional steps of a deployment run.
type Options struct {
	// RebuildImage builds and pushes the image before provisioning.
	RebuildImage bool
	// DeleteResourceGroup tears the resource group down first, forcing a
	// clean re-provision.
	DeleteResourceGroup bool

	// Dockerfile and ContextDir feed the image build.
	Dockerfile string
	ContextDir string
}

// Deployer runs the provisioning sequence against the external tools. Each
// step is synchronous and the first failure aborts the rest.
type Deployer struct {
	cfg    *config.DeployConfig
	opts   Options
	docker *docker.Builder
	az     *azure.CLI
	creds  credential.Provider
	log    *zap.Logger
}

func New(cfg *config.DeployConfig, opts Options, runner execute.Runner, creds credential.Provider, log *zap.Logger) *Deployer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deployer{
		cfg:    cfg,
		opts:   opts,
		docker: docker.NewBuilder(runner),
		az:     azure.NewCLI(runner),
		creds:  creds,
		log:    log,
	}
}

// Run executes the deployment sequence and returns the result of the final
// ensure-app step.
func (d *Deployer) Run(ctx context.Context) (result message.DeploymentResult, err error) {
	if d.opts.RebuildImage {
		if err = d.buildAndPush(ctx); err != nil {
			return
		}
	}

	if d.opts.DeleteResourceGroup {
		d.log.Info("deleting resource group", zap.String("group", d.cfg.ResourceGroup))
		if err = d.az.DeleteGroup(ctx, d.cfg.ResourceGroup); err != nil {
			return
		}
		d.log.Info("resource group deleted", zap.String("group", d.cfg.ResourceGroup))
	}

	if err = d.ensureResourceGroup(ctx); err != nil {
		return
	}

	d.log.Info("registering provider", zap.String("namespace", azure.ProviderNamespace))
	if err = d.az.RegisterProvider(ctx, azure.ProviderNamespace); err != nil {
		return
	}

	if err = d.ensureEnvironment(ctx); err != nil {
		return
	}

	var created bool
	if created, err = d.ensureApp(ctx); err != nil {
		return
	}

	result = message.DeploymentResult{
		App:           d.cfg.ContainerAppName,
		ResourceGroup: d.cfg.ResourceGroup,
		Environment:   d.cfg.ContainerAppEnv,
		Image:         d.cfg.ContainerImage,
		Created:       created,
		FinishedAt:    time.Now().UTC(),
	}
	return
}

func (d *Deployer) buildAndPush(ctx context.Context) (err error) {
	d.log.Info("building image",
		zap.String("image", d.cfg.ContainerImage),
		zap.String("dockerfile", d.opts.Dockerfile),
		zap.String("context", d.opts.ContextDir))
	if err = d.docker.Build(ctx, d.opts.Dockerfile, d.opts.ContextDir, d.cfg.ContainerImage); err != nil {
		return
	}

	d.log.Info("pushing image", zap.String("image", d.cfg.ContainerImage))
	if err = d.docker.Push(ctx, d.cfg.ContainerImage); err != nil {
		return
	}

	return
}

func (d *Deployer) ensureResourceGroup(ctx context.Context) (err error) {
	var exists bool
	if exists, err = d.az.GroupExists(ctx, d.cfg.ResourceGroup); err != nil {
		return
	}

	if exists {
		d.log.Info("resource group already exists", zap.String("group", d.cfg.ResourceGroup))
		return
	}

	d.log.Info("creating resource group",
		zap.String("group", d.cfg.ResourceGroup),
		zap.String("region", d.cfg.Region))
	err = d.az.CreateGroup(ctx, d.cfg.ResourceGroup, d.cfg.Region)
	return
}

func (d *Deployer) ensureEnvironment(ctx context.Context) (err error) {
	if d.az.EnvironmentExists(ctx, d.cfg.ContainerAppEnv, d.cfg.ResourceGroup) {
		d.log.Info("environment already exists", zap.String("environment", d.cfg.ContainerAppEnv))
		return
	}

	d.log.Info("creating environment",
		zap.String("environment", d.cfg.ContainerAppEnv),
		zap.String("group", d.cfg.ResourceGroup))
	err = d.az.CreateEnvironment(ctx, d.cfg.ContainerAppEnv, d.cfg.ResourceGroup, d.cfg.Region)
	return
}

// ensureApp creates the container app on first deploy, otherwise updates
// its image reference. Registry credentials are requested only for the
// create path and dropped right after the single command that uses them.
func (d *Deployer) ensureApp(ctx context.Context) (created bool, err error) {
	if d.az.AppExists(ctx, d.cfg.ContainerAppName, d.cfg.ResourceGroup) {
		d.log.Info("updating container app image",
			zap.String("app", d.cfg.ContainerAppName),
			zap.String("image", d.cfg.ContainerImage))
		err = d.az.UpdateAppImage(ctx, d.cfg.ContainerAppName, d.cfg.ResourceGroup, d.cfg.ContainerImage)
		return
	}

	var creds credential.Credentials
	if creds, err = d.creds.Obtain(); err != nil {
		return
	}
	defer creds.Zero()

	d.log.Info("creating container app",
		zap.String("app", d.cfg.ContainerAppName),
		zap.String("image", d.cfg.ContainerImage))
	err = d.az.CreateApp(ctx, d.cfg.ContainerAppName, d.cfg.ResourceGroup, d.cfg.ContainerAppEnv, d.cfg.ContainerImage)
	if err != nil {
		return
	}

	server := azure.RegistryServer(d.cfg.ContainerImageWithoutTag)
	d.log.Info("configuring registry credentials",
		zap.String("app", d.cfg.ContainerAppName),
		zap.String("server", server))
	err = d.az.SetRegistryCredentials(ctx, d.cfg.ContainerAppName, d.cfg.ResourceGroup, server, creds)
	if err != nil {
		return
	}

	created = true
	return
}
