package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/eteu-technologies/containerapp-deployer/internal/config"
	"github.com/eteu-technologies/containerapp-deployer/internal/credential"
	"github.com/eteu-technologies/containerapp-deployer/internal/deploy"
	"github.com/eteu-technologies/containerapp-deployer/internal/execute"
	"github.com/eteu-technologies/containerapp-deployer/internal/notify"
)

func main() {
	app := &cli.App{
		Name:  "deploy-containerapp",
		Usage: "provision and deploy a container app to Azure Container Apps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "./DeployAzContainerAppConfig.json",
				EnvVars: []string{
					"ETEU_CONTAINERAPP_DEPLOYER_CONFIG",
				},
			},
			&cli.StringFlag{
				Name:  "dockerfile",
				Value: "./Dockerfile",
			},
			&cli.StringFlag{
				Name:  "context",
				Value: ".",
				Usage: "docker build context directory",
			},
			&cli.BoolFlag{
				Name:  "rebuild-image",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "delete-resource-group",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "duplicate log output to this file",
				EnvVars: []string{
					"ETEU_CONTAINERAPP_DEPLOYER_LOG_FILE",
				},
			},
			&cli.BoolFlag{
				Name: "debug",
				EnvVars: []string{
					"ETEU_CONTAINERAPP_DEPLOYER_DEBUG",
				},
			},
			&cli.StringFlag{
				Name: "notify-amqp-url",
				EnvVars: []string{
					"ETEU_CONTAINERAPP_DEPLOYER_AMQP_URL",
				},
			},
			&cli.StringFlag{
				Name: "notify-amqp-queue",
				EnvVars: []string{
					"ETEU_CONTAINERAPP_DEPLOYER_AMQP_QUEUE",
				},
			},
		},
		Action: entrypoint,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln("uncaught error: ", err)
	}
}

func entrypoint(cctx *cli.Context) (err error) {
	if err = configureLogging(cctx.Bool("debug"), cctx.String("log-file")); err != nil {
		err = fmt.Errorf("failed to configure logging: %w", err)
		return
	}

	var cfg *config.DeployConfig
	if cfg, err = config.Load(cctx.String("config")); err != nil {
		return
	}

	opts := deploy.Options{
		RebuildImage:        cctx.Bool("rebuild-image"),
		DeleteResourceGroup: cctx.Bool("delete-resource-group"),
		Dockerfile:          cctx.String("dockerfile"),
		ContextDir:          cctx.String("context"),
	}

	deployer := deploy.New(cfg, opts, execute.NewExecRunner(), credential.NewTerminalProvider(), zap.L())

	result, err := deployer.Run(cctx.Context)
	if err != nil {
		return
	}

	zap.L().Info("deployment finished",
		zap.String("app", result.App),
		zap.String("image", result.Image),
		zap.Bool("created", result.Created))

	if amqpURL := cctx.String("notify-amqp-url"); len(amqpURL) > 0 {
		if perr := notify.Publish(cctx.Context, amqpURL, cctx.String("notify-amqp-queue"), result); perr != nil {
			zap.L().Warn("failed to publish deployment result", zap.Error(perr))
		}
	}

	return
}
