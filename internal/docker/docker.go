package docker

import (
	"context"
	"fmt"

	"github.com/eteu-technologies/containerapp-deployer/internal/execute"
)

// Builder wraps the docker CLI for image build and push.
type Builder struct {
	runner execute.Runner
}

func NewBuilder(runner execute.Runner) *Builder {
	return &Builder{runner: runner}
}

func (b *Builder) Build(ctx context.Context, dockerfile, contextDir, imageRef string) (err error) {
	if err = b.runner.Run(ctx, "docker", "build", "-t", imageRef, "-f", dockerfile, contextDir); err != nil {
		err = fmt.Errorf("failed to build image %s: %w", imageRef, err)
		return
	}
	return
}

func (b *Builder) Push(ctx context.Context, imageRef string) (err error) {
	if err = b.runner.Run(ctx, "docker", "push", imageRef); err != nil {
		err = fmt.Errorf("failed to push image %s: %w", imageRef, err)
		return
	}
	return
}
