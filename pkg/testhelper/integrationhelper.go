package testhelper

import (
	"os"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.uber.org/zap"
)

type RetryFunc func(res *dockertest.Resource) error

// IsIntegration reports whether tests that need a Docker daemon should
// run.
func IsIntegration() bool {
	return os.Getenv("TEST_INTEGRATION") == "true"
}

func StartDockerPool() *dockertest.Pool {
	pool, err := dockertest.NewPool("")
	if err != nil {
		zap.S().Fatalw("Could not construct docker pool", "error", err)
	}

	if err := pool.Client.Ping(); err != nil {
		zap.S().Fatalw("Could not connect to docker", "error", err)
	}
	return pool
}

func StartDockerInstance(pool *dockertest.Pool, image, tag string, retryFunc RetryFunc, env ...string) *dockertest.Resource {
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: image,
		Tag:        tag,
		Env:        env,
	}, func(config *docker.HostConfig) {
		// stopped containers clean themselves up
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		zap.S().Fatalw("Could not start docker resource", "image", image, "error", err)
	}

	if err := resource.Expire(120); err != nil {
		zap.S().Fatalw("Could not set resource expiration", "error", err)
	}

	if err := pool.Retry(func() error {
		return retryFunc(resource)
	}); err != nil {
		zap.S().Fatalw("Resource never became ready", "image", image, "error", err)
	}
	return resource
}
