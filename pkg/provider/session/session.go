// Package session caches AWS client configurations per profile and region.
//
// The cache replaces process-wide session state: it is constructed once per
// engine run, passed by reference into whatever needs cloud clients, and is
// safe for concurrent use.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Options select which credentials a cached configuration is built with.
type Options struct {
	// Profile is a shared-config profile name. Empty uses the default chain.
	Profile string

	// Region overrides the resolved region.
	Region string

	// AccessKey and SecretKey supply explicit static credentials.
	AccessKey string
	SecretKey string
}

func (o Options) key() string {
	return o.Profile + "|" + o.Region + "|" + o.AccessKey
}

// Cache hands out aws.Config values, loading each distinct profile/region
// combination at most once.
type Cache struct {
	mu      sync.Mutex
	configs map[string]aws.Config
}

// NewCache creates an empty session cache.
func NewCache() *Cache {
	return &Cache{configs: make(map[string]aws.Config)}
}

// Config returns the cached configuration for opts, loading it on first use.
func (c *Cache) Config(ctx context.Context, opts Options) (aws.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := opts.key()
	if cfg, ok := c.configs[key]; ok {
		return cfg, nil
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	c.configs[key] = cfg
	return cfg, nil
}
