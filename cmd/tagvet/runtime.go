package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/tagvet/tagvet/cache"
	"github.com/tagvet/tagvet/clientpool"
	"github.com/tagvet/tagvet/history"
	"github.com/tagvet/tagvet/internal/config"
	"github.com/tagvet/tagvet/orchestrator"
	"github.com/tagvet/tagvet/policy"
	awsprovider "github.com/tagvet/tagvet/providers/aws"
	"github.com/tagvet/tagvet/regions"
	"github.com/tagvet/tagvet/telemetry"
)

// runtime is the assembled toolchain behind every command: configuration,
// client pool, region directory, orchestrator, and scan history.
type runtime struct {
	cfg     config.Config
	pool    *clientpool.Pool
	dir     *regions.Directory
	orch    *orchestrator.Orchestrator
	history *history.Store

	regionCache *cache.Bolt
}

// newRuntime wires the full scan toolchain from configuration. The only
// remote call it makes is AWS credential resolution.
func newRuntime(ctx context.Context, policyPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	telemetry.SetGlobalLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DefaultEndpoint))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	pool := clientpool.NewPool(awsCfg)

	regionCache, err := cache.OpenBolt(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open region cache: %w", err)
	}

	lister := regions.NewAWSLister(ec2.NewFromConfig(pool.Get(cfg.DefaultEndpoint).Config()))
	dir := regions.NewDirectory(lister, regionCache, cfg.RegionCacheTTL(), cfg.DefaultEndpoint)

	tagPolicy := policy.Default()
	if policyPath == "" {
		policyPath = cfg.PolicyFile
	}
	if policyPath != "" {
		tagPolicy, err = policy.Load(policyPath)
		if err != nil {
			regionCache.Close()
			return nil, err
		}
	}

	engine, err := policy.NewEngine(ctx, tagPolicy)
	if err != nil {
		regionCache.Close()
		return nil, err
	}

	hist, err := history.Open(cfg.DataDir)
	if err != nil {
		regionCache.Close()
		return nil, fmt.Errorf("open scan history: %w", err)
	}

	orch := orchestrator.New(dir, pool, awsprovider.NewScanner(engine), orchestrator.Options{
		MultiRegionEnabled:   cfg.MultiRegionEnabled,
		MaxConcurrentRegions: cfg.MaxConcurrentRegions,
		RegionTimeout:        cfg.RegionTimeout(),
		DefaultEndpoint:      cfg.DefaultEndpoint,
	})

	return &runtime{
		cfg:         cfg,
		pool:        pool,
		dir:         dir,
		orch:        orch,
		history:     hist,
		regionCache: regionCache,
	}, nil
}

func (r *runtime) close() {
	if r.history != nil {
		_ = r.history.Close()
	}
	if r.regionCache != nil {
		_ = r.regionCache.Close()
	}
}
