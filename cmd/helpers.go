package main

import (
	"github.com/lotworks/vinvalue/pkg/kbb"
)

// newClientFactory returns a shared quota gauge and a per-worker client
// constructor wired from config. Workers call the factory so each owns its
// client; only the gauge is shared.
func newClientFactory() (*kbb.QuotaGauge, func() kbb.Client) {
	quota := kbb.NewQuotaGauge()
	factory := func() kbb.Client {
		opts := []kbb.Option{
			kbb.WithCallSpacing(cfg.KBB.CallSpacing()),
			kbb.WithRetry(cfg.KBB.RetryWait(), cfg.KBB.MaxRetries),
			kbb.WithQuotaGauge(quota),
		}
		if cfg.KBB.BaseURL != "" {
			opts = append(opts, kbb.WithBaseURL(cfg.KBB.BaseURL))
		}
		return kbb.NewClient(cfg.KBB.APIKey, opts...)
	}
	return quota, factory
}
