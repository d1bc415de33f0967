package main

import (
	"github.com/harunnryd/trendsniffer/internal/briefing"
	"github.com/harunnryd/trendsniffer/internal/config"
	"github.com/harunnryd/trendsniffer/internal/delivery"
	"github.com/harunnryd/trendsniffer/internal/errors"
	"github.com/harunnryd/trendsniffer/internal/feed"
	"github.com/harunnryd/trendsniffer/internal/prefs"
)

func openStore(cfg *config.Config) (*prefs.Store, error) {
	retry, err := config.DurationOrDefault(cfg.Store.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return nil, errors.Wrap(err, "parse store lock retry")
	}

	lockCfg := prefs.DefaultLockConfig()
	lockCfg.Retry = retry
	if cfg.Store.LockMaxRetry > 0 {
		lockCfg.MaxRetry = cfg.Store.LockMaxRetry
	}

	return prefs.Open(cfg.Store.Path, lockCfg)
}

func buildFetcher(cfg *config.Config) (*feed.Fetcher, error) {
	timeout, err := config.DurationOrDefault(cfg.Feeds.Timeout, config.DefaultFeedsTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "parse feeds timeout")
	}

	return feed.NewFetcher(feed.Options{
		UserAgent:        cfg.Feeds.UserAgent,
		Timeout:          timeout,
		TrendsURL:        cfg.Feeds.TrendsURL,
		StackExchangeURL: cfg.Feeds.StackExchangeURL,
		ItemsPerFeed:     cfg.Feeds.ItemsPerFeed,
		MaxSignals:       cfg.Feeds.MaxSignals,
		MaxSearches:      cfg.Feeds.MaxSearches,
		MaxVideos:        cfg.Feeds.MaxVideos,
	}), nil
}

func buildDeliverers(cfg *config.Config) []delivery.Deliverer {
	deliverers := make([]delivery.Deliverer, 0, 2)
	if cfg.Delivery.Telegram.Enabled {
		deliverers = append(deliverers, delivery.NewTelegram(cfg.Delivery.Telegram.BotToken, cfg.Delivery.Telegram.ChatID))
	}
	if cfg.Delivery.Slack.Enabled {
		deliverers = append(deliverers, delivery.NewSlack(cfg.Delivery.Slack.BotToken, cfg.Delivery.Slack.Channel))
	}
	if len(deliverers) == 0 {
		deliverers = append(deliverers, delivery.Nop{})
	}
	return deliverers
}

func buildGenerator(cfg *config.Config, store *prefs.Store) (*briefing.Generator, error) {
	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return nil, err
	}
	return briefing.NewGenerator(store, fetcher, buildDeliverers(cfg)...), nil
}
