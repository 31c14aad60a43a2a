package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/plant-floor/internal/adapter/sink"
	"github.com/rl1809/plant-floor/internal/config"
	"github.com/rl1809/plant-floor/internal/port"
)

type sinkOpener func(ctx context.Context) (port.EventSink, error)

// newSinkFactory opens every enabled sink when the run starts.
func newSinkFactory(cfg config.SinksConfig, logger *zap.Logger) port.SinkFactory {
	var openers []sinkOpener

	if cfg.File.Enabled {
		openers = append(openers, func(context.Context) (port.EventSink, error) {
			s, err := sink.NewFileSink(cfg.File.Path, sink.FileFormat(cfg.File.Format))
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	}

	if cfg.Zap.Enabled {
		openers = append(openers, func(context.Context) (port.EventSink, error) {
			return sink.NewZapSink(logger), nil
		})
	}

	if cfg.Redis.Enabled {
		openers = append(openers, func(ctx context.Context) (port.EventSink, error) {
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			if err := client.Ping(ctx).Err(); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to connect redis: %w", err)
			}
			logger.Info("Redis event sink connected", zap.String("addr", cfg.Redis.Addr))
			return sink.NewRedisSink(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL), nil
		})
	}

	if cfg.Kafka.Enabled {
		openers = append(openers, func(context.Context) (port.EventSink, error) {
			producer, err := sink.NewKafkaProducer(sink.KafkaConfig{
				Brokers:          cfg.Kafka.Brokers,
				Topic:            cfg.Kafka.Topic,
				ClientID:         "plantsim",
				SecurityProtocol: cfg.Kafka.SecurityProtocol,
				SASLMechanism:    cfg.Kafka.SASLMechanism,
				SASLUsername:     cfg.Kafka.SASLUsername,
				SASLPassword:     cfg.Kafka.SASLPassword,
			})
			if err != nil {
				return nil, err
			}
			logger.Info("Kafka event sink connected",
				zap.Strings("brokers", cfg.Kafka.Brokers),
				zap.String("topic", cfg.Kafka.Topic),
			)
			return sink.NewKafkaSink(producer, cfg.Kafka.Topic), nil
		})
	}

	return func(ctx context.Context) (port.EventSink, error) {
		return openSinks(ctx, logger, openers)
	}
}

// openSinks opens in order. When one fails, the ones already opened are
// closed again and their close errors joined to the open error.
func openSinks(ctx context.Context, logger *zap.Logger, openers []sinkOpener) (port.EventSink, error) {
	opened := make([]port.EventSink, 0, len(openers))
	for _, open := range openers {
		s, err := open(ctx)
		if err != nil {
			if len(opened) > 0 {
				logger.Warn("Closing event sinks opened before the failure",
					zap.Int("opened", len(opened)),
					zap.Error(err),
				)
			}
			for _, o := range opened {
				err = errors.Join(err, o.Close())
			}
			return nil, err
		}
		opened = append(opened, s)
	}
	return sink.NewMulti(opened...), nil
}
