package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/watchroom/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	progressDebounceMs = configVar[int]{
		envKey:       "SYNC_PROGRESS_DEBOUNCE_MS",
		flagKey:      "progress-debounce-ms",
		defaultValue: 1000,
	}
	writeCooldownMs = configVar[int]{
		envKey:       "SYNC_WRITE_COOLDOWN_MS",
		flagKey:      "write-cooldown-ms",
		defaultValue: 750,
	}
	seekToleranceMs = configVar[int]{
		envKey:       "SYNC_SEEK_TOLERANCE_MS",
		flagKey:      "seek-tolerance-ms",
		defaultValue: 2000,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(progressDebounceMs.flagKey, progressDebounceMs.defaultValue, "Playhead progress debounce window in milliseconds")
	pflag.Int(writeCooldownMs.flagKey, writeCooldownMs.defaultValue, "Cooldown after a state write in milliseconds")
	pflag.Int(seekToleranceMs.flagKey, seekToleranceMs.defaultValue, "Playhead drift tolerated without seeking in milliseconds")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(progressDebounceMs.flagKey, progressDebounceMs.envKey)
	viper.BindEnv(writeCooldownMs.flagKey, writeCooldownMs.envKey)
	viper.BindEnv(seekToleranceMs.flagKey, seekToleranceMs.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(progressDebounceMs.flagKey, progressDebounceMs.defaultValue)
	viper.SetDefault(writeCooldownMs.flagKey, writeCooldownMs.defaultValue)
	viper.SetDefault(seekToleranceMs.flagKey, seekToleranceMs.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	return &app.AppConfig{
		Host:               viper.GetString(host.flagKey),
		Port:               viper.GetInt(port.flagKey),
		LogLevel:           viper.GetString(logLevel.flagKey),
		ProgressDebounceMs: viper.GetInt(progressDebounceMs.flagKey),
		WriteCooldownMs:    viper.GetInt(writeCooldownMs.flagKey),
		SeekToleranceMs:    viper.GetInt(seekToleranceMs.flagKey),
		RedisPort:          viper.GetInt(redisPort.flagKey),
		RedisHost:          viper.GetString(redisHost.flagKey),
		RedisPassword:      viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
