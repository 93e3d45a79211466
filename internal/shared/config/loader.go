package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "CLIPFUSION"

func load(configPath string) (Config, error) {
	if !fileExist(configPath) {
		return Config{}, fmt.Errorf("config file not exist, configPath=%v", configPath)
	}

	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var conf Config
	err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("viper unmarshal config: %w", err)
	}
	return conf, nil
}

// setDefaults 同时让 AutomaticEnv 能识别到这些 key（viper 只对已知 key 读环境变量）。
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "clipfusion")
	v.SetDefault("app.environment", "development")

	v.SetDefault("httpserver.host", "0.0.0.0")
	v.SetDefault("httpserver.port", 8000)
	v.SetDefault("httpserver.api_prefix", "/api")
	v.SetDefault("httpserver.cors_allow_origins", []string{"*"})

	v.SetDefault("grpcserver.host", "0.0.0.0")
	v.SetDefault("grpcserver.port", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.timezone", "Asia/Shanghai")
	v.SetDefault("log.file_dir", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.dev", false)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.connect_timeout", "2s")
	v.SetDefault("redis.socket_timeout", "2s")
	v.SetDefault("redis.health_check_interval", "30s")

	v.SetDefault("auth.jwt_secret", "")
}

func fileExist(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}
