package config

import "time"

type Config struct {
	App        AppConfig        `yaml:"app" mapstructure:"app"`
	HTTPServer HTTPServerConfig `yaml:"httpserver" mapstructure:"httpserver"`
	GRPCServer GRPCServerConfig `yaml:"grpcserver" mapstructure:"grpcserver"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
}

type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

type HTTPServerConfig struct {
	Host             string   `yaml:"host" mapstructure:"host"`
	Port             int      `yaml:"port" mapstructure:"port"`
	APIPrefix        string   `yaml:"api_prefix" mapstructure:"api_prefix"`
	CorsAllowOrigins []string `yaml:"cors_allow_origins" mapstructure:"cors_allow_origins"`
}

// GRPCServerConfig 的 Port 为 0 时不启动 gRPC 服务。
type GRPCServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`       // debug/info/warn/error...
	Timezone   string `yaml:"timezone" mapstructure:"timezone"` // IANA 时区名，日志统一按此展示
	FileDir    string `yaml:"file_dir" mapstructure:"file_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Dev        bool   `yaml:"dev" mapstructure:"dev"`
}

type RedisConfig struct {
	URL                 string        `yaml:"url" mapstructure:"url"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	SocketTimeout       time.Duration `yaml:"socket_timeout" mapstructure:"socket_timeout"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" mapstructure:"health_check_interval"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}
