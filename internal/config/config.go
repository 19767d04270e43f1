// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the service's configuration from an optional TOML
// file and a set of CLI flags, CLI always overriding the file, exactly as
// spec.md §6 requires.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config holds every recognized option from spec.md §6.
type Config struct {
	HostIP        string   `toml:"host_ip"`
	RestAPIIP     string   `toml:"rest_api_ip"`
	RestAPIPort   int      `toml:"rest_api_port"`
	HTTPServerPort int     `toml:"http_server_port"`
	Collectors    []string `toml:"collectors"`

	CassandraServerList []string `toml:"cassandra_server_list"`
	CassandraUser       string   `toml:"cassandra_user"`
	CassandraPassword   string   `toml:"cassandra_password"`

	RedisUveList   []string `toml:"redis_uve_list"` // ip:port
	RedisServerPort int     `toml:"redis_server_port"`
	RedisQueryPort  int     `toml:"redis_query_port"`
	RedisPassword   string  `toml:"redis_password"`

	Partitions int `toml:"partitions"`

	AutoDBPurge     bool `toml:"auto_db_purge"`
	DBPurgeThreshold int `toml:"db_purge_threshold"`
	DBPurgeLevel     int `toml:"db_purge_level"`

	AnalyticsDataTTL           int `toml:"analytics_data_ttl"`
	AnalyticsFlowTTL           int `toml:"analytics_flow_ttl"`
	AnalyticsStatisticsTTL     int `toml:"analytics_statistics_ttl"`
	AnalyticsConfigAuditTTL    int `toml:"analytics_config_audit_ttl"`

	DiscServerIP   string `toml:"disc_server_ip"`
	DiscServerPort int    `toml:"disc_server_port"`

	LogLevel     string `toml:"log_level"`
	LogLocalFile string `toml:"log_local_file"`

	WorkerID string `toml:"worker_id"`
	Dup      bool   `toml:"dup"`
}

// EffectiveFlowTTL returns the flow TTL, inheriting AnalyticsDataTTL when -1.
func (c Config) EffectiveFlowTTL() time.Duration { return resolveTTL(c.AnalyticsFlowTTL, c.AnalyticsDataTTL) }

// EffectiveStatisticsTTL returns the statistics TTL, inheriting AnalyticsDataTTL when -1.
func (c Config) EffectiveStatisticsTTL() time.Duration {
	return resolveTTL(c.AnalyticsStatisticsTTL, c.AnalyticsDataTTL)
}

// EffectiveConfigAuditTTL returns the config-audit TTL, inheriting AnalyticsDataTTL when -1.
func (c Config) EffectiveConfigAuditTTL() time.Duration {
	return resolveTTL(c.AnalyticsConfigAuditTTL, c.AnalyticsDataTTL)
}

func resolveTTL(specific, fallback int) time.Duration {
	if specific < 0 {
		specific = fallback
	}
	return time.Duration(specific) * time.Hour
}

// Default returns the zero-value-safe defaults used when neither a config
// file nor flags supply a value.
func Default() Config {
	return Config{
		RestAPIPort:      8081,
		HTTPServerPort:   8090,
		RedisServerPort:  6379,
		RedisQueryPort:   6380,
		Partitions:       64,
		DBPurgeThreshold: 70,
		DBPurgeLevel:     60,
		AnalyticsDataTTL: 48,
		AnalyticsFlowTTL:        -1,
		AnalyticsStatisticsTTL:  -1,
		AnalyticsConfigAuditTTL: -1,
		LogLevel:         "info",
	}
}

// LoadFile reads and parses a TOML config file into cfg, overwriting only the
// fields the file sets (cfg should already hold Default()).
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// ParseFlags registers every recognized flag against fs, applying flag
// values over cfg only when the flag was explicitly set on the command
// line (so an unset flag never clobbers a value LoadFile already set).
func ParseFlags(fs *flag.FlagSet, cfg *Config, args []string) error {
	configFile := fs.String("config_file", "", "Path to a TOML config file; CLI flags override its values")

	hostIP := fs.String("host_ip", cfg.HostIP, "This node's IP address")
	restAPIIP := fs.String("rest_api_ip", cfg.RestAPIIP, "REST API bind address")
	restAPIPort := fs.Int("rest_api_port", cfg.RestAPIPort, "REST API bind port")
	httpServerPort := fs.Int("http_server_port", cfg.HTTPServerPort, "Introspection HTTP port")
	redisServerPort := fs.Int("redis_server_port", cfg.RedisServerPort, "kv-shard (UVE) redis port")
	redisQueryPort := fs.Int("redis_query_port", cfg.RedisQueryPort, "query-store redis port")
	redisPassword := fs.String("redis_password", cfg.RedisPassword, "redis AUTH password")
	partitions := fs.Int("partitions", cfg.Partitions, "total UVE partitions")
	autoDBPurge := fs.Bool("auto_db_purge", cfg.AutoDBPurge, "enable the disk-usage purge watchdog")
	dbPurgeThreshold := fs.Int("db_purge_threshold", cfg.DBPurgeThreshold, "disk usage pct that triggers an automatic purge")
	dbPurgeLevel := fs.Int("db_purge_level", cfg.DBPurgeLevel, "target disk usage pct after an automatic purge")
	analyticsDataTTL := fs.Int("analytics_data_ttl", cfg.AnalyticsDataTTL, "default analytics TTL, hours")
	discServerIP := fs.String("disc_server_ip", cfg.DiscServerIP, "discovery service IP")
	discServerPort := fs.Int("disc_server_port", cfg.DiscServerPort, "discovery service port")
	logLevel := fs.String("log_level", cfg.LogLevel, "zap log level")
	workerID := fs.String("worker_id", cfg.WorkerID, "worker identity for this process")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *configFile != "" {
		if err := LoadFile(cfg, *configFile); err != nil {
			return err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host_ip":
			cfg.HostIP = *hostIP
		case "rest_api_ip":
			cfg.RestAPIIP = *restAPIIP
		case "rest_api_port":
			cfg.RestAPIPort = *restAPIPort
		case "http_server_port":
			cfg.HTTPServerPort = *httpServerPort
		case "redis_server_port":
			cfg.RedisServerPort = *redisServerPort
		case "redis_query_port":
			cfg.RedisQueryPort = *redisQueryPort
		case "redis_password":
			cfg.RedisPassword = *redisPassword
		case "partitions":
			cfg.Partitions = *partitions
		case "auto_db_purge":
			cfg.AutoDBPurge = *autoDBPurge
		case "db_purge_threshold":
			cfg.DBPurgeThreshold = *dbPurgeThreshold
		case "db_purge_level":
			cfg.DBPurgeLevel = *dbPurgeLevel
		case "analytics_data_ttl":
			cfg.AnalyticsDataTTL = *analyticsDataTTL
		case "disc_server_ip":
			cfg.DiscServerIP = *discServerIP
		case "disc_server_port":
			cfg.DiscServerPort = *discServerPort
		case "log_level":
			cfg.LogLevel = *logLevel
		case "worker_id":
			cfg.WorkerID = *workerID
		}
	})

	if cfg.HostIP == "" {
		return errors.New("host_ip must be set (flag or config file)")
	}
	if cfg.Partitions <= 0 {
		return errors.New("partitions must be positive")
	}
	return nil
}
