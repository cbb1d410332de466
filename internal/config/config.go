package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	DriverMemory = "memory"
	DriverFS     = "fs"
	DriverS3     = "s3"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"

	FetcherHTTP  = "http"
	FetcherColly = "colly"

	// DefaultArticleTotal is the length of the beginner article series.
	DefaultArticleTotal = 81
)

type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
}

type HTTPConfig struct {
	Fetcher       string `yaml:"fetcher"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	UserAgent     string `yaml:"user_agent"`
	RespectRobots bool   `yaml:"respect_robots"`
}

type ProxyConfig struct {
	PublicURL string `yaml:"public_url"`
}

type FSConfig struct {
	Path string `yaml:"path"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Path      string `yaml:"path"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
}

type MongoConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Teams    string `yaml:"teams"`
		Users    string `yaml:"users"`
		Channels string `yaml:"channels"`
	} `yaml:"collections"`
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type StorageConfig struct {
	Driver      string      `yaml:"driver"`
	Concurrency int         `yaml:"concurrency"`
	FS          FSConfig    `yaml:"fs"`
	S3          S3Config    `yaml:"s3"`
	Mongo       MongoConfig `yaml:"mongo"`
	Redis       RedisConfig `yaml:"redis"`
}

type ArticleConfig struct {
	BaseURL    string `yaml:"base_url"`
	Total      int    `yaml:"total"`
	FetchTitle bool   `yaml:"fetch_title"`
}

type ScheduleConfig struct {
	Timezone string `yaml:"timezone"`
	Quiz     string `yaml:"quiz"`
	Article  string `yaml:"article"`
}

type ChatConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`

	// SigningSecret verifies interactive callbacks; empty refuses them all.
	SigningSecret string `yaml:"signing_secret"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`

	// TriggerToken guards /trigger/*; empty refuses them all.
	TriggerToken string `yaml:"trigger_token"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type BotConfig struct {
	Site     SiteConfig     `yaml:"site"`
	HTTP     HTTPConfig     `yaml:"http"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Storage  StorageConfig  `yaml:"storage"`
	Article  ArticleConfig  `yaml:"article"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Chat     ChatConfig     `yaml:"chat"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// LoadConfig reads a YAML file, expanding ${VAR} references from the
// environment first so secrets can live in .env.
func LoadConfig(path string) (*BotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*BotConfig, error) {
	var cfg BotConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *BotConfig) applyDefaults() {
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "http://www.nw-siken.com/"
	}
	if c.HTTP.Fetcher == "" {
		c.HTTP.Fetcher = FetcherHTTP
	}
	if c.HTTP.TimeoutSec <= 0 {
		c.HTTP.TimeoutSec = 15
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "Mozilla/5.0 (nw-quizbot/1.0)"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverFS
	}
	if c.Storage.Concurrency <= 0 {
		c.Storage.Concurrency = 8
	}
	if c.Storage.FS.Path == "" {
		c.Storage.FS.Path = "./data"
	}
	if c.Storage.S3.Region == "" {
		c.Storage.S3.Region = "us-east-1"
	}
	if c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = "quizbot"
	}
	cols := &c.Storage.Mongo.Collections
	if cols.Teams == "" {
		cols.Teams = "teams"
	}
	if cols.Users == "" {
		cols.Users = "users"
	}
	if cols.Channels == "" {
		cols.Channels = "channels"
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "quizbot"
	}
	if c.Article.BaseURL == "" {
		c.Article.BaseURL = "http://www5e.biglobe.ne.jp/aji"
	}
	if c.Article.Total <= 0 {
		c.Article.Total = DefaultArticleTotal
	}
	if c.Schedule.Quiz == "" {
		c.Schedule.Quiz = "0 0 9 * * 1-5"
	}
	if c.Schedule.Article == "" {
		c.Schedule.Article = "0 0 13,18 * * 1-5"
	}
	if c.Chat.Channel == "" {
		c.Chat.Channel = "ipa-nw"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *BotConfig) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFS, DriverS3, DriverMongo, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.HTTP.Fetcher {
	case FetcherHTTP, FetcherColly:
	default:
		return fmt.Errorf("unknown fetcher %q", c.HTTP.Fetcher)
	}
	if !strings.HasPrefix(c.Site.BaseURL, "http") {
		return fmt.Errorf("site.base_url must be an http(s) URL, got %q", c.Site.BaseURL)
	}
	if err := checkPublicURL(c.Proxy.PublicURL); err != nil {
		return err
	}
	if c.Storage.Driver == DriverS3 && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
	}
	if c.Storage.Driver == DriverMongo && c.Storage.Mongo.Connection == "" {
		return fmt.Errorf("storage.mongo.connection is required for the mongo driver")
	}
	if c.Storage.Driver == DriverRedis && c.Storage.Redis.URL == "" {
		return fmt.Errorf("storage.redis.url is required for the redis driver")
	}
	return nil
}

// checkPublicURL requires an absolute http(s) URL; posted image links are built on it.
func checkPublicURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("proxy.public_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("proxy.public_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("proxy.public_url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}
