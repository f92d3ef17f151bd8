package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voicestream-ai/voicestream-go/pkg/voicestream"
)

// agentConfig is the YAML file shape. Every field can be overridden by a
// VOICESTREAM_* environment variable (see applyEnv).
type agentConfig struct {
	ServerURL  string `yaml:"server_url"`
	TenantID   string `yaml:"tenant_id"`
	TenantName string `yaml:"tenant_name"`
	AuthToken  string `yaml:"auth_token"`

	AIClinicMode   bool   `yaml:"ai_clinic_mode"`
	FillerPhraseEn string `yaml:"filler_phrase_en"`
	FillerPhraseAr string `yaml:"filler_phrase_ar"`

	PingIntervalSec int `yaml:"ping_interval_sec"`

	InputSampleRate  int `yaml:"input_sample_rate"`
	OutputSampleRate int `yaml:"output_sample_rate"`

	Reconnect struct {
		Enabled     *bool `yaml:"enabled"`
		MaxAttempts int   `yaml:"max_attempts"`
	} `yaml:"reconnect"`

	Debug bool `yaml:"debug"`
}

func loadAgentConfig(path string) (agentConfig, error) {
	var cfg agentConfig

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	cfg.applyEnv()

	if cfg.ServerURL == "" {
		return cfg, fmt.Errorf("server_url must be set (config file or VOICESTREAM_SERVER_URL)")
	}
	if cfg.TenantID == "" {
		return cfg, fmt.Errorf("tenant_id must be set (config file or VOICESTREAM_TENANT_ID)")
	}
	return cfg, nil
}

func (c *agentConfig) applyEnv() {
	if v := os.Getenv("VOICESTREAM_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("VOICESTREAM_TENANT_ID"); v != "" {
		c.TenantID = v
	}
	if v := os.Getenv("VOICESTREAM_TENANT_NAME"); v != "" {
		c.TenantName = v
	}
	if v := os.Getenv("VOICESTREAM_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if os.Getenv("VOICESTREAM_DEBUG") == "1" {
		c.Debug = true
	}
}

// toSDKConfig maps the agent file onto the SDK configuration.
func (c agentConfig) toSDKConfig() voicestream.Config {
	cfg := voicestream.DefaultConfig()
	cfg.ServerURL = c.ServerURL
	cfg.TenantID = c.TenantID
	cfg.TenantName = c.TenantName
	cfg.AuthToken = c.AuthToken
	cfg.AIClinicMode = c.AIClinicMode
	cfg.FillerPhraseEn = c.FillerPhraseEn
	cfg.FillerPhraseAr = c.FillerPhraseAr

	if c.PingIntervalSec > 0 {
		cfg.PingInterval = time.Duration(c.PingIntervalSec) * time.Second
	}
	if c.InputSampleRate > 0 {
		cfg.Audio.InputSampleRate = c.InputSampleRate
	}
	if c.OutputSampleRate > 0 {
		cfg.Audio.OutputSampleRate = c.OutputSampleRate
	}
	if c.Reconnect.Enabled != nil {
		cfg.Reconnect.Enabled = *c.Reconnect.Enabled
	}
	if c.Reconnect.MaxAttempts > 0 {
		cfg.Reconnect.MaxAttempts = c.Reconnect.MaxAttempts
	}
	return cfg
}
