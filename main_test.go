package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/metcalfc/hark/internal/speech"
	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	viper.SetDefault("engine", string(speech.KindSystem))
	viper.SetDefault("lang", "en")
	t.Cleanup(viper.Reset)
}

func TestLoadSettingsDefaults(t *testing.T) {
	resetViper(t)

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Params != speech.DefaultParams() {
		t.Errorf("params = %+v, want defaults", s.Params)
	}
	if s.Binaries.FFmpeg == "" || s.Binaries.GTTS == "" {
		t.Errorf("binaries missing defaults: %+v", s.Binaries)
	}
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		want    speech.Params
		wantErr error
	}{
		{
			name:   "cloud by language name",
			values: map[string]any{"engine": "cloud", "lang": "Japanese", "slow": true},
			want:   speech.Params{Engine: speech.KindCloud, Language: "ja", Slow: true},
		},
		{
			name:   "system voice and rate",
			values: map[string]any{"voice": 3, "rate": -4},
			want:   speech.Params{Engine: speech.KindSystem, VoiceIndex: 3, Rate: -4, Language: "en"},
		},
		{
			name:    "unknown engine",
			values:  map[string]any{"engine": "robot"},
			wantErr: speech.ErrUnknownEngine,
		},
		{
			name:    "unknown language",
			values:  map[string]any{"lang": "elvish"},
			wantErr: speech.ErrUnknownLanguage,
		},
		{
			name:   "rate out of range",
			values: map[string]any{"rate": 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			for k, v := range tt.values {
				viper.Set(k, v)
			}

			s, err := loadSettings()
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.want == (speech.Params{}):
				if err == nil {
					t.Fatal("expected an error")
				}
			default:
				if err != nil {
					t.Fatalf("loadSettings: %v", err)
				}
				if s.Params != tt.want {
					t.Errorf("params = %+v, want %+v", s.Params, tt.want)
				}
			}
		})
	}
}

func TestLoadSettingsBinaryOverride(t *testing.T) {
	resetViper(t)
	t.Setenv("HARK_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	s, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Binaries.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg = %q", s.Binaries.FFmpeg)
	}
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	dir := t.TempDir()
	configFile = filepath.Join(dir, "nested", "hark.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile: %v", err)
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != defaultConfig {
		t.Error("config file does not hold the default config")
	}

	// An existing file is left alone.
	if err := os.WriteFile(configFile, []byte("engine: cloud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureConfigFile(); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(configFile)
	if string(data) != "engine: cloud\n" {
		t.Errorf("existing config overwritten: %q", data)
	}

	configFile = filepath.Join(dir, "hark.toml")
	if err := ensureConfigFile(); err == nil || !strings.Contains(err.Error(), "not a supported configuration type") {
		t.Errorf("err = %v", err)
	}
}

func TestConfigLookupDoesNotWrite(t *testing.T) {
	resetViper(t)
	oldFile, oldDefault := configFile, defaultConfigFile
	t.Cleanup(func() { configFile, defaultConfigFile = oldFile, oldDefault })

	dir := t.TempDir()
	t.Setenv("HARK_CONFIG_HOME", dir)
	configFile = ""

	tryLoadConfigFromDefaultPlaces()

	path := filepath.Join(dir, "hark.yml")
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("config lookup touched %s: %v", path, err)
	}
	if defaultConfigFile != path {
		t.Errorf("defaultConfigFile = %q, want %q", defaultConfigFile, path)
	}
	if viper.ConfigFileUsed() != "" {
		t.Skipf("a config file already exists at %s", viper.ConfigFileUsed())
	}

	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile: %v", err)
	}
	if configFile != path {
		t.Errorf("configFile = %q, want %q", configFile, path)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != defaultConfig {
		t.Errorf("default config not written: %v", err)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	resetViper(t)
	viper.SetConfigType("yaml")
	if err := viper.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	s, err := loadSettings()
	if err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if s.Params != speech.DefaultParams() {
		t.Errorf("params = %+v", s.Params)
	}
}
