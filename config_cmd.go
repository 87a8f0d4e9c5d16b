package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/editor"
	"github.com/metcalfc/hark/internal/narrator"
	"github.com/metcalfc/hark/internal/speech"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech engine: "system" (the OS voice) or "cloud" (Google Translate TTS)
engine: "system"
# index into the list printed by "hark voices"
voice: 0
# system speaking rate, from -10 (slowest) to 10 (fastest)
rate: 0
# cloud language, by code or name (see "hark languages")
lang: "en"
# slower cloud speech
slow: false
# write debug messages to the log file
debug: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the hark config file",
	Long:    paragraph(fmt.Sprintf("\n%s the hark config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("hark config\nhark config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Hark", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

// defaultConfigFile is where "hark config" creates a config file when none
// was found.
var defaultConfigFile string

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	if configFile == "" {
		configFile = defaultConfigFile
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "hark")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "hark")}, dirs...)
	}

	if c := os.Getenv("HARK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("hark")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("hark")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	defaultConfigFile = filepath.Join(dirs[0], "hark.yml")
}

// settings is everything the interfaces need from flags, config and
// environment.
type settings struct {
	Params   speech.Params
	Binaries speech.Binaries
}

// loadSettings reads the engine settings from viper and the program
// overrides from the environment.
func loadSettings() (settings, error) {
	kind, err := speech.ParseKind(viper.GetString("engine"))
	if err != nil {
		return settings{}, fmt.Errorf("%w: %q", err, viper.GetString("engine"))
	}

	lang, err := speech.LookupLanguage(viper.GetString("lang"))
	if err != nil {
		return settings{}, fmt.Errorf("%w: %q (see \"hark languages\")", err, viper.GetString("lang"))
	}

	p := speech.Params{
		Engine:     kind,
		VoiceIndex: viper.GetInt("voice"),
		Rate:       viper.GetInt("rate"),
		Language:   lang.Code,
		Slow:       viper.GetBool("slow"),
	}
	if err := narrator.ValidateParams(p); err != nil {
		return settings{}, err
	}

	bins, err := env.ParseAs[speech.Binaries]()
	if err != nil {
		return settings{}, fmt.Errorf("error parsing environment: %w", err)
	}

	return settings{Params: p, Binaries: bins}, nil
}
