package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/metcalfc/hark/internal/reader"
	"github.com/metcalfc/hark/internal/speech"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile string
	engineName string
	voiceIndex int
	rate       int
	lang       string
	slow       bool
	debug      bool

	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render

	rootCmd = &cobra.Command{
		Use:   "hark [FILE]",
		Short: "Listen to e-books in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead EPUB, Markdown and text files %s, chapter by chapter, with the system voice or Google Translate TTS.\n\nSupported formats: %s",
				keyword("aloud"), strings.Join(reader.SupportedFormats(), ", ")),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"epub", "md", "markdown", "txt"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// hark config creates the file it is pointed at.
			if cmd.Flags().Changed("config") && cmd.Name() != "config" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}
			if viper.GetBool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		RunE: execute,
	}

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List the system voices",
		Long:  paragraph("\nList the voices of the system speech engine. Pass the number in front of a voice to --voice."),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bins, err := env.ParseAs[speech.Binaries]()
			if err != nil {
				return fmt.Errorf("error parsing environment: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			for i, v := range speech.ListVoices(ctx, bins) {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", i, v)
			}
			return nil
		},
	}

	languagesCmd = &cobra.Command{
		Use:   "languages",
		Short: "List the cloud engine languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, l := range speech.Languages() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", l.Code, l.Name)
			}
			return nil
		},
	}
)

func execute(_ *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}
	log.Info("starting", "version", version, "engine", s.Params.Engine, "file", path)

	return runUI(s, path)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("hark {{.Version}} (commit: %s, built: %s)\n", commit, date))
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug messages to the log file")
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", string(speech.KindSystem), "speech engine: system or cloud")
	rootCmd.Flags().IntVarP(&voiceIndex, "voice", "v", 0, "system voice number (see hark voices)")
	rootCmd.Flags().IntVarP(&rate, "rate", "r", 0, fmt.Sprintf("system speaking rate (%d to %d)", speech.MinRate, speech.MaxRate))
	rootCmd.Flags().StringVarP(&lang, "lang", "l", "en", "cloud language code or name (see hark languages)")
	rootCmd.Flags().BoolVarP(&slow, "slow", "s", false, "slower cloud speech")

	// Config bindings
	_ = viper.BindPFlag("engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("lang", rootCmd.Flags().Lookup("lang"))
	_ = viper.BindPFlag("slow", rootCmd.Flags().Lookup("slow"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("engine", string(speech.KindSystem))
	viper.SetDefault("lang", "en")

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, languagesCmd)
}
