package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/pas2cs/internal"
	"codeberg.org/snonux/pas2cs/internal/exporter"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pas2cs [file.pas]",
		Short: "Pascal to C# transpiler client",
		Long: `pas2cs sends Pascal source code to a transpile service and shows
the C# translation next to it. The session is saved between runs.

Examples:
  pas2cs                        # Launch interactive GUI (default)
  pas2cs hello.pas              # Transpile a file and export the result
  pas2cs - < hello.pas          # Read the program from standard input
  pas2cs --show                 # Print the saved session
  pas2cs --backend openai x.pas # Transpile with an OpenAI model`,
		Args:    cobra.MaximumNArgs(1),
		Version: internal.Version,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

// DefaultStatePath is where the session database lives unless configured.
func DefaultStatePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "pas2cs", "session.db")
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.pas2cs.yaml)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn or error")

	// Local flags
	cmd.Flags().StringVar(&flags.StatePath, "state", DefaultStatePath(), "Session database file")
	cmd.Flags().StringVarP(&flags.ExportDir, "output", "o", exporter.DefaultDir(), "Directory for downloaded translations")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available OpenAI models for the current API key")
	cmd.Flags().BoolVar(&flags.Show, "show", false, "Print the saved session and exit")
	cmd.Flags().BoolVar(&flags.Clear, "clear", false, "Clear the saved session and exit")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Move the saved session to the archive directory and exit")
	cmd.Flags().BoolVar(&flags.NoExport, "no-export", false, "Print the translation without writing a file")

	// Backend flags
	cmd.Flags().StringVarP(&flags.Backend, "backend", "b", flags.Backend, "Transpile backend: http, openai or gemini")
	cmd.Flags().StringVar(&flags.ServerURL, "server", flags.ServerURL, "Base URL of the transpile service")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Request timeout for the transpile service (0 waits indefinitely)")
	cmd.Flags().StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI chat model for the openai backend")
	cmd.Flags().StringVar(&flags.GeminiModel, "gemini-model", flags.GeminiModel, "Gemini model for the gemini backend")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("state.path", cmd.Flags().Lookup("state"))
	viper.BindPFlag("export.dir", cmd.Flags().Lookup("output"))
	viper.BindPFlag("backend", cmd.Flags().Lookup("backend"))
	viper.BindPFlag("server.url", cmd.Flags().Lookup("server"))
	viper.BindPFlag("server.timeout", cmd.Flags().Lookup("timeout"))
	viper.BindPFlag("openai.model", cmd.Flags().Lookup("openai-model"))
	viper.BindPFlag("gemini.model", cmd.Flags().Lookup("gemini-model"))
}

// InitConfig points viper at the config file (or $HOME/.pas2cs.yaml and
// ./.pas2cs.yaml) and at PAS2CS_* environment variables.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		} else {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pas2cs")
	}

	setDefaults()

	// PAS2CS_SERVER_URL overrides server.url and so on
	viper.SetEnvPrefix("PAS2CS")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey returns OPENAI_API_KEY, falling back to openai.key.
func GetOpenAIKey() string {
	return apiKey("OPENAI_API_KEY", "openai.key")
}

// GetGeminiKey returns GEMINI_API_KEY, falling back to gemini.key.
func GetGeminiKey() string {
	return apiKey("GEMINI_API_KEY", "gemini.key")
}

func apiKey(env, configKey string) string {
	if key := os.Getenv(env); key != "" {
		return key
	}
	return viper.GetString(configKey)
}
