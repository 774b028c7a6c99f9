package cli

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/pas2cs/internal/exporter"
	"codeberg.org/snonux/pas2cs/internal/importer"
	"codeberg.org/snonux/pas2cs/internal/transpile"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Config is the resolved application configuration.
type Config struct {
	Transpile      transpile.Config
	StatePath      string
	ExportDir      string
	ExportFilename string
	Debounce       time.Duration
	ImportMaxBytes int64
	LogLevel       string
	LogJournal     bool
}

func setDefaults() {
	def := transpile.DefaultConfig()
	viper.SetDefault("backend", def.Backend)
	viper.SetDefault("server.url", def.ServerURL)
	viper.SetDefault("openai.model", def.OpenAIModel)
	viper.SetDefault("gemini.model", def.GeminiModel)
	viper.SetDefault("state.path", DefaultStatePath())
	viper.SetDefault("export.dir", exporter.DefaultDir())
	viper.SetDefault("export.filename", exporter.DefaultFilename)
	viper.SetDefault("editor.debounce", time.Second)
	viper.SetDefault("import.max_bytes", importer.DefaultMaxBytes)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.journal", false)
}

// LoadConfig resolves flags, environment and config file into a Config.
// InitConfig must have run first.
func LoadConfig() *Config {
	return &Config{
		Transpile: transpile.Config{
			Backend:     viper.GetString("backend"),
			ServerURL:   viper.GetString("server.url"),
			Timeout:     viper.GetDuration("server.timeout"),
			OpenAIKey:   GetOpenAIKey(),
			OpenAIModel: viper.GetString("openai.model"),
			GeminiKey:   GetGeminiKey(),
			GeminiModel: viper.GetString("gemini.model"),
		},
		StatePath:      viper.GetString("state.path"),
		ExportDir:      viper.GetString("export.dir"),
		ExportFilename: viper.GetString("export.filename"),
		Debounce:       viper.GetDuration("editor.debounce"),
		ImportMaxBytes: viper.GetInt64("import.max_bytes"),
		LogLevel:       viper.GetString("log.level"),
		LogJournal:     viper.GetBool("log.journal"),
	}
}
