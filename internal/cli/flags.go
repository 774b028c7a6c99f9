package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	StatePath  string
	ExportDir  string
	LogLevel   string
	ListModels bool
	Show       bool
	Clear      bool
	Archive    bool
	NoExport   bool

	// Transpile backend flags
	Backend     string
	ServerURL   string
	Timeout     time.Duration
	OpenAIModel string
	GeminiModel string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		LogLevel:    "info",
		Backend:     "http",
		ServerURL:   "http://localhost:8000",
		OpenAIModel: "gpt-4o-mini",
		GeminiModel: "gemini-2.0-flash",
	}
}
