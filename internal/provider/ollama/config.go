package ollama

// Config contains the inference server settings.
// Timeouts are in seconds:
//   - ConnectTimeout: bounds connection establishment (net.Dialer.Timeout)
//   - Timeout: bounds the whole request including reading the body (http.Client.Timeout)
type Config struct {
	BaseURL        string `env:"OLLAMA_BASE"            envDefault:"http://127.0.0.1:11434"`
	Model          string `env:"OLLAMA_MODEL"           envDefault:"mistral"`
	ConnectTimeout int    `env:"OLLAMA_CONNECT_TIMEOUT" envDefault:"5"`
	Timeout        int    `env:"OLLAMA_TIMEOUT"         envDefault:"45"`
}
