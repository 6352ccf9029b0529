package agent

// Mode selects how the gateway reaches the engine.
const (
	// ModeHTTP talks to a remote agent runtime over HTTP.
	ModeHTTP = "http"
	// ModeEcho runs the in-process echo engine, for development and tests.
	ModeEcho = "echo"
)

// Config contains agent engine connection settings.
type Config struct {
	Mode    string `env:"AGENT_MODE"     envDefault:"http"`
	BaseURL string `env:"AGENT_BASE_URL" envDefault:"http://localhost:8787"`
	APIKey  string `env:"AGENT_API_KEY"`
	Timeout int    `env:"AGENT_TIMEOUT"  envDefault:"300"`
}
