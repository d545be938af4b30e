package telemetry

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	// Enabled turns on span export. When false a no-op tracer is installed.
	Enabled bool

	// ServiceName is reported as service.name on every span
	ServiceName string

	// ServiceVersion is reported as service.version
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address (e.g. "localhost:4317")
	Endpoint string

	// Insecure disables TLS on the collector connection
	Insecure bool

	// SampleRate is the fraction of requests traced, from 0.0 to 1.0
	SampleRate float64
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "rotdisk",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
