package config

// APIConfig configures the HTTP server of the serve command.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on the decision log endpoint.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
