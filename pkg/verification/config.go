package verification

// Config holds vendor connection and sender settings for HTTPDispatcher.
// Embed this in your app config for env parsing with caarlos0/env.
type Config struct {
	Endpoint  string `env:"MAGICLINK_ENDPOINT"` // Defaults to the vendor's public endpoint
	APIKey    string `env:"MAGICLINK_API_KEY"`
	FromEmail string `env:"MAGICLINK_FROM_EMAIL"`
	FromName  string `env:"MAGICLINK_FROM_NAME"`
	Subject   string `env:"MAGICLINK_SUBJECT"` // Overrides the composer's subject
}

// From returns the formatted sender address.
func (c Config) From() string {
	return FormatAddress(c.FromName, c.FromEmail)
}
