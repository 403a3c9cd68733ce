package auth

// Config selects how requests are authenticated. The first non-empty source
// wins, in field order.
type Config struct {
	AccessToken        string `mapstructure:"access_token"`
	TokenFile          string `mapstructure:"token_file"`
	ServiceAccountFile string `mapstructure:"service_account_file"`

	// Subject is the user a service account acts for.
	Subject string `mapstructure:"subject"`
	// ReadOnly requests the read-only Calendar scope for service accounts.
	ReadOnly bool `mapstructure:"read_only"`
}

// Method names the configured credential source.
func (c Config) Method() CredentialType {
	switch {
	case c.AccessToken != "", c.TokenFile != "":
		return CredentialTypeToken
	case c.ServiceAccountFile != "":
		return CredentialTypeServiceAccount
	default:
		return CredentialTypeUnknown
	}
}
