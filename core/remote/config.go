package remote

// Config holds the remote task service connection settings.
type Config struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string `mapstructure:"base_url" default:"https://a.wunderlist.com/api/v1"`
	// AccessToken is the OAuth access token sent as X-Access-Token.
	AccessToken string `mapstructure:"access_token" default:""`
	// ClientID is the registered application id sent as X-Client-ID.
	ClientID string `mapstructure:"client_id" default:""`
	// TimeoutSeconds bounds connection setup and response headers.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
