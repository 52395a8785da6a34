package domain

// Settings holds everything the user configures. ClientSecret and
// AccessToken are plaintext in memory and encrypted at rest by the
// settings store.
type Settings struct {
	Server        string     `json:"server"`
	ClientID      string     `json:"client_id"`
	ClientSecret  string     `json:"client_secret"`
	AccessToken   string     `json:"access_token"`
	MaxPost       int        `json:"max_post"`
	Language      string     `json:"language"`
	FirstPost     Visibility `json:"visibility_first"`
	RestOfThread  Visibility `json:"visibility_rest"`
	QuoteApproval string     `json:"quote_approval"`
	QuoteLinks    bool       `json:"quote_links"`
	PostCounter   bool       `json:"post_counter"`
}

// DefaultSettings returns the settings assumed before the user changes
// anything.
func DefaultSettings() Settings {
	return Settings{
		MaxPost:       500,
		Language:      "en",
		FirstPost:     VisibilityPublic,
		RestOfThread:  VisibilityUnlisted,
		QuoteApproval: "default",
		QuoteLinks:    true,
		PostCounter:   false,
	}
}

// Connected reports whether credentials for a server are present.
func (s Settings) Connected() bool {
	return s.Server != "" && s.AccessToken != ""
}
