package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	Token      string
	TokenFile  string
	AdminToken string
	Output     string
	Verbose    bool

	// RefreshToken is read from the credentials file
	RefreshToken string
}

// storedCredentials is the credentials file layout
type storedCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("TTT_SERVER", "http://localhost:8080"),
		Token:      os.Getenv("TTT_TOKEN"),
		TokenFile:  getEnvOrDefault("TTT_TOKEN_FILE", defaultTokenFile()),
		AdminToken: os.Getenv("TTT_ADMIN_TOKEN"),
		Output:     "text",
		Verbose:    false,
	}
}

// LoadToken loads credentials from file. A token given by flag or env wins,
// but the stored refresh token is still read.
func (c *Config) LoadToken() error {
	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No token file is fine
		}
		return err
	}

	var stored storedCredentials
	if err := json.Unmarshal(data, &stored); err != nil {
		// Plain token files hold just the access token
		stored.AccessToken = strings.TrimSpace(string(data))
	}

	if c.Token == "" {
		c.Token = stored.AccessToken
	}
	c.RefreshToken = stored.RefreshToken
	return nil
}

// SaveToken saves credentials to the token file
func (c *Config) SaveToken(accessToken, refreshToken string) error {
	c.Token = accessToken
	c.RefreshToken = refreshToken

	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(storedCredentials{AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, data, 0600)
}

// ClearToken removes the token file
func (c *Config) ClearToken() error {
	c.Token = ""
	c.RefreshToken = ""
	if err := os.Remove(c.TokenFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tttctl/credentials"
	}
	return filepath.Join(home, ".tttctl", "credentials")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
