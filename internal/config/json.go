package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tfmagician/mi-users/internal/flagx"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config. The token TTL is expressed in hours. Boolean toggles use
// pointers so an absent key keeps the default instead of forcing false.
type JsonConfig struct {
	DatabaseDSN    string   `json:"database_dsn"`
	HashSalt       string   `json:"hash_salt"`
	Debug          *bool    `json:"debug"`
	PasswordPolicy string   `json:"password_policy"`
	TokenFields    []string `json:"token_fields"`
	TokenLength    *int     `json:"token_length"`
	TokenTTLHours  *int     `json:"token_ttl_hours"`

	SendWelcome       *bool `json:"send_welcome"`
	SendAccountChange *bool `json:"send_account_change"`
	SendTokenExpired  *bool `json:"send_token_expired"`

	Fields map[string]string `json:"fields"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config
// command-line flag; if neither is set, no JSON file is loaded. If the
// file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.HashSalt != "" {
		config.HashSalt = c.HashSalt
	}
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
	if c.PasswordPolicy != "" {
		config.PasswordPolicy = c.PasswordPolicy
	}
	if c.TokenFields != nil {
		config.TokenFields = c.TokenFields
	}
	if c.TokenLength != nil {
		config.TokenLength = *c.TokenLength
	}
	if c.TokenTTLHours != nil {
		config.TokenTTL = time.Duration(*c.TokenTTLHours) * time.Hour
	}
	if c.SendWelcome != nil {
		config.SendWelcome = *c.SendWelcome
	}
	if c.SendAccountChange != nil {
		config.SendAccountChange = *c.SendAccountChange
	}
	if c.SendTokenExpired != nil {
		config.SendTokenExpired = *c.SendTokenExpired
	}

	for role, name := range c.Fields {
		switch role {
		case "current":
			config.Fields.Current = name
		case "email":
			config.Fields.Email = name
		case "password":
			config.Fields.Password = name
		case "password_confirm":
			config.Fields.PasswordConfirm = name
		case "confirmation":
			config.Fields.Confirmation = name
		case "username":
			config.Fields.Username = name
		case "token":
			config.Fields.Token = name
		case "tos":
			config.Fields.TOS = name
		}
	}
}
