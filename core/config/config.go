// Package config holds the supersh configuration directory: a yaml file plus
// the SSH host key and the data files the shell writes at runtime.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
	PrivateKeyName    = "private_key"
	EventLogName      = "events.log"
	HistoryDBName     = "history.db"
)

// Configuration is the parsed config.yaml.
type Configuration struct {
	configFs afero.Fs
	dir      string

	// Motd is printed once when a shell starts.
	Motd string `json:"motd"`

	// HistorySize bounds the in-memory command history.
	HistorySize int `json:"history_size" validate:"gt=0"`
	// HistoryDB names the sqlite file commands persist to, relative to the
	// config dir. Empty disables persistence.
	HistoryDB string `json:"history_db"`
	// EventLog names the JSONL event log, relative to the config dir. Empty
	// disables event logging.
	EventLog string `json:"event_log"`

	// SSHPort is the listen port for `supersh serve`.
	SSHPort int `json:"ssh_port" validate:"gte=0,lte=65535"`
	// SSHBanner is sent to clients before authentication.
	SSHBanner string `json:"ssh_banner"`
	// AllowAnyPassword accepts every authentication attempt.
	AllowAnyPassword bool `json:"allow_any_password"`
	// MaxAuthPerMinute throttles authentication attempts. Zero disables the
	// limit.
	MaxAuthPerMinute int `json:"max_auth_per_minute" validate:"gte=0"`

	Users []User `json:"users" validate:"unique=Username,dive"`
}

// User is one SSH account.
type User struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

// Validate the configuration for basic semantic errors, reporting fields by
// their yaml names.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewBasePathFs(afero.NewOsFs(), c.dir)
	}
	return c.configFs
}

// Dir returns the configuration directory path.
func (c *Configuration) Dir() string { return c.dir }

// HistoryDBPath returns the on-disk path of the history database, or "" when
// persistence is disabled.
func (c *Configuration) HistoryDBPath() string {
	if c.HistoryDB == "" {
		return ""
	}
	return filepath.Join(c.dir, c.HistoryDB)
}

// OpenEventLog opens the event log for appending, or (nil, nil) when event
// logging is disabled.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, nil
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// PrivateKeyPem returns the bytes of the SSH host key.
func (c *Configuration) PrivateKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), PrivateKeyName)
}

// GetPasswords returns allowable passwords for the given username.
func (c *Configuration) GetPasswords(username string) []string {
	var out []string
	for _, u := range c.Users {
		if u.Username == username {
			out = append(out, u.Password)
		}
	}
	return out
}

// Default returns the embedded default configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	out.dir = "."
	return &out
}
