package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Output and input formats for packet documents.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

type Config struct {
	// Log configures optional log output file as well as the log level setting.
	// When File is set logs are rotated once the file reaches MaxSizeMB.
	Log struct {
		File       string `json:"file"`
		Level      string `json:"level"`
		MaxSizeMB  int    `json:"max_size_mb"`
		MaxBackups int    `json:"max_backups"`
		Compress   bool   `json:"compress"`
	} `json:"log"`

	Decode struct {
		// Format of decoded packet documents: text, json or msgpack.
		Format string `json:"format"`
		// Hex input is hexadecimal text instead of raw bytes. Whitespace is ignored.
		Hex bool `json:"hex"`
		// Resync skips packets with an unknown type or invalid flags instead of stopping.
		Resync bool `json:"resync"`
		// UserBuffer is the memory a single packet is decoded into. Packets larger
		// than UserBuffer fail to decode. Default 65536.
		UserBuffer int `json:"user_buffer"`
		// Workers limits the number of inputs decoded concurrently. Default 4.
		Workers int `json:"workers"`
	} `json:"decode"`

	Encode struct {
		// Format of the packet documents read: json or msgpack.
		Format string `json:"format"`
		// Hex writes hexadecimal text instead of raw bytes, one packet per line.
		Hex bool `json:"hex"`
		// Buffer is the initial capacity of the encode buffer. With the arena
		// backing it is also the largest packet that can be encoded. Default 4096.
		Buffer int `json:"buffer"`
	} `json:"encode"`
}

// Default returns a validated configuration with default values.
func Default() *Config {
	c := new(Config)
	c.validate() // Cannot fail on zero config.
	return c
}

func (c *Config) LoadFromFile(fPath string) error {
	f, err := os.Open(fPath)
	if err != nil {
		return errors.Wrap(err, "error opening config file")
	}

	defer f.Close()

	if err = json.NewDecoder(f).Decode(c); err != nil {
		return errors.Wrap(err, "error reading config file")
	}

	return c.validate()
}

// Validate checks the configuration after flags have been applied and
// fills in defaults for unset values.
func (c *Config) Validate() error { return c.validate() }

func (c *Config) validate() error {
	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "":
		c.Log.Level = "info"
	case "error", "warn", "info", "debug":
	default:
		return errors.New("unknown log level: " + c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = 0
	}

	c.Decode.Format = strings.ToLower(c.Decode.Format)
	switch c.Decode.Format {
	case "":
		c.Decode.Format = FormatText
	case FormatText, FormatJSON, FormatMsgpack:
	default:
		return errors.New("unknown decode format: " + c.Decode.Format)
	}
	if c.Decode.UserBuffer <= 0 {
		c.Decode.UserBuffer = 1 << 16
	}
	if c.Decode.Workers <= 0 {
		c.Decode.Workers = 4
	}

	c.Encode.Format = strings.ToLower(c.Encode.Format)
	switch c.Encode.Format {
	case "":
		c.Encode.Format = FormatJSON
	case FormatJSON, FormatMsgpack:
	default:
		return errors.New("unknown encode format: " + c.Encode.Format)
	}
	if c.Encode.Buffer <= 0 {
		c.Encode.Buffer = 4096
	}

	return nil
}
