// Package config holds the server settings. Values come from defaults, then
// environment variables, then command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Addr            string
	AllowOrigins    string
	ReadBufferSize  int
	WriteBufferSize int
}

func Default() Config {
	return Config{
		Addr:            ":3000",
		AllowOrigins:    "http://localhost:5173",
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// FromEnv overlays CHESS_* environment variables on cfg.
func FromEnv(cfg Config, getenv func(string) string) (Config, error) {
	if v := getenv("CHESS_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("CHESS_ALLOW_ORIGINS"); v != "" {
		cfg.AllowOrigins = v
	}
	for name, dst := range map[string]*int{
		"CHESS_WS_READ_BUFFER":  &cfg.ReadBufferSize,
		"CHESS_WS_WRITE_BUFFER": &cfg.WriteBufferSize,
	} {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return cfg, cfg.Validate()
}

// Load reads the environment and then parses args with fs.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := FromEnv(Default(), os.Getenv)
	if err != nil {
		return cfg, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	fs.StringVar(&cfg.AllowOrigins, "origins", cfg.AllowOrigins, "Comma separated CORS origins")
	fs.IntVar(&cfg.ReadBufferSize, "ws-read-buffer", cfg.ReadBufferSize, "WebSocket read buffer size")
	fs.IntVar(&cfg.WriteBufferSize, "ws-write-buffer", cfg.WriteBufferSize, "WebSocket write buffer size")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.ReadBufferSize <= 0 || c.WriteBufferSize <= 0 {
		return fmt.Errorf("websocket buffer sizes must be positive")
	}
	return nil
}

// Origins splits AllowOrigins for the websocket origin check.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
