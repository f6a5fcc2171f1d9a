package main

import (
	"flag"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// config is the headless client's full configuration: original_source's
// example.cpp took HOST and ROOM as bare argv, plus a -s flag for
// self-signed TLS. This mirrors that surface but reads from the
// environment too, the way immxrtalbeast-axenix_conf's config package
// layers flags over env vars.
type config struct {
	Host               string `env:"JITSI_HOST" env-description:"XMPP domain to connect to"`
	Room               string `env:"JITSI_ROOM" env-description:"conference room name"`
	Nick               string `env:"JITSI_NICK" env-default:"libjitsimeet"`
	LogLevel           string `env:"JITSI_LOG_LEVEL" env-default:"info"`
	InsecureSkipVerify bool   `env:"JITSI_INSECURE_SKIP_VERIFY" env-default:"false"`
}

// loadConfig reads cleanenv-tagged environment variables into a config,
// then lets -host/-room/-nick/-insecure flags override them, the same
// precedence immxrtalbeast-axenix_conf's fetchConfigPath gives -config
// over CONFIG_PATH over the hardcoded default.
func loadConfig() (config, error) {
	var cfg config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return config{}, fmt.Errorf("headless-client: reading env config: %w", err)
	}

	flag.StringVar(&cfg.Host, "host", cfg.Host, "XMPP domain to connect to")
	flag.StringVar(&cfg.Room, "room", cfg.Room, "conference room name")
	flag.StringVar(&cfg.Nick, "nick", cfg.Nick, "nickname to present in the room")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus level name")
	flag.BoolVar(&cfg.InsecureSkipVerify, "insecure", cfg.InsecureSkipVerify, "accept self-signed TLS certificates")
	flag.Parse()

	if cfg.Host == "" || cfg.Room == "" {
		return config{}, fmt.Errorf("headless-client: both -host and -room are required")
	}
	return cfg, nil
}
