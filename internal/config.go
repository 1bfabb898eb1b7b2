package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,required=true"`
	Port     int    `env:"PORT,required=true"`
	LogLevel string `env:"LOG_LEVEL,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	SendBufferSize int           `env:"SEND_BUFFER_SIZE,required=true"`
	SinkTimeout    time.Duration `env:"SINK_TIMEOUT,required=true"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,required=true"`

	StatsInterval   time.Duration `env:"STATS_INTERVAL,required=true"`
	CharReplacement string        `env:"MODERATION_CHARACTER_REPLACEMENT,required=true"`

	AllowedOrigin string `env:"ALLOWED_ORIGIN"`
	DebugPort     int    `env:"DEBUG_PORT"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
