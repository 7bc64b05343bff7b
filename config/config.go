package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	ImportPath  string
	Debug       bool
}

// ParseFlags builds the configuration from command line flags, falling back
// to FIELDLINE_* environment variables (a .env file is honored if present).
func ParseFlags() (cfg Config, err error) {
	// missing .env is fine, real env vars still apply
	_ = godotenv.Load()

	var host string
	flag.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	flag.UintVar(&port, "port", envUint("PORT", 8080), "listen port number")
	flag.StringVar(&cfg.DBUrl, "db-url", env("DB_URL", "fieldline.sqlite"), "path to SQLite3 DB file")
	flag.StringVar(&cfg.TokenSecret, "token-secret", env("TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", envUint("TOKEN_TTL", 1800), "token TTL in seconds")
	flag.StringVar(&cfg.ImportPath, "import", "", "import a form definition (YAML or JSON) and exit")
	flag.BoolVar(&cfg.Debug, "debug", env("DEBUG", "") != "", "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret (or FIELDLINE_TOKEN_SECRET)")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = strings.Replace(url, "0.0.0.0:", "localhost:", 1)
	url = "http://" + url
	return
}

func env(key, fallback string) string {
	if v := os.Getenv("FIELDLINE_" + key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint) uint {
	v := os.Getenv("FIELDLINE_" + key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fallback
	}
	return uint(n)
}
