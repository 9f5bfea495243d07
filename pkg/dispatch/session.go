package dispatch

import (
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Session defaults.
const (
	DefaultUser   = "api-server"
	DefaultSource = "rakam"
	DefaultSchema = "default"
)

// Protocol selects the header family of the statement protocol.
type Protocol string

const (
	ProtocolPresto Protocol = "presto"
	ProtocolTrino  Protocol = "trino"
)

func (p Protocol) headerPrefix() string {
	if p == ProtocolTrino {
		return "X-Trino-"
	}
	return "X-Presto-"
}

// SessionOptions are the fixed parts of every session.
type SessionOptions struct {
	User     string   `koanf:"user"`
	Source   string   `koanf:"source"`
	Schema   string   `koanf:"schema"`
	Protocol Protocol `koanf:"protocol"`
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.User == "" {
		o.User = DefaultUser
	}
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.Schema == "" {
		o.Schema = DefaultSchema
	}
	if o.Protocol == "" {
		o.Protocol = ProtocolPresto
	}
	return o
}

// Validate checks the protocol name.
func (o SessionOptions) Validate() error {
	switch o.Protocol {
	case "", ProtocolPresto, ProtocolTrino:
		return nil
	default:
		return &core.ArgumentError{Field: "session.protocol", Reason: "must be presto or trino, got " + string(o.Protocol)}
	}
}

// Session describes who a query runs as and where.
type Session struct {
	Server     *url.URL
	User       string
	Source     string
	Catalog    string
	Schema     string
	TimeZone   string
	Locale     language.Tag
	Properties map[string]string
	// CompressionDisabled asks the engine not to compress responses.
	CompressionDisabled bool
	Protocol            Protocol
}

// NewSession builds a session for cfg. Time zone and locale are read from
// the environment on every call.
func NewSession(cfg core.EngineConfig, opts SessionOptions) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	server, err := serverURL(cfg)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	return &Session{
		Server:              server,
		User:                opts.User,
		Source:              opts.Source,
		Catalog:             cfg.ColdStorageConnector,
		Schema:              opts.Schema,
		TimeZone:            systemTimeZone(),
		Locale:              systemLocale(),
		Properties:          map[string]string{},
		CompressionDisabled: true,
		Protocol:            opts.Protocol,
	}, nil
}

func serverURL(cfg core.EngineConfig) (*url.URL, error) {
	host, port, err := cfg.HostPort()
	if err != nil {
		return nil, err
	}
	if port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(port))
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return &url.URL{Scheme: "http", Host: host}, nil
}

// systemTimeZone returns the IANA name of the local time zone, or "UTC"
// when it cannot be determined.
func systemTimeZone() string {
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}
	if target, err := filepath.EvalSymlinks("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}
	return "UTC"
}

// systemLocale derives a language tag from the POSIX locale variables,
// falling back to English.
func systemLocale() language.Tag {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		if tag, ok := parsePosixLocale(v); ok {
			return tag
		}
	}
	return language.English
}

// parsePosixLocale turns values like "en_US.UTF-8" or "de_DE@euro" into a tag.
func parsePosixLocale(v string) (language.Tag, bool) {
	if i := strings.IndexAny(v, ".@"); i >= 0 {
		v = v[:i]
	}
	if v == "" || v == "C" || v == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(v, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
