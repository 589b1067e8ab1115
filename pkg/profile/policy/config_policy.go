package policy

import (
	"errors"
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"net/netip"
	"strings"
	"sync/atomic"
)

// ConfigPolicy exposes the externally configured capture switches. Every call reads the
// current configuration so late changes are observed by later lifecycle events.
type ConfigPolicy interface {
	CaptureEnabled() bool
	PersistEnabled() bool
	StrictSkipMode() bool
	// ClientAllowed reports whether requests from the given client address may be captured.
	ClientAllowed(clientAddress string) bool
	// LogCaptureLevel is the lowest level of log entries copied into a captured profile.
	LogCaptureLevel() zapcore.Level
}

// Settings is the raw policy as read from the environment.
type Settings struct {
	CaptureEnabled bool     `envconfig:"CAPTURE_ENABLED" default:"false"`
	PersistEnabled bool     `envconfig:"PERSIST_ENABLED" default:"false"`
	StrictSkipMode bool     `envconfig:"STRICT_SKIP" default:"false"`
	AllowedClients []string `envconfig:"ALLOWED_CLIENTS"`
	LogCapture     string   `envconfig:"LOG_CAPTURE_LEVEL" default:"info"`
}

type compiledSettings struct {
	Settings
	allowList []netip.Prefix
	logLevel  zapcore.Level
}

// EnvPolicyImpl is a ConfigPolicy backed by PROFILER_* environment variables. Reload swaps the
// whole snapshot atomically, so readers never see a half-applied configuration.
type EnvPolicyImpl struct {
	prefix  string
	current atomic.Pointer[compiledSettings]
}

// NewEnvPolicyImpl loads the policy under the given prefix. On malformed input it returns a
// policy that captures nothing together with an error wrapping ErrInvalidConfig.
func NewEnvPolicyImpl(prefix string) (*EnvPolicyImpl, error) {
	p := &EnvPolicyImpl{prefix: prefix}
	p.current.Store(&compiledSettings{})
	return p, p.Reload()
}

func (p *EnvPolicyImpl) Reload() error {
	var settings Settings
	if err := envconfig.Process(p.prefix, &settings); err != nil {
		p.current.Store(&compiledSettings{})
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	compiled, err := compile(settings)
	if err != nil {
		p.current.Store(&compiledSettings{})
		return err
	}
	p.current.Store(compiled)
	return nil
}

func (p *EnvPolicyImpl) CaptureEnabled() bool {
	return p.current.Load().CaptureEnabled
}

func (p *EnvPolicyImpl) PersistEnabled() bool {
	return p.current.Load().PersistEnabled
}

func (p *EnvPolicyImpl) StrictSkipMode() bool {
	return p.current.Load().StrictSkipMode
}

func (p *EnvPolicyImpl) ClientAllowed(clientAddress string) bool {
	return p.current.Load().allows(clientAddress)
}

func (p *EnvPolicyImpl) LogCaptureLevel() zapcore.Level {
	return p.current.Load().logLevel
}

// StaticPolicy is a fixed ConfigPolicy, typically used by embedding hosts and tests.
type StaticPolicy struct {
	settings *compiledSettings
}

func NewStaticPolicy(settings Settings) (*StaticPolicy, error) {
	compiled, err := compile(settings)
	if err != nil {
		return &StaticPolicy{settings: &compiledSettings{}}, err
	}
	return &StaticPolicy{settings: compiled}, nil
}

func (p *StaticPolicy) CaptureEnabled() bool {
	return p.settings.CaptureEnabled
}

func (p *StaticPolicy) PersistEnabled() bool {
	return p.settings.PersistEnabled
}

func (p *StaticPolicy) StrictSkipMode() bool {
	return p.settings.StrictSkipMode
}

func (p *StaticPolicy) ClientAllowed(clientAddress string) bool {
	return p.settings.allows(clientAddress)
}

func (p *StaticPolicy) LogCaptureLevel() zapcore.Level {
	return p.settings.logLevel
}

func compile(settings Settings) (*compiledSettings, error) {
	compiled := &compiledSettings{Settings: settings, logLevel: zapcore.InfoLevel}
	if settings.LogCapture != "" {
		level, err := zapcore.ParseLevel(settings.LogCapture)
		if err != nil {
			return nil, fmt.Errorf("%w: log capture level: %v", ErrInvalidConfig, err)
		}
		compiled.logLevel = level
	}
	for _, entry := range settings.AllowedClients {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		prefix, err := parseAllowEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: allowed client %q: %v", ErrInvalidConfig, entry, err)
		}
		compiled.allowList = append(compiled.allowList, prefix)
	}
	return compiled, nil
}

func parseAllowEntry(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, err
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// allows treats an empty allow-list as allowing every client.
func (s *compiledSettings) allows(clientAddress string) bool {
	if len(s.allowList) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(clientAddress)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range s.allowList {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

var (
	ErrInvalidConfig = errors.New("invalid profiler configuration")
)
