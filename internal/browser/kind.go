package browser

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Kind names a supported browser.
type Kind string

const (
	Chrome           Kind = "chrome"
	Firefox          Kind = "firefox"
	Edge             Kind = "edge"
	InternetExplorer Kind = "internet explorer"
	Safari           Kind = "safari"
)

func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := variants[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrBrowserNotSupported, name)
	}
	return k, nil
}

// Options configure a session before it is opened.
type Options struct {
	Args []string
	// Prefs are browser preferences. Only Chrome and Firefox accept them.
	Prefs       map[string]interface{}
	Headless    bool
	ExecPath    string
	DownloadDir string
}

type variant struct {
	acceptsPrefs bool
	open         func(ctx context.Context, opts Options, log *zap.Logger) (Session, error)
}

var variants = map[Kind]variant{
	Chrome: {acceptsPrefs: true, open: openChrome},
	Edge: {open: func(ctx context.Context, opts Options, log *zap.Logger) (Session, error) {
		if opts.ExecPath == "" {
			opts.ExecPath = "microsoft-edge"
		}
		return openChrome(ctx, opts, log)
	}},
	Firefox: {acceptsPrefs: true, open: openFirefox},
	Safari:  {open: openWebKit},
	InternetExplorer: {open: func(context.Context, Options, *zap.Logger) (Session, error) {
		return nil, fmt.Errorf("%w: no driver for %s", ErrBrowserNotSupported, InternetExplorer)
	}},
}

// NewOpener validates opts for kind and returns an Opener for it. Prefs given
// to a browser that cannot take them fail with ErrOptionsNotSupported.
func NewOpener(kind Kind, opts Options, log *zap.Logger) (Opener, error) {
	v, ok := variants[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBrowserNotSupported, kind)
	}
	if len(opts.Prefs) > 0 && !v.acceptsPrefs {
		return nil, fmt.Errorf("%w: %s", ErrOptionsNotSupported, kind)
	}
	log = log.Named("browser").With(zap.String("kind", string(kind)))
	return func(ctx context.Context) (Session, error) {
		log.Info("Starting browser session", zap.Bool("headless", opts.Headless))
		return v.open(ctx, opts, log)
	}, nil
}

// flagName strips leading dashes and splits "--name=value".
func flagName(arg string) (string, string, bool) {
	arg = strings.TrimLeft(arg, "-")
	name, value, hasValue := strings.Cut(arg, "=")
	return name, value, hasValue
}
