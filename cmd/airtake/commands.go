package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	airtake "github.com/PratikDhanave/airtake-go"
	"github.com/PratikDhanave/airtake-go/internal/config"
	"github.com/PratikDhanave/airtake-go/internal/dom"
)

// deliveryTimeout bounds how long a command waits for its event to leave.
const deliveryTimeout = 10 * time.Second

var errUsage = errors.New("usage")

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseArgs accepts the positional argument before or after the flags.
func parseArgs(fs *flag.FlagSet, args []string) (string, error) {
	var positional string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		positional, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if positional == "" {
		positional = fs.Arg(0)
	}
	return positional, nil
}

type eventFlags struct {
	props    string
	actor    string
	device   string
	url      string
	referrer string
}

func addEventFlags(fs *flag.FlagSet) *eventFlags {
	f := &eventFlags{}
	fs.StringVar(&f.props, "props", "", "event properties as a JSON object")
	fs.StringVar(&f.actor, "actor", "", "$actor_id")
	fs.StringVar(&f.device, "device", "", "$device_id")
	fs.StringVar(&f.url, "url", "", "$current_url")
	fs.StringVar(&f.referrer, "referrer", "", "$referrer")
	return f
}

func (f *eventFlags) buildProps() (airtake.Props, error) {
	props := airtake.Props{}
	if f.props != "" {
		if err := sonic.ConfigStd.UnmarshalFromString(f.props, &props); err != nil {
			return nil, fmt.Errorf("--props must be a JSON object: %w", err)
		}
	}
	if f.actor != "" {
		props[airtake.PropActorID] = parseActor(f.actor)
	}
	if f.device != "" {
		props[airtake.PropDeviceID] = f.device
	}
	return props, nil
}

func (f *eventFlags) environment() airtake.Environment {
	return airtake.StaticEnvironment{URL: f.url, Ref: f.referrer}
}

// parseActor keeps integer ids numeric on the wire.
func parseActor(s string) airtake.ActorID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return airtake.IntID(n)
	}
	return airtake.StringID(s)
}

// session is a configured client plus the resources behind its persistence.
type session struct {
	client *airtake.Client
	close  func()
}

func openSession(ctx context.Context, stderr io.Writer, env airtake.Environment, autotrack bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.New()
	logger.SetOutput(stderr)
	logger.SetLevel(log.WarnLevel)
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	persistence, closePersistence, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	client, err := airtake.New(ctx, airtake.Options{
		Token:        cfg.Token,
		Disabled:     !cfg.Enabled,
		BaseURL:      cfg.BaseURL,
		Experimental: airtake.Experimental{Autotrack: autotrack || cfg.Autotrack},
		Target:       airtake.Target(cfg.Target),
		Persistence:  persistence,
		Environment:  env,
		Logger:       logger,
	})
	if err != nil {
		closePersistence()
		return nil, err
	}
	return &session{client: client, close: closePersistence}, nil
}

// finish waits for delivery and releases the session.
func (s *session) finish() error {
	defer s.close()
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	return s.client.Close(ctx)
}

// exitCode reports err and maps it to an exit code.
func exitCode(stderr io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func usageError(stderr io.Writer, format string, args ...any) int {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
	return 2
}

func runTrack(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("track", stderr)
	flags := addEventFlags(fs)
	name, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if name == "" {
		return usageError(stderr, "track requires an event name")
	}
	props, err := flags.buildProps()
	if err != nil {
		return usageError(stderr, "%v", err)
	}

	ctx := context.Background()
	sess, err := openSession(ctx, stderr, flags.environment(), false)
	if err != nil {
		return exitCode(stderr, err)
	}
	if err := sess.client.Track(ctx, name, props); err != nil {
		sess.close()
		return exitCode(stderr, err)
	}
	if err := sess.finish(); err != nil {
		return exitCode(stderr, err)
	}
	fmt.Fprintf(stdout, "track %q sent\n", name)
	return 0
}

func runIdentify(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("identify", stderr)
	flags := addEventFlags(fs)
	actor, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if actor == "" {
		return usageError(stderr, "identify requires an actor id")
	}
	props, err := flags.buildProps()
	if err != nil {
		return usageError(stderr, "%v", err)
	}

	ctx := context.Background()
	sess, err := openSession(ctx, stderr, flags.environment(), false)
	if err != nil {
		return exitCode(stderr, err)
	}
	if err := sess.client.Identify(ctx, parseActor(actor), props); err != nil {
		sess.close()
		return exitCode(stderr, err)
	}
	if err := sess.finish(); err != nil {
		return exitCode(stderr, err)
	}
	fmt.Fprintf(stdout, "identify %q sent\n", actor)
	return 0
}

func runReset(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("reset", stderr)
	if _, err := parseArgs(fs, args); err != nil {
		return 2
	}

	ctx := context.Background()
	sess, err := openSession(ctx, stderr, nil, false)
	if err != nil {
		return exitCode(stderr, err)
	}
	defer sess.close()
	if err := sess.client.Reset(ctx); err != nil {
		return exitCode(stderr, err)
	}
	fmt.Fprintln(stdout, "identity reset")
	return 0
}

func runCapture(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("capture", stderr)
	send := fs.Bool("send", false, "send an auto_track event instead of printing")
	element := fs.String("element", "", "id attribute of the interacted element")
	pageURL := fs.String("url", "", "$current_url")
	path, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if path == "" {
		return usageError(stderr, "capture requires an HTML file")
	}

	f, err := os.Open(path)
	if err != nil {
		return exitCode(stderr, err)
	}
	doc, err := html.Parse(f)
	f.Close()
	if err != nil {
		return exitCode(stderr, fmt.Errorf("parse %s: %w", path, err))
	}

	if !*send {
		snapshot, err := dom.Capture(doc)
		if err != nil {
			return exitCode(stderr, err)
		}
		fmt.Fprintln(stdout, snapshot)
		return 0
	}

	var target *html.Node
	if *element != "" {
		if target = findElementByID(doc, *element); target == nil {
			return exitCode(stderr, fmt.Errorf("no element with id %q in %s", *element, path))
		}
	}

	ctx := context.Background()
	sess, err := openSession(ctx, stderr, airtake.StaticEnvironment{URL: *pageURL, Page: doc}, true)
	if err != nil {
		return exitCode(stderr, err)
	}
	sess.client.AutoTrack(ctx, target)
	if err := sess.finish(); err != nil {
		return exitCode(stderr, err)
	}
	fmt.Fprintln(stdout, "auto_track sent")
	return 0
}

func findElementByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func runInspect(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := newFlagSet("inspect", stderr)
	snapshot, err := parseArgs(fs, args)
	if err != nil {
		return 2
	}
	if snapshot == "" {
		return usageError(stderr, `inspect requires a snapshot or "-"`)
	}
	if snapshot == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return exitCode(stderr, err)
		}
		snapshot = string(b)
	}

	markup, err := dom.Decode(strings.TrimSpace(snapshot))
	if err != nil {
		return exitCode(stderr, err)
	}
	fmt.Fprintln(stdout, markup)
	return 0
}
