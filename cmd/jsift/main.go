// Command jsift extracts subtrees from JSON on stdin, streaming: output
// for a match starts as soon as the match is complete, however large or
// slow the input is.
//
// Usage:
//
//	jsift [options] PATTERN < input.json
//
// PATTERN is a dot-separated path pattern: '*' matches any key or index
// at its depth, a run of digits is an array index, anything else is a
// key.  Matching is a prefix test, so 'users.*.name' finds every name
// whatever lies below it.
//
//	cat fruit.json | jsift '*.results'
//	curl -N https://api.example.com/report | jsift -values 'rows.*'
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"

	"github.com/jsonsift/jsonsift"
	"github.com/jsonsift/jsonsift/jsonpath"
	"github.com/jsonsift/jsonsift/splitter"
	"github.com/jsonsift/jsonsift/stream"
)

func main() {
	var (
		configFile string
		cfg        = defaultConfig()
	)

	flag.Usage = printUsage
	flag.StringVar(&configFile, "config", "", "YAML file with option defaults")
	flag.BoolVar(&cfg.Values, "values", cfg.Values, "output materialized values instead of re-serialized text")
	flag.BoolVar(&cfg.Paths, "paths", cfg.Paths, "prefix each subtree with its path")
	flag.StringVar(&cfg.Color, "color", cfg.Color, "colorize path prefixes: auto, always, never")
	flag.Float64Var(&cfg.Rate, "rate", cfg.Rate, "throttle input to N fragments per second (0 = unlimited)")
	flag.IntVar(&cfg.Buffer, "buffer", cfg.Buffer, "tokens buffered per unread sub-stream")
	flag.Parse()

	if configFile != "" {
		fileCfg, err := loadConfig(configFile)
		if err != nil {
			fatalError("%s", err)
		}
		// Flags given on the command line win over the config file.
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		cfg.merge(fileCfg, set)
	}

	pattern := cfg.Pattern
	if flag.NArg() > 0 {
		pattern = flag.Arg(0)
	}
	compiled, err := jsonpath.ParsePattern(pattern)
	if err != nil {
		fatalError("%s", err)
	}

	useColor := false
	switch cfg.Color {
	case "always":
		useColor = true
	case "never":
	case "auto":
		useColor = isatty.IsTerminal(os.Stdout.Fd())
	default:
		fatalError("invalid -color value: %q (use auto, always, or never)", cfg.Color)
	}

	var stdout io.Writer = os.Stdout
	if useColor {
		stdout = colorable.NewColorableStdout()
	}
	out := bufio.NewWriter(stdout)
	defer out.Flush()

	var source stream.ReadStream[[]byte] = jsonsift.FromReader(os.Stdin)
	if cfg.Rate > 0 {
		source = throttle(source, cfg.Rate)
	}

	subs := jsonsift.Extract(source, compiled, splitter.WithBufferLimit(cfg.Buffer))
	for {
		sub, err := subs.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			fatalError("%s", err)
		}
		if cfg.Paths {
			if useColor {
				fmt.Fprintf(out, "%s%s%s = ", pathColor, sub.Path(), resetColor)
			} else {
				fmt.Fprintf(out, "%s = ", sub.Path())
			}
		}
		var text []byte
		if cfg.Values {
			result, err := jsonsift.SubStreamValue(sub)
			if err != nil {
				fatalError("%s", err)
			}
			text, err = gojson.Marshal(result.Value)
			if err != nil {
				fatalError("%s", err)
			}
		} else {
			text, err = jsonsift.SubStreamText(sub)
			if err != nil {
				fatalError("%s", err)
			}
		}
		out.Write(text)
		out.WriteByte('\n')
		// Feedback line by line when talking to a terminal.
		if useColor {
			out.Flush()
		}
	}
}

// throttle limits how fast fragments are pulled from the source, which is
// handy for watching the pipeline stream on fast local input.
func throttle(in stream.ReadStream[[]byte], perSecond float64) stream.ReadStream[[]byte] {
	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	return stream.Transform(in, func(in stream.ReadStream[[]byte], out stream.WriteStream[[]byte]) error {
		ctx := context.Background()
		for {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			fragment, err := in.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := out.Put(fragment); err != nil {
				return err
			}
		}
	})
}

func fatalError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "jsift: "+msg+"\n", args...)
	os.Exit(1)
}

var (
	pathColor  = "\033[34;1m"
	resetColor = "\033[0m"
)

func printUsage() {
	fmt.Fprint(os.Stderr, `jsift - streaming JSON subtree extraction

USAGE:
  jsift [options] PATTERN < input.json

PATTERN:
  Dot-separated segments matched against each value's path as a prefix:
    *              any key or index at that depth
    digits         an array index
    anything else  an object key (double-quote keys containing dots)
  The empty pattern or '$' matches every top-level value.

OPTIONS:
  -values       output each match as a materialized value (ordered keys)
  -paths        prefix each match with its path, e.g. $["items"][3] =
  -color MODE   colorize path prefixes: auto, always, never
  -rate N       throttle input to N fragments per second
  -buffer N     tokens buffered per unread sub-stream (default 64)
  -config FILE  YAML file with defaults for the options above

EXAMPLES:
  # Every per-category result list, one JSON document per line
  cat report.json | jsift '*.results'

  # Names of all users, with their locations
  cat users.json | jsift -paths 'users.*.name'
`)
}
