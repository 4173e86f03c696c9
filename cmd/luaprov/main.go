// Package main is the entry point for the luaprov shell.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/luaprov/internal/config"
	"github.com/dshills/luaprov/internal/provenance"
	"github.com/dshills/luaprov/internal/script"
	"github.com/dshills/luaprov/internal/script/param"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (JSON)")
	expr := flag.String("e", "", "execute a Lua chunk and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("luaprov %s (%s)\n", version, commit)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	sess := script.NewSession()
	defer sess.Close()

	log := provenance.New(sess,
		provenance.WithEnabled(cfg.Enabled),
		provenance.WithReentryException(cfg.ReentryException),
		provenance.WithMaxEntries(cfg.MaxEntries),
	)
	sess.SetRecorder(log)
	if err := log.Register(sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := registerHelp(sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	for _, path := range cfg.Scripts {
		if err := sess.DoFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: startup script %s: %v\n", path, err)
			return 1
		}
	}

	for _, path := range flag.Args() {
		if err := sess.DoFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			return 1
		}
	}

	if *expr != "" {
		if err := sess.DoString(*expr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if flag.NArg() > 0 {
		return 0
	}

	return repl(sess)
}

// registerHelp exposes help() inside Lua, listing every binding.
func registerHelp(sess *script.Session) error {
	return sess.Register("help", "Lists registered functions.", nil,
		func([]param.Value) (param.Value, error) {
			var b strings.Builder
			for i, name := range sess.Bindings() {
				desc, err := sess.Describe(name)
				if err != nil {
					return nil, err
				}
				if i > 0 {
					b.WriteString("\n")
				}
				b.WriteString(desc)
			}
			return param.String{V: b.String()}, nil
		},
		script.Exempt())
}

// repl reads Lua statements from stdin until EOF.
func repl(sess *script.Session) int {
	fmt.Printf("luaprov %s -- %s\n", version, sess)
	fmt.Println(`type "print(help())" for registered functions, Ctrl-D to exit`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := sess.DoString(line); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading input: %v\n", err)
		return 1
	}
	fmt.Println()
	return 0
}
