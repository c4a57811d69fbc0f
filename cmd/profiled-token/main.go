// Package main issues a signed session token for a username, for handing out
// sessions from the command line during development and operations.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/openprofiles/profiled/config"
	"github.com/openprofiles/profiled/profiles"
	"github.com/openprofiles/profiled/session"
)

func main() {
	var (
		configPath string
		username   string
		ttl        time.Duration
	)
	flag.StringVar(&configPath, "config", "", "path to the YAML config file")
	flag.StringVar(&username, "username", "", "username to issue the session for")
	flag.DurationVar(&ttl, "ttl", 0, "session lifetime override (default: config ttl)")
	flag.Parse()

	if username == "" {
		fmt.Fprintln(os.Stderr, "usage: profiled-token -username <name> [-config <path>] [-ttl <duration>]")
		os.Exit(2)
	}
	if !profiles.ValidUsername(username) {
		fmt.Fprintf(os.Stderr, "invalid username %q\n", username)
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if ttl == 0 {
		ttl = time.Duration(cfg.Session.TTL)
	}

	mgr, err := session.NewManager(cfg.Session.Key, cfg.Session.Issuer, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "session manager: %v\n", err)
		os.Exit(1)
	}

	token, err := mgr.Issue(username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
