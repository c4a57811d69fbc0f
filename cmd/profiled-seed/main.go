// Package main loads profile fixtures from a YAML file into the database,
// for local development and demos.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openprofiles/profiled/config"
	"github.com/openprofiles/profiled/profiles"
	"github.com/openprofiles/profiled/profiles/sqlite"
)

type fixtures struct {
	Profiles []profiles.Profile `yaml:"profiles"`
	Friends  []friendEdge       `yaml:"friends"`
}

type friendEdge struct {
	Username string `yaml:"username"`
	Friend   string `yaml:"friend"`
}

func main() {
	var (
		configPath   string
		fixturesPath string
	)
	flag.StringVar(&configPath, "config", "", "path to the YAML config file")
	flag.StringVar(&fixturesPath, "fixtures", "fixtures.yaml", "path to the YAML fixtures file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabasePath == "" {
		fmt.Fprintln(os.Stderr, "database_path must be set to seed a database")
		os.Exit(2)
	}

	fx, err := loadFixtures(fixturesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixtures: %v\n", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	for _, p := range fx.Profiles {
		if _, err := store.Upsert(ctx, p); err != nil {
			fmt.Fprintf(os.Stderr, "seed profile %q: %v\n", p.Username, err)
			os.Exit(1)
		}
	}
	for _, e := range fx.Friends {
		if err := store.AddFriend(ctx, e.Username, e.Friend); err != nil {
			fmt.Fprintf(os.Stderr, "seed friendship %s -> %s: %v\n", e.Username, e.Friend, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded %d profiles and %d friendships into %s\n",
		len(fx.Profiles), len(fx.Friends), cfg.DatabasePath)
}

func loadFixtures(path string) (fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fixtures{}, err
	}
	var fx fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fixtures{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range fx.Profiles {
		fx.Profiles[i].Normalize()
		if err := fx.Profiles[i].Validate(); err != nil {
			return fixtures{}, fmt.Errorf("profile %d: %w", i, err)
		}
	}
	return fx, nil
}
