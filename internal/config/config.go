package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/seanblong/tilindex/internal/indexer"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	RepoRoot       string   `yaml:"repoRoot" split_words:"true"`
	GitRef         string   `yaml:"gitRef" split_words:"true"`
	LinkBase       string   `yaml:"linkBase" split_words:"true"`
	Readme         string   `yaml:"readme"`
	NoteExtensions []string `yaml:"noteExtensions" split_words:"true"`
	ExcludeTopics  []string `yaml:"excludeTopics" split_words:"true"`
	TopicOrder     string   `yaml:"topicOrder" split_words:"true"`
	TitleStyle     string   `yaml:"titleStyle" split_words:"true"`
	LogLevel       string   `yaml:"logLevel" split_words:"true"`
	Rewrite        bool     `yaml:"rewrite"`
	Diff           bool     `yaml:"diff"`

	flags *pflag.FlagSet `ignored:"true"`
}

const envPrefix = "TILINDEX"

func (s *Specification) Usage() {
	fmt.Fprintf(s.flags.Output(), "Usage: tilindex [flags]\n\n%s", s.flags.FlagUsages())
}

// Load => defaults < YAML < env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/tilindex.yaml",
				"./tilindex.yaml",
				"./.tilindex.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	fs.Usage = cfg.Usage
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return Specification{}, err
	}
	return cfg, nil
}

// Validate rejects settings the indexer cannot act on.
func (s *Specification) Validate() error {
	if strings.TrimSpace(s.LinkBase) == "" {
		return fmt.Errorf("TILINDEX_LINK_BASE is required (env/file/flag)")
	}
	switch s.TopicOrder {
	case "", indexer.OrderAlpha, indexer.OrderFilesystem:
	default:
		return fmt.Errorf("invalid topic order %q (%s|%s)", s.TopicOrder, indexer.OrderAlpha, indexer.OrderFilesystem)
	}
	if _, err := indexer.TitleFuncFor(s.TitleStyle); err != nil {
		return fmt.Errorf("invalid title style %q (%s|%s)", s.TitleStyle, indexer.TitleHeading, indexer.TitlePlain)
	}
	if s.Rewrite && s.Diff {
		return fmt.Errorf("--rewrite and --diff are mutually exclusive")
	}
	return nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("repo-root", c.RepoRoot, "Path to the notes repository root")
	fs.String("git-ref", c.GitRef, "Git reference whose history dates the notes")
	fs.String("link-base", c.LinkBase, "URL prefix joined with each note's relative path")
	fs.String("readme", c.Readme, "Document to rewrite, relative to the repository root")
	fs.StringSlice("note-extensions", c.NoteExtensions, "File extensions treated as notes")
	fs.StringSlice("exclude-topics", c.ExcludeTopics, "Topic directories to leave out of the index")
	fs.String("topic-order", c.TopicOrder, "Topic order (alpha|filesystem)")
	fs.String("title-style", c.TitleStyle, "Title extraction (heading|plain)")

	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")

	fs.Bool("rewrite", c.Rewrite, "Rewrite the index and count regions of the readme in place")
	fs.Bool("diff", c.Diff, "Show how --rewrite would change the readme; exit 3 if it is stale")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setSlice := func(name string, dst *[]string) {
		if fs.Changed(name) {
			v, _ := fs.GetStringSlice(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("repo-root", &c.RepoRoot)
	setStr("git-ref", &c.GitRef)
	setStr("link-base", &c.LinkBase)
	setStr("readme", &c.Readme)
	setSlice("note-extensions", &c.NoteExtensions)
	setSlice("exclude-topics", &c.ExcludeTopics)
	setStr("topic-order", &c.TopicOrder)
	setStr("title-style", &c.TitleStyle)

	setStr("log-level", &c.LogLevel)

	setBool("rewrite", &c.Rewrite)
	setBool("diff", &c.Diff)
}

func setDefaults(c *Specification) {
	c.LogLevel = "info"
	c.RepoRoot = "."
	c.GitRef = "main"
	c.LinkBase = "https://github.com/yangweigbh/til/blob/main"
	c.Readme = "README.md"
	c.NoteExtensions = []string{".md"}
	c.ExcludeTopics = nil
	c.TopicOrder = indexer.OrderAlpha
	c.TitleStyle = indexer.TitleHeading
	c.Rewrite = false
	c.Diff = false
}
