// cmd/server/config.go
package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	port           int
	allowedOrigins []string
	publicURL      string
	verbose        bool

	contentBaseURL string
	contentAPIKey  string
	contentModel   string
	contentTimeout time.Duration
	promptAttempts int

	defaultRounds  int
	maxRounds      int
	pointsPerVote  int
	sessionTimeout time.Duration
	bindTimeout    time.Duration

	redisAddr  string
	redisDB    int
	redisQueue string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.promptAttempts < 1 {
		return errors.New("--prompt-attempts must be at least 1")
	}
	if c.defaultRounds < 1 || c.maxRounds < 1 {
		return errors.New("--default-rounds and --max-rounds must be positive")
	}
	if c.defaultRounds > c.maxRounds {
		return fmt.Errorf("--default-rounds (%d) exceeds --max-rounds (%d)", c.defaultRounds, c.maxRounds)
	}
	if c.pointsPerVote < 0 {
		return errors.New("--points-per-vote cannot be negative")
	}
	if c.contentTimeout <= 0 || c.sessionTimeout <= 0 || c.bindTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.redisAddr != "" && c.redisQueue == "" {
		return errors.New("--redis-queue is required when --redis-addr is set")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PSYKOS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "psykos",
		Short:         "Session server for a prompt, answer and vote party game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PSYKOS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PSYKOS_PORT)")
	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", nil, "websocket origin patterns to accept besides same-origin (env: PSYKOS_ALLOWED_ORIGINS)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "externally visible base URL used in share links (env: PSYKOS_PUBLIC_URL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PSYKOS_VERBOSE)")

	fs.StringVar(&cfg.contentBaseURL, "content-base-url", "https://api.groq.com/openai/v1", "OpenAI-compatible API base for prompt generation (env: PSYKOS_CONTENT_BASE_URL)")
	fs.StringVar(&cfg.contentAPIKey, "content-api-key", "", "API key for prompt generation; fallback prompts are used when empty (env: PSYKOS_CONTENT_API_KEY)")
	fs.StringVar(&cfg.contentModel, "content-model", "llama-3.1-8b-instant", "model used for prompt generation (env: PSYKOS_CONTENT_MODEL)")
	fs.DurationVar(&cfg.contentTimeout, "content-timeout", 10*time.Second, "time allowed for one prompt request (env: PSYKOS_CONTENT_TIMEOUT)")
	fs.IntVar(&cfg.promptAttempts, "prompt-attempts", 3, "tries per round to get a prompt not already used in the session (env: PSYKOS_PROMPT_ATTEMPTS)")

	fs.IntVar(&cfg.defaultRounds, "default-rounds", 10, "rounds per game when the host does not choose (env: PSYKOS_DEFAULT_ROUNDS)")
	fs.IntVar(&cfg.maxRounds, "max-rounds", 25, "largest round count a host may choose (env: PSYKOS_MAX_ROUNDS)")
	fs.IntVar(&cfg.pointsPerVote, "points-per-vote", 10, "points awarded to an answer's author per vote (env: PSYKOS_POINTS_PER_VOTE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: PSYKOS_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.bindTimeout, "bind-timeout", 30*time.Second, "time a joined player has to open a websocket before being removed (env: PSYKOS_BIND_TIMEOUT)")

	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the session action stream; disabled when empty (env: PSYKOS_REDIS_ADDR)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: PSYKOS_REDIS_DB)")
	fs.StringVar(&cfg.redisQueue, "redis-queue", "psykos_actions", "redis list receiving session action records (env: PSYKOS_REDIS_QUEUE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("psykos v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
