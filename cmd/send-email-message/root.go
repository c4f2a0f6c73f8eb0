package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shineum/send-email-message/internal/config"
	"github.com/shineum/send-email-message/internal/message"
)

const longHelp = `Sends an email to the specified email addresses.
Message can be a string, filename or "-" to read from stdin.
A recipient is an email address or one of the groups ADMINS and MANAGERS.`

type rootFlags struct {
	noInput      bool
	from         string
	raiseError   bool
	failSilently bool
	noPrefix     bool
	bcc          string
	cc           string
	verbosity    int
	configPath   string
	provider     string
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:           "send-email-message [flags] SUBJECT MESSAGE RECIPIENT [RECIPIENT...]",
		Short:         "Compose and send one email message",
		Long:          longHelp,
		Args:          minimumArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.verbosity < 0 || f.verbosity > 3 {
				return &usageError{fmt.Errorf("verbosity must be between 0 and 3, got %d", f.verbosity)}
			}

			cfg, err := loadConfig(f.configPath)
			if err != nil {
				return &configError{err}
			}
			if f.provider != "" {
				cfg.Provider = f.provider
			}

			setupLogger(stderr, cfg.Logging.Level, f.verbosity)

			ctx := cmd.Context()
			mailer, err := selectProvider(ctx, cfg, stdout)
			if err != nil {
				return &configError{err}
			}

			opts := message.Options{
				Subject:      args[0],
				Message:      args[1],
				Recipients:   args[2:],
				Cc:           message.SplitAddressList(f.cc),
				Bcc:          message.SplitAddressList(f.bcc),
				From:         f.from,
				NoPrefix:     f.noPrefix,
				FailSilently: f.failSilently && !f.raiseError,
				Interactive:  !f.noInput,
				Verbosity:    f.verbosity,
			}

			return message.NewCommand(cfg, mailer, stdin, stdout).Run(ctx, opts)
		},
	}

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	flags := cmd.Flags()
	flags.SetNormalizeFunc(normalizeFlagName)
	flags.SortFlags = false

	flags.BoolVar(&f.noInput, "no-input", false, "do not prompt for confirmation (alias --noinput)")
	flags.StringVarP(&f.from, "from", "f", "", "sender address (default: configured default_from)")
	flags.BoolVarP(&f.raiseError, "raise-error", "r", false, "report delivery failures even with --fail-silently")
	flags.BoolVarP(&f.failSilently, "fail-silently", "s", false, "ignore delivery failures")
	flags.BoolVarP(&f.noPrefix, "noprefix", "n", false, "do not prepend the configured subject prefix")
	flags.StringVarP(&f.bcc, "bcc", "b", "", "comma separated list of BCC addresses")
	flags.StringVarP(&f.cc, "cc", "c", "", "comma separated list of CC addresses")
	flags.IntVarP(&f.verbosity, "verbosity", "v", 1, "verbosity level: 0 quiet, 1 normal, 2 verbose, 3 debug")
	flags.StringVar(&f.configPath, "config", "", "path to YAML configuration file")
	flags.StringVar(&f.provider, "provider", "", "delivery provider: stdout, smtp, ses, graph, resend or sendgrid")

	return cmd
}

// normalizeFlagName accepts --noinput as the spelling of --no-input.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "noinput" {
		name = "no-input"
	}
	return pflag.NormalizedName(name)
}

func minimumArgs(n int) cobra.PositionalArgs {
	check := cobra.MinimumNArgs(n)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
