package cli

import (
	"fmt"
	"net/url"

	"github.com/linkforge/apiclient/client"
	"github.com/linkforge/apiclient/envutil"
	"github.com/linkforge/apiclient/logger"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	envFile string
	baseURL string
	verbose bool
	quiet   bool
}

// NewRootCmd builds the linkctl command tree.
func NewRootCmd(env *Env) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   AppName,
		Short: "Talk to the link API from the command line",
		Long: `linkctl calls the link API through the resilient client: reads are retried
with exponential backoff, every attempt is bounded by a timeout, and failures
are reported as structured error codes.

Client settings come from LINKAPI_* environment variables, optionally loaded
from a .env, .json or .yaml file with --env-file.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.WithSubsystem(cmd.Context(), AppName+"."+cmd.Name())
			if flags.quiet {
				ctx = logger.WithMuted(ctx, true)
			}

			cmd.SetContext(ctx)

			if flags.envFile != "" {
				applied, err := envutil.Apply(flags.envFile)
				if err != nil {
					return err
				}

				logger.Get(ctx).Debug("applied env file",
					"path", flags.envFile, "keys", applied)
			}

			if env.Setup != nil {
				return env.Setup(ctx, flags.verbose)
			}

			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "",
		"load environment variables from a .env, .json or .yaml file")
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "",
		"API base url (overrides LINKAPI_BASE_URL)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"log at debug level (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false,
		"discard all logs; results are still printed")

	root.AddCommand(getCmd(env, flags))
	root.AddCommand(adminCheckCmd(env, flags))

	return root
}

func newClient(env *Env, flags *globalFlags) (*client.Client, error) {
	cfg, err := client.LoadConfig()
	if err != nil {
		return nil, err
	}

	if flags.baseURL != "" {
		base, err := url.Parse(flags.baseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUsage, err)
		}

		cfg.BaseURL = base
	}

	c, err := client.New(cfg, env.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	return c, nil
}
