package cli

import (
	"encoding/json"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/linkforge/apiclient/apierror"
	"github.com/spf13/cobra"
)

const defaultConcurrency = 4

// getResult is one line of get output.
type getResult struct {
	Path  string          `json:"path"`
	Body  json.RawMessage `json:"body,omitempty"`
	Error *apierror.Error `json:"error,omitempty"`
}

func getCmd(env *Env, flags *globalFlags) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "get <path>...",
		Short: "Fetch one or more API paths",
		Long: `Fetch each path with a retried, unauthenticated GET and print one JSON
object per path, in argument order:

  {"path": "...", "body": ...}                            on success
  {"path": "...", "error": {"code": "...", "message": ...}} on failure`,
		Example: `  linkctl get /api/health
  linkctl get --concurrency 8 /api/links/a /api/links/b`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("%w: --concurrency must be at least 1", ErrUsage)
			}

			c, err := newClient(env, flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			results := make([]getResult, len(args))

			pool := pond.NewPool(min(concurrency, len(args)))
			defer pool.StopAndWait()

			tasks := make([]pond.Task, len(args))

			for i, path := range args {
				tasks[i] = pool.Submit(func() {
					var body json.RawMessage

					results[i] = getResult{Path: path}

					if err := c.Get(ctx, path, &body); err != nil {
						results[i].Error = apierror.Classify(err)

						return
					}

					results[i].Body = body
				})
			}

			for _, task := range tasks {
				if err := task.Wait(); err != nil {
					return err
				}
			}

			return printResults(env, results)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", defaultConcurrency, "maximum requests in flight")

	return cmd
}

func printResults(env *Env, results []getResult) error {
	enc := json.NewEncoder(env.Stdout)

	var failed int

	for _, res := range results {
		if res.Error != nil {
			failed++
		}

		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	if failed == 0 {
		return nil
	}

	if len(results) == 1 {
		return results[0].Error
	}

	return fmt.Errorf("%w: %d of %d", ErrRequestsFailed, failed, len(results))
}
