package cli

import (
	"context"
	"encoding/json"

	"github.com/linkforge/apiclient/admin"
	"github.com/linkforge/apiclient/client"
	"github.com/linkforge/apiclient/envutil"
	"github.com/linkforge/apiclient/hashing"
	"github.com/linkforge/apiclient/kvstore"
	"github.com/spf13/cobra"
)

// adminResult is the output of admin-check.
type adminResult struct {
	Identity string `json:"identity"`
	IsAdmin  bool   `json:"isAdmin"`
	Cached   bool   `json:"cached"`
}

func adminCheckCmd(env *Env, flags *globalFlags) *cobra.Command {
	var (
		refresh  bool
		cacheDir string
	)

	cmd := &cobra.Command{
		Use:   "admin-check",
		Short: "Report whether the signed-in user is an administrator",
		Long: `Report whether the user holding LINKCTL_TOKEN is an administrator.

The verdict is cached on disk for five minutes per identity. The identity is
LINKCTL_IDENTITY, or a digest of the token when that is unset. Without a token
the user is treated as signed out: the cached verdict is dropped and the
answer is false.`,
		Example: `  LINKCTL_TOKEN=... linkctl admin-check
  linkctl admin-check --refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(env, flags)
			if err != nil {
				return err
			}

			store, err := kvstore.NewFile(cacheDir)
			if err != nil {
				return err
			}

			token := func(context.Context) (string, error) {
				return envutil.String("LINKCTL_TOKEN").ValueOrElse(""), nil
			}

			identity, err := identityOf(cmd.Context(), token)
			if err != nil {
				return err
			}

			checker := admin.NewChecker(
				c.Authenticated(client.CredentialFunc(token)),
				func(context.Context) string { return identity },
				admin.WithStore(store))

			ctx := cmd.Context()
			result := adminResult{Identity: identity}

			switch {
			case identity == "":
				checker.SignOut(ctx)
			case refresh:
				result.IsAdmin = checker.Refresh(ctx)
			default:
				_, result.Cached = checker.Peek(ctx)
				result.IsAdmin = checker.IsAdmin(ctx)
			}

			return json.NewEncoder(env.Stdout).Encode(result)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached verdict and ask the API")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", env.CacheDir, "directory for cached verdicts")

	return cmd
}

func identityOf(ctx context.Context, token func(context.Context) (string, error)) (string, error) {
	if id := envutil.String("LINKCTL_IDENTITY").ValueOrElse(""); id != "" {
		return id, nil
	}

	tok, err := token(ctx)
	if err != nil || tok == "" {
		return "", err
	}

	digest, err := hashing.Sha256(hashing.HashableString(tok))
	if err != nil {
		return "", err
	}

	return digest[:16], nil
}
