package main

import (
	"errors"
	"fmt"

	"github.com/finsup/finops/internal/config"
	"github.com/finsup/finops/internal/gcp"
	"github.com/finsup/finops/internal/logger"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

var rolesKeyFile string

var rolesCmd = &cobra.Command{
	Use:   "roles [principal] <scope>",
	Short: "List every IAM role a principal holds in a project, folder or org",
	Long: `List every IAM role a principal holds under the given scope.

With --key-file the principal argument is omitted: the service-account
email inside the key authenticates the calls and is itself the inspected
principal.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg)

		principal, scope, opts, err := principalAndScope(args)
		if err != nil {
			return err
		}

		roles, err := gcp.NewIAMInspector(log, opts...).Roles(cmd.Context(), principal, scope)
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			fmt.Printf("No roles found for %s in %s\n", principal, scope)
			return nil
		}
		fmt.Printf("\nRoles for %s in %s\n", principal, scope)
		for _, r := range roles {
			fmt.Println(" -", r)
		}
		return nil
	},
}

// principalAndScope resolves the positional arguments for both IAM
// commands, deriving the principal from the key file when one is given.
func principalAndScope(args []string) (string, string, []option.ClientOption, error) {
	if rolesKeyFile != "" {
		if len(args) != 1 {
			return "", "", nil, errors.New("with --key-file pass only the scope argument")
		}
		principal, err := gcp.ServiceAccountPrincipal(rolesKeyFile)
		if err != nil {
			return "", "", nil, err
		}
		return principal, gcp.NormalizeScope(args[0]), []option.ClientOption{option.WithCredentialsFile(rolesKeyFile)}, nil
	}
	if len(args) != 2 {
		return "", "", nil, errors.New("pass <principal> <scope>, or --key-file with <scope>")
	}
	return args[0], gcp.NormalizeScope(args[1]), nil, nil
}

func init() {
	rolesCmd.Flags().StringVar(&rolesKeyFile, "key-file", "", "service-account key JSON; authenticates and supplies the principal")
	rootCmd.AddCommand(rolesCmd)
}
