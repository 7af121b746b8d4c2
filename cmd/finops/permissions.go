package main

import (
	"fmt"
	"sort"

	"github.com/finsup/finops/internal/config"
	"github.com/finsup/finops/internal/gcp"
	"github.com/finsup/finops/internal/logger"
	"github.com/spf13/cobra"
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions [principal] <scope>",
	Short: "Expand a principal's roles into every effective IAM permission",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg)

		principal, scope, opts, err := principalAndScope(args)
		if err != nil {
			return err
		}

		byRole, err := gcp.NewIAMInspector(log, opts...).Permissions(cmd.Context(), principal, scope)
		if err != nil {
			return err
		}
		if len(byRole) == 0 {
			fmt.Printf("No roles found for %s in %s\n", principal, scope)
			return nil
		}

		roles := make([]string, 0, len(byRole))
		for r := range byRole {
			roles = append(roles, r)
		}
		sort.Strings(roles)

		union := map[string]struct{}{}
		for _, role := range roles {
			perms := byRole[role]
			fmt.Printf("# %s  (%d permissions)\n", role, len(perms))
			for _, p := range perms {
				fmt.Println("  -", p)
				union[p] = struct{}{}
			}
			fmt.Println()
		}
		fmt.Printf("%s has %d unique permissions in %s\n", principal, len(union), scope)
		return nil
	},
}

func init() {
	permissionsCmd.Flags().StringVar(&rolesKeyFile, "key-file", "", "service-account key JSON; authenticates and supplies the principal")
	rootCmd.AddCommand(permissionsCmd)
}
