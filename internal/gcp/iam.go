package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	asset "cloud.google.com/go/asset/apiv1"
	"cloud.google.com/go/asset/apiv1/assetpb"
	admin "cloud.google.com/go/iam/admin/apiv1"
	"cloud.google.com/go/iam/admin/apiv1/adminpb"
	"cloud.google.com/go/iam/apiv1/iampb"
	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NormalizeScope attaches the Resource-Manager prefix when the caller
// omitted it. Bare 12-digit ids are assumed to be folders.
func NormalizeScope(raw string) string {
	for _, p := range []string{"projects/", "folders/", "organizations/"} {
		if strings.HasPrefix(raw, p) {
			return raw
		}
	}
	if len(raw) == 12 && isDigits(raw) {
		return "folders/" + raw
	}
	return "projects/" + raw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ServiceAccountPrincipal derives the serviceAccount:<email> principal from
// a key file.
func ServiceAccountPrincipal(keyFile string) (string, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	var key struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("parse key file %s: %w", keyFile, err)
	}
	if key.ClientEmail == "" {
		return "", fmt.Errorf("key file %s has no client_email", keyFile)
	}
	return "serviceAccount:" + key.ClientEmail, nil
}

// IAMInspector answers which roles a principal holds and what those roles
// grant.
type IAMInspector struct {
	log  zerolog.Logger
	opts []option.ClientOption
}

func NewIAMInspector(log zerolog.Logger, opts ...option.ClientOption) *IAMInspector {
	return &IAMInspector{log: log, opts: opts}
}

// Roles returns every distinct role the principal holds under the scope,
// sorted. Project scopes read the IAM policy directly (the same table the
// console shows); folder and organization scopes search Cloud Asset.
func (x *IAMInspector) Roles(ctx context.Context, principal, scope string) ([]string, error) {
	var (
		roles map[string]struct{}
		err   error
	)
	if strings.HasPrefix(scope, "projects/") {
		roles, err = x.rolesFromPolicy(ctx, principal, scope)
	} else {
		roles, err = x.rolesFromAssetSearch(ctx, principal, scope)
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(roles))
	for r := range roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

func (x *IAMInspector) rolesFromPolicy(ctx context.Context, principal, scope string) (map[string]struct{}, error) {
	client, err := resourcemanager.NewProjectsClient(ctx, x.opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	policy, err := client.GetIamPolicy(ctx, &iampb.GetIamPolicyRequest{Resource: scope})
	if err != nil {
		return nil, fmt.Errorf("get IAM policy for %s: %w", scope, err)
	}
	roles := map[string]struct{}{}
	for _, b := range policy.Bindings {
		for _, m := range b.Members {
			if m == principal {
				roles[b.Role] = struct{}{}
			}
		}
	}
	return roles, nil
}

func (x *IAMInspector) rolesFromAssetSearch(ctx context.Context, principal, scope string) (map[string]struct{}, error) {
	client, err := asset.NewClient(ctx, x.opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	it := client.SearchAllIamPolicies(ctx, &assetpb.SearchAllIamPoliciesRequest{
		Scope: scope,
		Query: fmt.Sprintf("policy:%q", principal),
	})
	roles := map[string]struct{}{}
	for {
		res, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("search IAM policies under %s: %w", scope, err)
		}
		for _, b := range res.Policy.GetBindings() {
			for _, m := range b.Members {
				if m == principal {
					roles[b.Role] = struct{}{}
				}
			}
		}
	}
	return roles, nil
}

// RolePermissions expands one role into its included permissions. Unknown
// predefined roles are retried once under the roles/ prefix and otherwise
// skipped with a warning, not failed.
func (x *IAMInspector) RolePermissions(ctx context.Context, client *admin.IamClient, role string) ([]string, error) {
	r, err := client.GetRole(ctx, &adminpb.GetRoleRequest{Name: role})
	if err == nil {
		return r.IncludedPermissions, nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("get role %s: %w", role, err)
	}
	if !strings.HasPrefix(role, "roles/") {
		parts := strings.Split(role, "/")
		short := "roles/" + parts[len(parts)-1]
		if r, err := client.GetRole(ctx, &adminpb.GetRoleRequest{Name: short}); err == nil {
			return r.IncludedPermissions, nil
		}
	}
	x.log.Warn().Str("role", role).Msg("skipped unknown role")
	return nil, nil
}

// Permissions maps every role the principal holds to its permission list.
func (x *IAMInspector) Permissions(ctx context.Context, principal, scope string) (map[string][]string, error) {
	roles, err := x.Roles(ctx, principal, scope)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}

	client, err := admin.NewIamClient(ctx, x.opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	out := make(map[string][]string, len(roles))
	for _, role := range roles {
		perms, err := x.RolePermissions(ctx, client, role)
		if err != nil {
			return nil, err
		}
		sorted := append([]string(nil), perms...)
		sort.Strings(sorted)
		out[role] = sorted
	}
	return out, nil
}
