package services

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"time"

	"github.com/qrgate/portal/internal/cache"
	"github.com/qrgate/portal/internal/logging"
	"github.com/qrgate/portal/types"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenuYAML []byte

const menuVisibilityKey = "menu:visibility"

// Roles lists every role in display order.
var Roles = []string{
	types.RoleSuperAdmin,
	types.RoleAdmin,
	types.RoleManager,
	types.RoleMember,
	types.RoleGuest,
}

// MenuRepository defines persistence operations for menu visibility.
type MenuRepository interface {
	List(ctx context.Context) ([]types.MenuVisibility, error)
	Set(ctx context.Context, v types.MenuVisibility) error
}

// ParseMenuCatalog decodes a YAML list of menu items and rejects duplicate
// ids and unknown roles.
func ParseMenuCatalog(data []byte) ([]types.MenuItem, error) {
	var items []types.MenuItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse menu catalog: %w", err)
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("menu item %q has no id", item.Label)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("duplicate menu item %q", item.ID)
		}
		seen[item.ID] = true
		for _, role := range item.Roles {
			if !slices.Contains(Roles, role) {
				return nil, fmt.Errorf("menu item %q: unknown role %q", item.ID, role)
			}
		}
	}
	return items, nil
}

// ResolveRole picks the menu role of a caller: the admin role when there is
// one, member for any other signed-in user, guest otherwise.
func ResolveRole(adminRole string, signedIn bool) string {
	switch {
	case adminRole != "":
		return adminRole
	case signedIn:
		return types.RoleMember
	default:
		return types.RoleGuest
	}
}

// MenuMatrix is the full role by menu visibility table.
type MenuMatrix struct {
	Roles   []string                   `json:"roles"`
	Items   []types.MenuItem           `json:"items"`
	Visible map[string]map[string]bool `json:"visible"`
}

// MenuService resolves navigation per role. Visibility defaults to true and
// is cached until the next write.
type MenuService struct {
	catalog []types.MenuItem
	repo    MenuRepository
	cache   cache.Cache
	ttl     time.Duration
	log     logging.Logger
}

func NewMenuService(repo MenuRepository, c cache.Cache, ttl time.Duration, log logging.Logger) (*MenuService, error) {
	catalog, err := ParseMenuCatalog(defaultMenuYAML)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &MenuService{catalog: catalog, repo: repo, cache: c, ttl: ttl, log: log}, nil
}

func (s *MenuService) Catalog() []types.MenuItem {
	return slices.Clone(s.catalog)
}

// ForRole returns the catalog items offered to role that are not hidden.
func (s *MenuService) ForRole(ctx context.Context, role string) ([]types.MenuItem, error) {
	hidden, err := s.hidden(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.MenuItem
	for _, item := range s.catalog {
		if !slices.Contains(item.Roles, role) || hidden[role][item.ID] {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// Matrix returns visibility for every role and every catalog item.
func (s *MenuService) Matrix(ctx context.Context) (MenuMatrix, error) {
	hidden, err := s.hidden(ctx)
	if err != nil {
		return MenuMatrix{}, err
	}
	visible := make(map[string]map[string]bool, len(Roles))
	for _, role := range Roles {
		visible[role] = make(map[string]bool, len(s.catalog))
		for _, item := range s.catalog {
			visible[role][item.ID] = !hidden[role][item.ID]
		}
	}
	return MenuMatrix{Roles: slices.Clone(Roles), Items: s.Catalog(), Visible: visible}, nil
}

// SetVisible persists one toggle and drops the cached table.
func (s *MenuService) SetVisible(ctx context.Context, role, menuID string, visible bool) error {
	if !slices.Contains(Roles, role) {
		return invalid("unknown role %q", role)
	}
	if !slices.ContainsFunc(s.catalog, func(item types.MenuItem) bool { return item.ID == menuID }) {
		return invalid("unknown menu item %q", menuID)
	}
	if err := s.repo.Set(ctx, types.MenuVisibility{Role: role, MenuID: menuID, Visible: visible}); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, menuVisibilityKey); err != nil {
		s.log.Warn(ctx, "invalidate menu cache", "error", err)
	}
	return nil
}

// hidden returns role -> menu id -> true for every stored false flag.
func (s *MenuService) hidden(ctx context.Context) (map[string]map[string]bool, error) {
	var rows []types.MenuVisibility
	found, err := s.cache.Get(ctx, menuVisibilityKey, &rows)
	if err != nil {
		s.log.Warn(ctx, "read menu cache", "error", err)
	}
	if !found {
		rows, err = s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, menuVisibilityKey, rows, s.ttl); err != nil {
			s.log.Warn(ctx, "write menu cache", "error", err)
		}
	}

	out := make(map[string]map[string]bool)
	for _, row := range rows {
		if row.Visible {
			continue
		}
		if out[row.Role] == nil {
			out[row.Role] = make(map[string]bool)
		}
		out[row.Role][row.MenuID] = true
	}
	return out, nil
}
