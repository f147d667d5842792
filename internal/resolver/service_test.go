package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railscope/railscope/internal/controllers"
	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/vfs"
)

func analyzer(t *testing.T, files vfs.Map) *controllers.Service {
	t.Helper()
	service := controllers.NewService(files)
	service.Scan()
	return service
}

func record(verb, path, controller, action string) domain.EndpointRecord {
	return domain.EndpointRecord{
		Verb:       verb,
		Path:       path,
		Controller: controller,
		Action:     action,
		Source:     domain.Source{File: "config/routes.rb", Line: 1},
	}
}

func TestResolveJoinsControllerAnalysis(t *testing.T) {
	service := NewService(analyzer(t, vfs.Map{
		"app/controllers/users_controller.rb": `class UsersController < ActionController::API
  before_action :authenticate_api_user!
end
`,
	}))

	resolved, _ := service.Resolve([]domain.EndpointRecord{
		record("GET", "/users", "UsersController", "index"),
	})

	require.Len(t, resolved, 1)
	assert.Equal(t, domain.AuthAuthenticated, resolved[0].AuthStatus)
	assert.Equal(t, []string{"authenticate_api_user!"}, resolved[0].EffectiveFilters)
}

func TestResolveUnknownController(t *testing.T) {
	service := NewService(analyzer(t, vfs.Map{}))

	resolved, diags := service.Resolve([]domain.EndpointRecord{
		record("GET", "/ghosts", "GhostsController", "index"),
	})

	require.Len(t, resolved, 1)
	assert.Equal(t, domain.AuthUnknown, resolved[0].AuthStatus)
	assert.True(t, resolved[0].Flags.UnknownController)

	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "GhostsController not found") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveEngineMount(t *testing.T) {
	service := NewService(analyzer(t, vfs.Map{}))

	mount := record("*", "/sidekiq", "Sidekiq::Web", "(engine)")
	mount.Flags.EngineMount = true

	resolved, diags := service.Resolve([]domain.EndpointRecord{mount})
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.AuthUnknown, resolved[0].AuthStatus)
	assert.False(t, resolved[0].Flags.UnknownController)
	assert.Empty(t, diags)
}

func TestDeduplication(t *testing.T) {
	service := NewService(analyzer(t, vfs.Map{}))

	first := record("GET", "/ping", "HealthController", "ping")
	second := record("GET", "/ping", "StatusController", "check")
	second.Flags.Conditional = true

	resolved, diags := service.Resolve([]domain.EndpointRecord{first, second})

	require.Len(t, resolved, 1)
	assert.Equal(t, "HealthController", resolved[0].Controller)
	assert.Equal(t, "ping", resolved[0].Action)
	assert.True(t, resolved[0].Flags.Conditional, "flags union on collapse")

	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "duplicate route GET /ping") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestOrderingPreserved(t *testing.T) {
	service := NewService(analyzer(t, vfs.Map{}))

	records := []domain.EndpointRecord{
		record("GET", "/z", "ZController", "index"),
		record("GET", "/a", "AController", "index"),
		record("POST", "/m", "MController", "create"),
	}
	resolved, _ := service.Resolve(records)

	require.Len(t, resolved, 3)
	assert.Equal(t, "/z", resolved[0].Path)
	assert.Equal(t, "/a", resolved[1].Path)
	assert.Equal(t, "/m", resolved[2].Path)
}
