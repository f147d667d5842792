package routes

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/vfs"
)

func evaluate(t *testing.T, files vfs.Map) ([]domain.EndpointRecord, []domain.Diagnostic) {
	t.Helper()
	return NewService(files).Evaluate()
}

func draw(body string) vfs.Map {
	return vfs.Map{
		"config/routes.rb": "Rails.application.routes.draw do\n" + body + "\nend\n",
	}
}

func endpointKeys(records []domain.EndpointRecord) []string {
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, fmt.Sprintf("%s %s", r.Verb, r.Path))
	}
	return keys
}

func TestResourcesExpansion(t *testing.T) {
	records, _ := evaluate(t, draw("  resources :posts"))

	require.Len(t, records, 7)
	assert.Equal(t, []string{
		"GET /posts",
		"GET /posts/new",
		"POST /posts",
		"GET /posts/:id",
		"GET /posts/:id/edit",
		"PATCH /posts/:id",
		"DELETE /posts/:id",
	}, endpointKeys(records))

	actions := make([]string, 0, len(records))
	for _, r := range records {
		assert.Equal(t, "PostsController", r.Controller)
		actions = append(actions, r.Action)
	}
	assert.Equal(t, []string{"index", "new", "create", "show", "edit", "update", "destroy"}, actions)
}

func TestNestedNamespaces(t *testing.T) {
	records, _ := evaluate(t, draw(`
  namespace :api do
    namespace :v1 do
      resources :users, only: [:index, :show]
    end
  end`))

	require.Len(t, records, 2)
	assert.Equal(t, "GET", records[0].Verb)
	assert.Equal(t, "/api/v1/users", records[0].Path)
	assert.Equal(t, "Api::V1::UsersController", records[0].Controller)
	assert.Equal(t, "index", records[0].Action)
	assert.Equal(t, "/api/v1/users/:id", records[1].Path)
	assert.Equal(t, "show", records[1].Action)
}

func TestOnlyExceptTieBreak(t *testing.T) {
	both, bothDiags := evaluate(t, draw("  resources :posts, only: [:index], except: [:show]"))
	onlyRecords, _ := evaluate(t, draw("  resources :posts, only: [:index]"))

	assert.Equal(t, endpointKeys(onlyRecords), endpointKeys(both))

	found := false
	for _, d := range bothDiags {
		if strings.Contains(d.Message, "except: dropped") {
			found = true
		}
	}
	assert.True(t, found, "tie-break diagnostic expected")
}

func TestExceptFilter(t *testing.T) {
	records, _ := evaluate(t, draw("  resources :posts, except: [:destroy, :edit]"))
	for _, r := range records {
		assert.NotEqual(t, "destroy", r.Action)
		assert.NotEqual(t, "edit", r.Action)
	}
	assert.Len(t, records, 5)
}

func TestSingularResource(t *testing.T) {
	records, _ := evaluate(t, draw("  resource :profile"))

	keys := endpointKeys(records)
	assert.NotContains(t, keys, "GET /profile/:id")
	assert.Contains(t, keys, "GET /profile")
	assert.Contains(t, keys, "GET /profile/new")
	assert.Contains(t, keys, "GET /profile/edit")
	assert.Contains(t, keys, "PATCH /profile")
	for _, r := range records {
		assert.Equal(t, "ProfilesController", r.Controller)
		assert.NotEqual(t, "index", r.Action)
	}
}

func TestNestedResources(t *testing.T) {
	records, _ := evaluate(t, draw(`
  resources :posts, only: [] do
    resources :comments, only: [:index, :create]
  end`))

	require.Len(t, records, 2)
	assert.Equal(t, "/posts/:post_id/comments", records[0].Path)
	assert.Equal(t, "CommentsController", records[0].Controller)
}

func TestMemberAndCollection(t *testing.T) {
	records, _ := evaluate(t, draw(`
  resources :posts, only: [] do
    member do
      post :publish
    end
    collection do
      get :archived
    end
  end`))

	require.Len(t, records, 2)
	assert.Equal(t, "POST /posts/:id/publish", endpointKeys(records)[0])
	assert.Equal(t, "publish", records[0].Action)
	assert.Equal(t, "GET /posts/archived", endpointKeys(records)[1])
	assert.Equal(t, "archived", records[1].Action)
	assert.Equal(t, "PostsController", records[1].Controller)
}

func TestCustomParam(t *testing.T) {
	records, _ := evaluate(t, draw("  resources :articles, param: :slug, only: [:show]"))
	require.Len(t, records, 1)
	assert.Equal(t, "/articles/:slug", records[0].Path)
}

func TestPathOverride(t *testing.T) {
	records, _ := evaluate(t, draw("  resources :people, path: 'folks', only: [:index]"))
	require.Len(t, records, 1)
	assert.Equal(t, "/folks", records[0].Path)
	assert.Equal(t, "PeopleController", records[0].Controller)
}

func TestRoot(t *testing.T) {
	t.Run("positional target", func(t *testing.T) {
		records, _ := evaluate(t, draw("  root 'home#index'"))
		require.Len(t, records, 1)
		assert.Equal(t, "GET /", endpointKeys(records)[0])
		assert.Equal(t, "HomeController", records[0].Controller)
		assert.Equal(t, "index", records[0].Action)
	})

	t.Run("to keyword", func(t *testing.T) {
		records, _ := evaluate(t, draw("  root to: 'pages#home'"))
		require.Len(t, records, 1)
		assert.Equal(t, "PagesController", records[0].Controller)
		assert.Equal(t, "home", records[0].Action)
	})
}

func TestVerbRoutes(t *testing.T) {
	t.Run("explicit target", func(t *testing.T) {
		records, _ := evaluate(t, draw("  get '/debug', to: 'debug#index'"))
		require.Len(t, records, 1)
		assert.Equal(t, "GET /debug", endpointKeys(records)[0])
		assert.Equal(t, "DebugController", records[0].Controller)
		assert.Equal(t, "index", records[0].Action)
	})

	t.Run("controller and action keywords", func(t *testing.T) {
		records, _ := evaluate(t, draw("  post '/hooks', controller: 'webhooks', action: 'receive'"))
		require.Len(t, records, 1)
		assert.Equal(t, "WebhooksController", records[0].Controller)
		assert.Equal(t, "receive", records[0].Action)
	})

	t.Run("action inferred from path stem", func(t *testing.T) {
		records, _ := evaluate(t, draw("  get '/health/live'"))
		require.Len(t, records, 1)
		assert.Equal(t, "live", records[0].Action)
	})
}

func TestScope(t *testing.T) {
	t.Run("bare path", func(t *testing.T) {
		records, _ := evaluate(t, draw(`
  scope '/admin' do
    resources :tools, only: [:index]
  end`))
		require.Len(t, records, 1)
		assert.Equal(t, "/admin/tools", records[0].Path)
		assert.Equal(t, "ToolsController", records[0].Controller)
	})

	t.Run("module extends controller namespace only", func(t *testing.T) {
		records, _ := evaluate(t, draw(`
  scope module: :admin do
    resources :tools, only: [:index]
  end`))
		require.Len(t, records, 1)
		assert.Equal(t, "/tools", records[0].Path)
		assert.Equal(t, "Admin::ToolsController", records[0].Controller)
	})

	t.Run("controller binding with verb symbol", func(t *testing.T) {
		records, _ := evaluate(t, draw(`
  scope controller: :pages do
    get :about
  end`))
		require.Len(t, records, 1)
		assert.Equal(t, "GET /about", endpointKeys(records)[0])
		assert.Equal(t, "PagesController", records[0].Controller)
		assert.Equal(t, "about", records[0].Action)
	})
}

func TestWithOptions(t *testing.T) {
	records, _ := evaluate(t, draw(`
  with_options controller: :pages do
    get :about
    get :contact
  end`))

	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "PagesController", r.Controller)
	}
	assert.Equal(t, []string{"GET /about", "GET /contact"}, endpointKeys(records))
}

func TestNamespaceClearsControllerOverride(t *testing.T) {
	records, _ := evaluate(t, draw(`
  scope controller: :pages do
    namespace :admin do
      get '/status', to: 'health#status'
    end
  end`))
	require.Len(t, records, 1)
	assert.Equal(t, "Admin::HealthController", records[0].Controller)
}

func TestMatch(t *testing.T) {
	t.Run("explicit via list", func(t *testing.T) {
		records, _ := evaluate(t, draw("  match '/ping', to: 'health#ping', via: [:get, :head]"))
		assert.Equal(t, []string{"GET /ping", "HEAD /ping"}, endpointKeys(records))
	})

	t.Run("via all expands to the standard verbs", func(t *testing.T) {
		records, _ := evaluate(t, draw("  match '/any', to: 'catch#all', via: :all"))
		require.Len(t, records, len(domain.StandardVerbs))
		verbs := make([]string, 0, len(records))
		for _, r := range records {
			verbs = append(verbs, r.Verb)
		}
		assert.Equal(t, domain.StandardVerbs, verbs)
	})
}

func TestMount(t *testing.T) {
	t.Run("hashrocket form", func(t *testing.T) {
		records, _ := evaluate(t, draw("  mount Sidekiq::Web => '/sidekiq'"))
		require.Len(t, records, 1)
		r := records[0]
		assert.Equal(t, domain.VerbAny, r.Verb)
		assert.Equal(t, "/sidekiq", r.Path)
		assert.Equal(t, "Sidekiq::Web", r.Controller)
		assert.Equal(t, "(engine)", r.Action)
		assert.True(t, r.Flags.EngineMount)
	})

	t.Run("at keyword form", func(t *testing.T) {
		records, _ := evaluate(t, draw("  mount GoodJob::Engine, at: '/jobs'"))
		require.Len(t, records, 1)
		assert.Equal(t, "/jobs", records[0].Path)
		assert.Equal(t, "GoodJob::Engine", records[0].Controller)
	})
}

func TestConcerns(t *testing.T) {
	records, _ := evaluate(t, draw(`
  concern :commentable do
    resources :comments, only: [:index]
  end
  resources :posts, only: [], concerns: [:commentable]
  resources :photos, only: [], concerns: [:commentable]`))

	require.Len(t, records, 2)
	assert.Equal(t, "/posts/:post_id/comments", records[0].Path)
	assert.Equal(t, "/photos/:photo_id/comments", records[1].Path)
}

func TestConcernMissing(t *testing.T) {
	_, diags := evaluate(t, draw("  resources :posts, only: [], concerns: [:nope]"))
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, `concern "nope"`) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestConditionalRoutes(t *testing.T) {
	t.Run("non-literal condition flags both branches", func(t *testing.T) {
		records, _ := evaluate(t, draw(`
  if Rails.env.development?
    get '/debug', to: 'debug#index'
  end`))
		require.Len(t, records, 1)
		assert.True(t, records[0].Flags.Conditional)
	})

	t.Run("literally true evaluates unflagged", func(t *testing.T) {
		records, _ := evaluate(t, draw(`
  if true
    get '/always', to: 'pages#always'
  end`))
		require.Len(t, records, 1)
		assert.False(t, records[0].Flags.Conditional)
	})

	t.Run("both branches evaluated", func(t *testing.T) {
		records, _ := evaluate(t, draw(`
  if something
    get '/a', to: 'pages#a'
  else
    get '/b', to: 'pages#b'
  end`))
		assert.Equal(t, []string{"GET /a", "GET /b"}, endpointKeys(records))
	})
}

func TestDynamicRoutes(t *testing.T) {
	records, _ := evaluate(t, draw(`
  ADMIN_PAGES.each do |page|
    get '/admin/overview', to: 'admin#overview'
  end`))
	require.Len(t, records, 1)
	assert.True(t, records[0].Flags.Dynamic)
}

func TestConstraints(t *testing.T) {
	records, _ := evaluate(t, draw(`
  constraints(subdomain: 'api') do
    get '/status', to: 'health#status'
  end`))
	require.Len(t, records, 1)
	assert.True(t, records[0].Flags.ConstraintPresent)
}

func TestDrawFragments(t *testing.T) {
	t.Run("fragment loaded under current context", func(t *testing.T) {
		files := vfs.Map{
			"config/routes.rb":       "Rails.application.routes.draw do\n  namespace :admin do\n    draw(:admin)\n  end\nend\n",
			"config/routes/admin.rb": "resources :reports, only: [:index]\n",
		}
		records, _ := evaluate(t, files)
		require.Len(t, records, 1)
		assert.Equal(t, "/admin/reports", records[0].Path)
		assert.Equal(t, "Admin::ReportsController", records[0].Controller)
	})

	t.Run("missing fragment warns and continues", func(t *testing.T) {
		files := vfs.Map{
			"config/routes.rb": "Rails.application.routes.draw do\n  draw(:missing)\n  resources :posts, only: [:index]\nend\n",
		}
		records, diags := evaluate(t, files)
		require.Len(t, records, 1)
		found := false
		for _, d := range diags {
			if strings.Contains(d.Message, "draw(:missing)") {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestMissingRootFileIsFatal(t *testing.T) {
	records, diags := evaluate(t, vfs.Map{})
	assert.Empty(t, records)
	require.NotEmpty(t, diags)
	assert.Equal(t, domain.SeverityFatal, diags[0].Severity)
}

func TestUnrecognizedCallDiagnostic(t *testing.T) {
	_, diags := evaluate(t, draw("  frobnicate :stuff"))
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, `"frobnicate"`) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPathInvariants(t *testing.T) {
	records, _ := evaluate(t, draw(`
  root 'home#index'
  namespace :api do
    resources :users do
      member do
        get :activity
      end
    end
  end
  mount Sidekiq::Web => '/sidekiq'`))

	for _, r := range records {
		assert.True(t, strings.HasPrefix(r.Path, "/"), "path %q must begin with /", r.Path)
		assert.NotContains(t, r.Path, "//")
		if r.Path != "/" {
			assert.False(t, strings.HasSuffix(r.Path, "/"), "path %q must not end with /", r.Path)
		}
	}
}

func TestDeterministicEvaluation(t *testing.T) {
	files := draw(`
  resources :posts
  namespace :api do
    resources :users
  end`)

	first, firstDiags := evaluate(t, files)
	second, secondDiags := evaluate(t, files)
	assert.Equal(t, first, second)
	assert.Equal(t, firstDiags, secondDiags)
}
