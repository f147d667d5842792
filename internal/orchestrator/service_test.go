package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/vfs"
)

var sampleApp = vfs.Map{
	"config/routes.rb": `Rails.application.routes.draw do
  root 'home#index'

  namespace :api do
    namespace :v1 do
      resources :users, only: [:index, :show, :create]
    end
  end

  if Rails.env.development?
    get '/debug', to: 'debug#index'
  end

  mount Sidekiq::Web => '/sidekiq'
end
`,
	"app/controllers/application_controller.rb": `class ApplicationController < ActionController::Base
  before_action :authenticate_user!
end
`,
	"app/controllers/home_controller.rb": `class HomeController < ApplicationController
  skip_before_action :authenticate_user!

  def index
  end
end
`,
	"app/controllers/api/v1/users_controller.rb": `module Api
  module V1
    class UsersController < ApplicationController
      def index
      end

      def show
      end

      def create
      end

      private

      def user_params
        params.require(:user).permit(:name, :email, :age)
      end
    end
  end
end
`,
}

func TestAnalyzePipeline(t *testing.T) {
	result, err := New().Analyze(sampleApp)
	require.NoError(t, err)

	byKey := map[string]domain.ResolvedEndpoint{}
	for _, e := range result.Endpoints {
		byKey[e.Verb+" "+e.Path] = e
	}

	t.Run("root is unprotected after skip", func(t *testing.T) {
		root, ok := byKey["GET /"]
		require.True(t, ok)
		assert.Equal(t, "HomeController", root.Controller)
		assert.Equal(t, domain.AuthUnprotected, root.AuthStatus)
	})

	t.Run("namespaced endpoints inherit auth", func(t *testing.T) {
		index, ok := byKey["GET /api/v1/users"]
		require.True(t, ok)
		assert.Equal(t, "Api::V1::UsersController", index.Controller)
		assert.Equal(t, domain.AuthAuthenticated, index.AuthStatus)
		assert.Equal(t, []string{"authenticate_user!"}, index.EffectiveFilters)
	})

	t.Run("create carries request schema", func(t *testing.T) {
		create, ok := byKey["POST /api/v1/users"]
		require.True(t, ok)
		require.NotNil(t, create.RequestSchema)
		assert.Equal(t, "user", create.RequestSchema.RootKey)
		assert.Len(t, create.RequestSchema.Fields, 3)
	})

	t.Run("conditional route flagged but discovered", func(t *testing.T) {
		debug, ok := byKey["GET /debug"]
		require.True(t, ok)
		assert.True(t, debug.Flags.Conditional)
		assert.True(t, debug.Flags.UnknownController)
		assert.Equal(t, domain.AuthUnknown, debug.AuthStatus)
	})

	t.Run("engine mount surfaces as unknown", func(t *testing.T) {
		mount, ok := byKey["* /sidekiq"]
		require.True(t, ok)
		assert.True(t, mount.Flags.EngineMount)
		assert.Equal(t, domain.AuthUnknown, mount.AuthStatus)
	})
}

func TestAnalyzeDeterministic(t *testing.T) {
	first, err := New().Analyze(sampleApp)
	require.NoError(t, err)
	second, err := New().Analyze(sampleApp)
	require.NoError(t, err)

	assert.Equal(t, first.Endpoints, second.Endpoints)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestAnalyzeMissingRoutes(t *testing.T) {
	result, err := New().Analyze(vfs.Map{})
	assert.ErrorIs(t, err, ErrNoRoutes)
	assert.Empty(t, result.Endpoints)

	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, domain.SeverityFatal, result.Diagnostics[0].Severity)
}
