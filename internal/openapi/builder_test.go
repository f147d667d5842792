package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railscope/railscope/internal/domain"
)

func endpoint(verb, path, controller, action string) domain.ResolvedEndpoint {
	return domain.ResolvedEndpoint{
		EndpointRecord: domain.EndpointRecord{
			Verb:       verb,
			Path:       path,
			Controller: controller,
			Action:     action,
			Source:     domain.Source{File: "config/routes.rb", Line: 10},
		},
		AuthStatus: domain.AuthAuthenticated,
	}
}

func TestPathConversion(t *testing.T) {
	assert.Equal(t, "/users/{id}", ToOpenAPIPath("/users/:id"))
	assert.Equal(t, "/posts/{post_id}/comments/{id}", ToOpenAPIPath("/posts/:post_id/comments/:id"))
	assert.Equal(t, "/", ToOpenAPIPath("/"))
}

func TestOperationID(t *testing.T) {
	assert.Equal(t, "api_v1_users_id_show", OperationID("/api/v1/users/:id", "show"))
	assert.Equal(t, "root", OperationID("/", "root"))
}

func TestBuildDocument(t *testing.T) {
	e := endpoint("GET", "/api/v1/users/:id", "Api::V1::UsersController", "show")
	e.EffectiveFilters = []string{"authenticate_user!"}

	doc := Build([]domain.ResolvedEndpoint{e}, Info{Title: "demo", RailsVersion: "7.1.2"}, domain.Options{})

	require.NotNil(t, doc.Paths)
	item := doc.Paths.Value("/api/v1/users/{id}")
	require.NotNil(t, item)
	op := item.Get
	require.NotNil(t, op)

	assert.Equal(t, "api_v1_users_id_show", op.OperationID)
	assert.Equal(t, []string{"api/v1"}, op.Tags)
	assert.Equal(t, "Api::V1::UsersController", op.Extensions["x-controller"])
	assert.Equal(t, "show", op.Extensions["x-action"])
	assert.Equal(t, "authenticated", op.Extensions["x-auth-status"])
	assert.Equal(t, []string{"authenticate_user!"}, op.Extensions["x-auth-filters"])
	assert.Equal(t, "config/routes.rb", op.Extensions["x-source"])

	require.Len(t, op.Parameters, 1)
	assert.Equal(t, "id", op.Parameters[0].Value.Name)
	assert.Equal(t, "path", op.Parameters[0].Value.In)

	assert.Equal(t, "7.1.2", doc.Info.Extensions["x-rails-version"])
}

func TestUnprotectedLabelUppercased(t *testing.T) {
	e := endpoint("DELETE", "/posts/:id", "PostsController", "destroy")
	e.AuthStatus = domain.AuthUnprotected

	doc := Build([]domain.ResolvedEndpoint{e}, Info{}, domain.Options{})
	op := doc.Paths.Value("/posts/{id}").Delete
	require.NotNil(t, op)
	assert.Equal(t, "UNPROTECTED", op.Extensions["x-auth-status"])
}

func TestConditionalFiltering(t *testing.T) {
	e := endpoint("GET", "/debug", "DebugController", "index")
	e.Flags.Conditional = true

	t.Run("suppressed by default", func(t *testing.T) {
		doc := Build([]domain.ResolvedEndpoint{e}, Info{}, domain.Options{})
		assert.Nil(t, doc.Paths.Value("/debug"))
	})

	t.Run("included with marker when opted in", func(t *testing.T) {
		doc := Build([]domain.ResolvedEndpoint{e}, Info{}, domain.Options{IncludeConditional: true})
		op := doc.Paths.Value("/debug").Get
		require.NotNil(t, op)
		assert.Equal(t, true, op.Extensions["x-conditional"])
		assert.Contains(t, op.Extensions["x-flags"], "conditional")
	})
}

func TestEngineMountHandling(t *testing.T) {
	mount := endpoint("*", "/sidekiq", "Sidekiq::Web", "(engine)")
	mount.Flags.EngineMount = true
	mount.AuthStatus = domain.AuthUnknown

	t.Run("emitted as extension-only path item", func(t *testing.T) {
		doc := Build([]domain.ResolvedEndpoint{mount}, Info{}, domain.Options{})
		item := doc.Paths.Value("/sidekiq")
		require.NotNil(t, item)
		assert.Nil(t, item.Get)
		assert.Equal(t, "Sidekiq::Web", item.Extensions["x-engine"])
		assert.Equal(t, "unknown", item.Extensions["x-auth-status"])
	})

	t.Run("omitted when engines excluded", func(t *testing.T) {
		doc := Build([]domain.ResolvedEndpoint{mount}, Info{}, domain.Options{ExcludeEngines: true})
		assert.Nil(t, doc.Paths.Value("/sidekiq"))
	})
}

func TestRequestBody(t *testing.T) {
	e := endpoint("POST", "/users", "UsersController", "create")
	e.RequestSchema = &domain.RequestSchema{
		RootKey: "user",
		Fields: []domain.SchemaField{
			{Name: "name", Type: "string"},
			{Name: "age", Type: "integer"},
			{Name: "active", Type: "boolean"},
		},
	}

	doc := Build([]domain.ResolvedEndpoint{e}, Info{}, domain.Options{})
	op := doc.Paths.Value("/users").Post
	require.NotNil(t, op)
	require.NotNil(t, op.RequestBody)

	media := op.RequestBody.Value.Content.Get("application/json")
	require.NotNil(t, media)
	props := media.Schema.Value.Properties
	require.Len(t, props, 3)
	assert.True(t, props["name"].Value.Type.Is("string"))
	assert.True(t, props["age"].Value.Type.Is("integer"))
	assert.True(t, props["active"].Value.Type.Is("boolean"))
}

func TestWriterRendersYAMLAndJSON(t *testing.T) {
	e := endpoint("GET", "/users", "UsersController", "index")
	doc := Build([]domain.ResolvedEndpoint{e}, Info{Title: "demo"}, domain.Options{})
	writer := NewWriter()

	yamlOut, err := writer.Render(doc, "yaml")
	require.NoError(t, err)
	assert.Contains(t, string(yamlOut), "openapi: 3.0.3")
	assert.Contains(t, string(yamlOut), "/users")

	jsonOut, err := writer.Render(doc, "json")
	require.NoError(t, err)
	assert.Contains(t, string(jsonOut), `"openapi"`)

	_, err = writer.Render(doc, "toml")
	assert.Error(t, err)
}
