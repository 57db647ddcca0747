package apiv1

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specPath = "../../../public/docs/v1/openapi.yml"

func loadSpec(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

// Every route the API mounts must be documented, and nothing undocumented may be mounted.
func TestRegisteredRoutesMatchDocument(t *testing.T) {
	doc := loadSpec(t)

	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(), Guards{})

	mounted := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead || !strings.HasPrefix(r.Path, "/api/v1/") {
			continue
		}
		path := strings.TrimPrefix(r.Path, "/api/v1")
		mounted[r.Method+" "+path] = true

		item := doc.Paths.Find(path)
		require.NotNil(t, item, "undocumented path %s", path)
		assert.NotNil(t, item.GetOperation(r.Method), "undocumented operation %s %s", r.Method, path)
	}

	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			assert.True(t, mounted[method+" "+path], "documented but not mounted: %s %s", method, path)
		}
	}
}

func TestGetPing(t *testing.T) {
	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(), Guards{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuardsRunBeforeHandlers(t *testing.T) {
	app := fiber.New()
	deny := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusUnauthorized) }
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(), Guards{Admin: []fiber.Handler{deny}})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/admin/users?email=a@example.com", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
