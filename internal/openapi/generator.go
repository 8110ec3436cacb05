// Package openapi generates the OpenAPI 3.1 description of the imgvault
// resource API.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// GenerateSpec builds the OpenAPI document for the resource hierarchy.
func GenerateSpec(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "imgvault API",
			Description: "Hierarchical multi-tenant image vault: teams own users, api keys, and images.",
			Version:     "1.0.0",
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"apiKey": {}},
	}

	registerSchemas(doc)

	doc.Paths = openapi3.NewPaths()
	addTeamPaths(doc)
	addAPIKeyPaths(doc)
	addUserPaths(doc)
	addImagePaths(doc)
	addAuditPaths(doc)
	addContentPath(doc)

	return doc
}

func registerSchemas(doc *openapi3.T) {
	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}

	doc.Components.Schemas["Team"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":          stringProp(),
		"name":        stringProp(),
		"description": stringProp(),
		"created_at":  timeProp(),
	})
	doc.Components.Schemas["User"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":         stringProp(),
		"team_id":    stringProp(),
		"username":   stringProp(),
		"email":      stringProp(),
		"created_at": timeProp(),
	})
	doc.Components.Schemas["APIKey"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":         stringProp(),
		"key_prefix": stringProp(),
		"name":       stringProp(),
		"role":       stringProp(),
		"team_id":    stringProp(),
		"user_id":    stringProp(),
		"revoked":    {Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
		"created_at": timeProp(),
	})
	doc.Components.Schemas["Image"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":           stringProp(),
		"team_id":      stringProp(),
		"user_id":      stringProp(),
		"title":        stringProp(),
		"description":  stringProp(),
		"filename":     stringProp(),
		"content_type": stringProp(),
		"size":         {Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
		"metadata":     {Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
		"url":          stringProp(),
		"created_at":   timeProp(),
	})
	doc.Components.Schemas["AuditLog"] = objectSchema(map[string]*openapi3.SchemaRef{
		"id":            stringProp(),
		"credential_id": stringProp(),
		"team_id":       stringProp(),
		"user_id":       stringProp(),
		"method":        stringProp(),
		"path":          stringProp(),
		"status":        stringProp(),
		"status_code":   {Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}},
		"duration_ms":   {Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}},
		"created_at":    timeProp(),
	})
}

func addTeamPaths(doc *openapi3.T) {
	doc.Paths.Set("/teams", &openapi3.PathItem{
		Get:  listOperation("teams", "List teams", "Team"),
		Post: writeOperation("teams", "Create a team", "Team", 201),
	})
	doc.Paths.Set("/teams/{teamID}", &openapi3.PathItem{
		Parameters: pathParams("teamID"),
		Get:        readOperation("teams", "Get a team", "Team"),
		Put:        writeOperation("teams", "Update a team", "Team", 200),
		Delete:     deleteOperation("teams", "Delete a team"),
	})
}

func addAPIKeyPaths(doc *openapi3.T) {
	doc.Paths.Set("/teams/{teamID}/api-keys", &openapi3.PathItem{
		Parameters: pathParams("teamID"),
		Get:        listOperation("api-keys", "List a team's api keys", "APIKey"),
		Post:       writeOperation("api-keys", "Mint an api key", "APIKey", 201),
	})
	doc.Paths.Set("/teams/{teamID}/api-keys/{keyID}", &openapi3.PathItem{
		Parameters: pathParams("teamID", "keyID"),
		Get:        readOperation("api-keys", "Get an api key", "APIKey"),
		Put:        writeOperation("api-keys", "Rename an api key", "APIKey", 200),
		Delete:     deleteOperation("api-keys", "Revoke an api key"),
	})
	doc.Paths.Set("/teams/{teamID}/users/{userID}/api-keys", &openapi3.PathItem{
		Parameters: pathParams("teamID", "userID"),
		Get:        listOperation("api-keys", "List a user's api keys", "APIKey"),
	})
	doc.Paths.Set("/teams/{teamID}/users/{userID}/api-keys/{keyID}", &openapi3.PathItem{
		Parameters: pathParams("teamID", "userID", "keyID"),
		Get:        readOperation("api-keys", "Get an api key", "APIKey"),
		Delete:     deleteOperation("api-keys", "Revoke an api key"),
	})
}

func addUserPaths(doc *openapi3.T) {
	doc.Paths.Set("/teams/{teamID}/users", &openapi3.PathItem{
		Parameters: pathParams("teamID"),
		Get:        listOperation("users", "List a team's users", "User"),
		Post:       writeOperation("users", "Create a user", "User", 201),
	})
	doc.Paths.Set("/teams/{teamID}/users/{userID}", &openapi3.PathItem{
		Parameters: pathParams("teamID", "userID"),
		Get:        readOperation("users", "Get a user", "User"),
		Put:        writeOperation("users", "Update a user", "User", 200),
		Delete:     deleteOperation("users", "Delete a user"),
	})
}

func addImagePaths(doc *openapi3.T) {
	doc.Paths.Set("/teams/{teamID}/images", &openapi3.PathItem{
		Parameters: pathParams("teamID"),
		Get:        listOperation("images", "List a team's images", "Image"),
		Post:       writeOperation("images", "Upload an image", "Image", 201),
	})
	doc.Paths.Set("/teams/{teamID}/images/{imageID}", &openapi3.PathItem{
		Parameters: pathParams("teamID", "imageID"),
		Get:        readOperation("images", "Get an image", "Image"),
		Put:        writeOperation("images", "Update image metadata", "Image", 200),
		Delete:     deleteOperation("images", "Delete an image"),
	})
	doc.Paths.Set("/teams/{teamID}/users/{userID}/images", &openapi3.PathItem{
		Parameters: pathParams("teamID", "userID"),
		Get:        listOperation("images", "List a user's images", "Image"),
	})
	doc.Paths.Set("/teams/{teamID}/users/{userID}/images/{imageID}", &openapi3.PathItem{
		Parameters: pathParams("teamID", "userID", "imageID"),
		Get:        readOperation("images", "Get an image", "Image"),
		Put:        writeOperation("images", "Update image metadata", "Image", 200),
		Delete:     deleteOperation("images", "Delete an image"),
	})
}

func addAuditPaths(doc *openapi3.T) {
	doc.Paths.Set("/audit-logs", &openapi3.PathItem{
		Get: listOperation("audit-logs", "List audit entries", "AuditLog"),
	})
}

func addContentPath(doc *openapi3.T) {
	op := openapi3.NewOperation()
	op.Tags = []string{"content"}
	op.Summary = "Download image bytes with a signed token"
	op.AddParameter(openapi3.NewPathParameter("imageID").WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(openapi3.NewQueryParameter("token").WithSchema(openapi3.NewStringSchema()))
	op.Security = &openapi3.SecurityRequirements{} // token in the URL, no api key
	op.AddResponse(200, openapi3.NewResponse().WithDescription("Image bytes"))
	op.AddResponse(401, errorResponse())
	op.AddResponse(404, errorResponse())
	doc.Paths.Set("/content/{imageID}", &openapi3.PathItem{Get: op})
}

// ---------------------------------------------------------------------------
// Operation and schema helpers
// ---------------------------------------------------------------------------

func listOperation(tag, summary, schemaName string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Tags = []string{tag}
	op.Summary = summary
	op.AddParameter(openapi3.NewQueryParameter("limit").WithSchema(openapi3.NewIntegerSchema()))
	op.AddParameter(openapi3.NewQueryParameter("offset").WithSchema(openapi3.NewIntegerSchema()))
	listSchema := &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"resource": &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:  &openapi3.Types{"array"},
					Items: openapi3.NewSchemaRef("#/components/schemas/"+schemaName, nil),
				},
			},
			"meta": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
		},
	}
	op.AddResponse(200, openapi3.NewResponse().
		WithDescription("Resource list").
		WithJSONSchema(listSchema))
	addErrorResponses(op)
	return op
}

func readOperation(tag, summary, schemaName string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Tags = []string{tag}
	op.Summary = summary
	op.AddResponse(200, openapi3.NewResponse().
		WithDescription("Resource").
		WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+schemaName, nil)))
	addErrorResponses(op)
	return op
}

func writeOperation(tag, summary, schemaName string, status int) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Tags = []string{tag}
	op.Summary = summary
	op.AddResponse(status, openapi3.NewResponse().
		WithDescription("Resource").
		WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+schemaName, nil)))
	op.AddResponse(400, errorResponse())
	addErrorResponses(op)
	return op
}

func deleteOperation(tag, summary string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Tags = []string{tag}
	op.Summary = summary
	op.AddResponse(204, openapi3.NewResponse().WithDescription("Deleted"))
	addErrorResponses(op)
	return op
}

func addErrorResponses(op *openapi3.Operation) {
	op.AddResponse(401, errorResponse())
	op.AddResponse(403, errorResponse())
	op.AddResponse(404, errorResponse())
}

func errorResponse() *openapi3.Response {
	return openapi3.NewResponse().
		WithDescription("Error").
		WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil))
}

func pathParams(names ...string) openapi3.Parameters {
	params := make(openapi3.Parameters, 0, len(names))
	for _, name := range names {
		params = append(params, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
		})
	}
	return params
}

func objectSchema(props map[string]*openapi3.SchemaRef) *openapi3.SchemaRef {
	schemas := openapi3.Schemas{}
	for name, ref := range props {
		schemas[name] = ref
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: schemas,
		},
	}
}

func stringProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
}

func timeProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
}
