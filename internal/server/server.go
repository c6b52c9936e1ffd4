package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"alchemist/internal/dataset"
	"alchemist/internal/domain"
	"alchemist/internal/engine"
	"alchemist/internal/engine/auth"
	"alchemist/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_argument"`
	Message string         `json:"message" example:"invalid argument weights: weight clients=11 outside [1,10]"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"arg\":\"weights\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

const maxCSVBytes = 32 << 20

// New returns an HTTP handler exposing the alchemist API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			msgs := make([]string, 0, len(errs))
			for _, err := range errs {
				msgs = append(msgs, err.Error())
			}
			details = map[string]any{"errors": msgs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Config, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Alchemist API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerMe(group, cfg.Engine)
	registerDatasets(group, cfg.Engine)
	registerDatasetCSV(router, basePath, cfg.Engine)
	registerRuns(group, cfg.Engine)
	registerInline(group, cfg.Engine)
	registerExport(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"permission": fe.Permission})
	}
	var ia *domain.InvalidArgumentError
	if errors.As(err, &ia) {
		return newAPIError(http.StatusBadRequest, "invalid_argument", err.Error(), map[string]any{"arg": ia.Arg})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get(path.Join(basePath, "docs"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	if oas.Components != nil && oas.Components.Schemas != nil && oas.Components.Schemas.Map()["ApiError"] == nil {
		oas.Components.Schemas.Map()["ApiError"] = &huma.Schema{
			Type: "object",
			Properties: map[string]*huma.Schema{
				"error": {
					Type:     "object",
					Required: []string{"code", "message"},
					Properties: map[string]*huma.Schema{
						"code":    {Type: "string"},
						"message": {Type: "string"},
						"details": {Type: "object"},
					},
				},
			},
		}
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Alchemist API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body Principal `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		p.Roles = nonNilSlice(p.Roles)
		p.Permissions = nonNilSlice(p.Permissions)
		return &struct {
			Body Principal `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/config",
		Summary:     "Effective weights, rules and roles",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ConfigResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.RunsRead); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConfigResponse `json:"body"`
		}{Body: configResponse(e.Config)}, nil
	})
}

func registerDatasets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-datasets",
		Method:      http.MethodGet,
		Path:        "/datasets",
		Summary:     "List imported datasets",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.DatasetInfo `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.DatasetsRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Datasets(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DatasetInfo `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-dataset",
		Method:      http.MethodPut,
		Path:        "/datasets/{kind}",
		Summary:     "Replace a dataset",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Kind string `path:"kind" enum:"clients,workers,tasks"`
		Body PutDatasetRequest `json:"body"`
	}) (*struct {
		Body domain.DatasetInfo `json:"body"`
	}, error) {
		p, err := requirePermission(ctx, auth.DatasetsWrite)
		if err != nil {
			return nil, handleError(err)
		}
		info, err := e.ImportDataset(ctx, engine.ImportOptions{
			Kind:       domain.DatasetKind(input.Kind),
			Records:    nonNilSlice(input.Body.Records),
			SourceName: input.Body.SourceName,
			ActorID:    p.ActorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DatasetInfo `json:"body"`
		}{Body: info}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dataset",
		Method:      http.MethodGet,
		Path:        "/datasets/{kind}",
		Summary:     "Get a dataset",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Kind string `path:"kind" enum:"clients,workers,tasks"`
	}) (*struct {
		Body DatasetResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.DatasetsRead); err != nil {
			return nil, handleError(err)
		}
		info, rows, err := e.Dataset(ctx, domain.DatasetKind(input.Kind))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DatasetResponse `json:"body"`
		}{Body: DatasetResponse{Info: info, Records: rows}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-dataset",
		Method:      http.MethodGet,
		Path:        "/datasets/{kind}/search",
		Summary:     "Case-insensitive substring search over every cell",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Kind string `path:"kind" enum:"clients,workers,tasks"`
		Query string `query:"q"`
	}) (*struct {
		Body SearchResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.DatasetsRead); err != nil {
			return nil, handleError(err)
		}
		info, _, err := e.Dataset(ctx, domain.DatasetKind(input.Kind))
		if err != nil {
			return nil, handleError(err)
		}
		matches, err := e.SearchDataset(ctx, domain.DatasetKind(input.Kind), input.Query)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SearchResponse `json:"body"`
		}{Body: SearchResponse{Info: info, Query: input.Query, Matches: nonNilSlice(matches)}}, nil
	})
}

// registerDatasetCSV accepts a raw CSV body, outside huma so the body is not decoded as JSON.
func registerDatasetCSV(r chi.Router, basePath string, e engine.Engine) {
	r.Put(path.Join(basePath, "datasets/{kind}/csv"), func(w http.ResponseWriter, req *http.Request) {
		p, err := requirePermission(req.Context(), auth.DatasetsWrite)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		kind := domain.DatasetKind(chi.URLParam(req, "kind"))
		info, err := e.ImportCSV(req.Context(), kind, http.MaxBytesReader(w, req.Body, maxCSVBytes), req.URL.Query().Get("source_name"), p.ActorID)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})
}

func registerRuns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "validate",
		Method:        http.MethodPost,
		Path:          "/validate",
		Summary:       "Validate the stored datasets",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Run `json:"body"`
	}, error) {
		p, err := requirePermission(ctx, auth.RunsCreate)
		if err != nil {
			return nil, handleError(err)
		}
		run, err := e.Validate(ctx, engine.ValidateOptions{ActorID: p.ActorID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Run `json:"body"`
		}{Body: run}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "schedule",
		Method:        http.MethodPost,
		Path:          "/schedule",
		Summary:       "Allocate the stored datasets",
		Description:   "A strict run that finds validation errors is stored with status blocked.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body ScheduleRequest `json:"body" required:"false"`
	}) (*struct {
		Body domain.Run `json:"body"`
	}, error) {
		p, err := requirePermission(ctx, auth.RunsCreate)
		if err != nil {
			return nil, handleError(err)
		}
		rules, err := domain.DecodeRules(input.Body.Rules)
		if err != nil {
			return nil, handleError(err)
		}
		run, err := e.Schedule(ctx, engine.ScheduleOptions{
			ActorID:       p.ActorID,
			Strict:        input.Body.Strict,
			ScheduleInput: engine.ScheduleInput{Weights: input.Body.Weights, Rules: rules},
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Run `json:"body"`
		}{Body: run}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List runs",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Kind   string `query:"kind" enum:"validate,schedule"`
		Status string `query:"status" enum:"ok,invalid,blocked"`
		Limit  int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.Run `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.RunsRead); err != nil {
			return nil, handleError(err)
		}
		runs, err := e.Runs(ctx, repo.RunFilters{Kind: input.Kind, Status: input.Status, Limit: normalizeLimit(input.Limit)})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Run `json:"body"`
		}{Body: nonNilSlice(runs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{id}",
		Summary:     "Get a run with its errors or assignments",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Run `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.RunsRead); err != nil {
			return nil, handleError(err)
		}
		run, err := e.Run(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Run `json:"body"`
		}{Body: run}, nil
	})
}

func registerInline(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "validate-inline",
		Method:      http.MethodPost,
		Path:        "/validate/inline",
		Summary:     "Validate collections sent in the body without storing anything",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body InlineValidateRequest `json:"body"`
	}) (*struct {
		Body ValidationReportResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.RunsCreate); err != nil {
			return nil, handleError(err)
		}
		report, err := e.ValidateCollections(ctx, engine.Collections(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ValidationReportResponse `json:"body"`
		}{Body: reportResponse(report)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "schedule-inline",
		Method:      http.MethodPost,
		Path:        "/schedule/inline",
		Summary:     "Allocate collections sent in the body without storing anything",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body InlineScheduleRequest `json:"body"`
	}) (*struct {
		Body InlineScheduleResponse `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.RunsCreate); err != nil {
			return nil, handleError(err)
		}
		rules, err := domain.DecodeRules(input.Body.Rules)
		if err != nil {
			return nil, handleError(err)
		}
		c := engine.Collections{Clients: input.Body.Clients, Workers: input.Body.Workers, Tasks: input.Body.Tasks}
		out, weights, err := e.ScheduleCollections(ctx, c, engine.ScheduleInput{Weights: input.Body.Weights, Rules: rules})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InlineScheduleResponse `json:"body"`
		}{Body: InlineScheduleResponse{Assignments: out, Weights: weights}}, nil
	})
}

func registerExport(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "export",
		Method:      http.MethodGet,
		Path:        "/export",
		Summary:     "Datasets, rules, weights and the latest schedule as one document",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body dataset.Export `json:"body"`
	}, error) {
		p, err := requirePermission(ctx, auth.ExportRead)
		if err != nil {
			return nil, handleError(err)
		}
		doc, err := e.Export(ctx, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body dataset.Export `json:"body"`
		}{Body: doc}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"dataset,run,export,api_key"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.EventsRead); err != nil {
			return nil, handleError(err)
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil || parsed < 0 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.EventLog(ctx, repo.EventFilters{
			Type:       input.Type,
			EntityKind: input.EntityKind,
			EntityID:   input.EntityID,
			Before:     cursorID,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id"`
	}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, auth.APIKeysManage); err != nil {
			return nil, handleError(err)
		}
		keys, err := e.APIKeys(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: nonNilSlice(keys)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Create an API key",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body CreateAPIKeyResponse `json:"body"`
	}, error) {
		p, err := requirePermission(ctx, auth.APIKeysManage)
		if err != nil {
			return nil, handleError(err)
		}
		key, secret, err := e.CreateAPIKey(ctx, input.Body.ActorID, input.Body.Name, input.Body.Permissions, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CreateAPIKeyResponse `json:"body"`
		}{Body: CreateAPIKeyResponse{Key: key, Secret: secret}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{id}",
		Summary:     "Revoke an API key",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		p, err := requirePermission(ctx, auth.APIKeysManage)
		if err != nil {
			return nil, handleError(err)
		}
		if err := e.RevokeAPIKey(ctx, input.ID, p.ActorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
