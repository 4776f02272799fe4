//-------------------------------------------------------------------------
//
// pgEdge Chat Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package server

import (
	"net/http"
)

// OpenAPISpec represents the OpenAPI v3 specification.
type OpenAPISpec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       OpenAPIInfo            `json:"info"`
	Servers    []OpenAPIServer        `json:"servers"`
	Paths      map[string]OpenAPIPath `json:"paths"`
	Components OpenAPIComponents      `json:"components"`
}

// OpenAPIInfo contains API metadata.
type OpenAPIInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// OpenAPIServer describes a server.
type OpenAPIServer struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// OpenAPIPath contains operations for a path.
type OpenAPIPath struct {
	Get    *OpenAPIOperation `json:"get,omitempty"`
	Post   *OpenAPIOperation `json:"post,omitempty"`
	Put    *OpenAPIOperation `json:"put,omitempty"`
	Delete *OpenAPIOperation `json:"delete,omitempty"`
}

// OpenAPIOperation describes an API operation.
type OpenAPIOperation struct {
	Summary     string                     `json:"summary"`
	Description string                     `json:"description,omitempty"`
	OperationID string                     `json:"operationId"`
	Tags        []string                   `json:"tags,omitempty"`
	Parameters  []OpenAPIParameter         `json:"parameters,omitempty"`
	RequestBody *OpenAPIRequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]OpenAPIResponse `json:"responses"`
}

// OpenAPIParameter describes a parameter.
type OpenAPIParameter struct {
	Name        string        `json:"name"`
	In          string        `json:"in"`
	Description string        `json:"description,omitempty"`
	Required    bool          `json:"required"`
	Schema      OpenAPISchema `json:"schema"`
}

// OpenAPIRequestBody describes a request body.
type OpenAPIRequestBody struct {
	Description string                      `json:"description,omitempty"`
	Required    bool                        `json:"required"`
	Content     map[string]OpenAPIMediaType `json:"content"`
}

// OpenAPIResponse describes a response.
type OpenAPIResponse struct {
	Description string                      `json:"description"`
	Content     map[string]OpenAPIMediaType `json:"content,omitempty"`
}

// OpenAPIMediaType describes a media type.
type OpenAPIMediaType struct {
	Schema OpenAPISchema `json:"schema"`
}

// OpenAPISchema describes a schema.
type OpenAPISchema struct {
	Type                 string                   `json:"type,omitempty"`
	Format               string                   `json:"format,omitempty"`
	Description          string                   `json:"description,omitempty"`
	Properties           map[string]OpenAPISchema `json:"properties,omitempty"`
	Items                *OpenAPISchema           `json:"items,omitempty"`
	AdditionalProperties *OpenAPISchema           `json:"additionalProperties,omitempty"`
	Required             []string                 `json:"required,omitempty"`
	Default              any                      `json:"default,omitempty"`
	Ref                  string                   `json:"$ref,omitempty"`
}

// OpenAPIComponents contains reusable components.
type OpenAPIComponents struct {
	Schemas map[string]OpenAPISchema `json:"schemas"`
}

// handleOpenAPI handles the GET /v1/openapi.json endpoint.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	spec := BuildOpenAPISpec()
	s.respondJSON(w, http.StatusOK, spec)
}

// BuildOpenAPISpec constructs the OpenAPI v3 specification.
// This is exported so it can be used to generate static documentation.
func BuildOpenAPISpec() OpenAPISpec {
	return OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: OpenAPIInfo{
			Title:       "pgEdge Chat Server API",
			Description: "REST API for guarded retrieval-augmented chat pipelines",
			Version:     "1.0.0",
		},
		Servers: []OpenAPIServer{
			{
				URL:         "/v1",
				Description: "API v1",
			},
		},
		Paths: map[string]OpenAPIPath{
			"/health": {
				Get: &OpenAPIOperation{
					Summary:     "Health check",
					Description: "Check if the server is running and healthy",
					OperationID: "getHealth",
					Tags:        []string{"System"},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Server is healthy",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/HealthResponse",
									},
								},
							},
						},
					},
				},
			},
			"/guardrails": {
				Get: &OpenAPIOperation{
					Summary:     "Guardrail guidelines",
					Description: "Summarize the active content safety rules",
					OperationID: "getGuardrails",
					Tags:        []string{"System"},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Active guardrail configuration",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/Guidelines",
									},
								},
							},
						},
					},
				},
			},
			"/pipelines": {
				Get: &OpenAPIOperation{
					Summary:     "List pipelines",
					Description: "Get a list of all available chat pipelines",
					OperationID: "listPipelines",
					Tags:        []string{"Pipelines"},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "List of pipelines",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/PipelinesResponse",
									},
								},
							},
						},
					},
				},
			},
			"/pipelines/{name}/chat": {
				Post: &OpenAPIOperation{
					Summary:     "Chat with a pipeline",
					Description: "Run one conversation turn against a specific pipeline",
					OperationID: "chatWithPipeline",
					Tags:        []string{"Pipelines"},
					Parameters: []OpenAPIParameter{
						{
							Name:        "name",
							In:          "path",
							Description: "Pipeline name",
							Required:    true,
							Schema: OpenAPISchema{
								Type: "string",
							},
						},
					},
					RequestBody: &OpenAPIRequestBody{
						Description: "Chat request",
						Required:    true,
						Content: map[string]OpenAPIMediaType{
							"application/json": {
								Schema: OpenAPISchema{
									Ref: "#/components/schemas/ChatRequest",
								},
							},
						},
					},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Chat response (a refused turn is still a 200 with status=refused)",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ChatResponse",
									},
								},
							},
						},
						"400": {
							Description: "Invalid request",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
						"404": {
							Description: "Pipeline or session not found",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
						"500": {
							Description: "Server error",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
					},
				},
			},
			"/pipelines/{name}/documents": {
				Post: &OpenAPIOperation{
					Summary:     "Ingest documents",
					Description: "Split documents into chunks and store them in the pipeline's vector store",
					OperationID: "ingestDocuments",
					Tags:        []string{"Pipelines"},
					Parameters: []OpenAPIParameter{
						{
							Name:        "name",
							In:          "path",
							Description: "Pipeline name",
							Required:    true,
							Schema: OpenAPISchema{
								Type: "string",
							},
						},
					},
					RequestBody: &OpenAPIRequestBody{
						Description: "Documents to ingest",
						Required:    true,
						Content: map[string]OpenAPIMediaType{
							"application/json": {
								Schema: OpenAPISchema{
									Ref: "#/components/schemas/IngestRequest",
								},
							},
						},
					},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Ingestion result",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/IngestResponse",
									},
								},
							},
						},
						"404": {
							Description: "Pipeline not found",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
						"422": {
							Description: "No documents supplied",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
					},
				},
			},
			"/sessions/{id}": {
				Get: &OpenAPIOperation{
					Summary:     "Get session",
					Description: "Fetch a conversation's message history",
					OperationID: "getSession",
					Tags:        []string{"Sessions"},
					Parameters: []OpenAPIParameter{
						{
							Name:        "id",
							In:          "path",
							Description: "Session ID",
							Required:    true,
							Schema: OpenAPISchema{
								Type: "string",
							},
						},
					},
					Responses: map[string]OpenAPIResponse{
						"200": {
							Description: "Session contents",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/SessionResponse",
									},
								},
							},
						},
						"404": {
							Description: "Session not found",
							Content: map[string]OpenAPIMediaType{
								"application/json": {
									Schema: OpenAPISchema{
										Ref: "#/components/schemas/ErrorResponse",
									},
								},
							},
						},
					},
				},
				Delete: &OpenAPIOperation{
					Summary:     "Delete session",
					Description: "Discard a conversation. Deleting an unknown session is not an error",
					OperationID: "deleteSession",
					Tags:        []string{"Sessions"},
					Parameters: []OpenAPIParameter{
						{
							Name:        "id",
							In:          "path",
							Description: "Session ID",
							Required:    true,
							Schema: OpenAPISchema{
								Type: "string",
							},
						},
					},
					Responses: map[string]OpenAPIResponse{
						"204": {
							Description: "Session deleted",
						},
					},
				},
			},
		},
		Components: OpenAPIComponents{
			Schemas: map[string]OpenAPISchema{
				"HealthResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"status": {
							Type:        "string",
							Description: "Health status",
						},
						"version": {
							Type:        "string",
							Description: "Server build version",
						},
						"pipelines": {
							Type:        "integer",
							Description: "Number of configured pipelines",
						},
					},
					Required: []string{"status", "version", "pipelines"},
				},
				"PipelinesResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"pipelines": {
							Type:        "array",
							Description: "List of available pipelines",
							Items: &OpenAPISchema{
								Ref: "#/components/schemas/PipelineInfo",
							},
						},
					},
					Required: []string{"pipelines"},
				},
				"PipelineInfo": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"name": {
							Type:        "string",
							Description: "Pipeline name",
						},
						"description": {
							Type:        "string",
							Description: "Pipeline description",
						},
						"store": {
							Type:        "string",
							Description: "Vector store type (memory or postgres)",
						},
						"completion_model": {
							Type:        "string",
							Description: "Completion model name",
						},
						"rerank_model": {
							Type:        "string",
							Description: "Rerank model name",
						},
					},
					Required: []string{"name"},
				},
				"Message": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"role": {
							Type:        "string",
							Description: "Message role (user or assistant)",
						},
						"content": {
							Type:        "string",
							Description: "Message content",
						},
					},
					Required: []string{"role", "content"},
				},
				"ChatRequest": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"query": {
							Type:        "string",
							Description: "The question to answer",
						},
						"session_id": {
							Type:        "string",
							Description: "Continue an existing conversation; omit to start a new one",
						},
						"include_sources": {
							Type:        "boolean",
							Description: "Include source references in the response",
							Default:     true,
						},
					},
					Required: []string{"query"},
				},
				"ChatResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"answer": {
							Type:        "string",
							Description: "The generated answer, or a refusal message",
						},
						"sources": {
							Type:        "array",
							Description: "Source references backing the answer",
							Items: &OpenAPISchema{
								Type: "string",
							},
						},
						"confidence": {
							Type:        "number",
							Format:      "double",
							Description: "Answer confidence in [0,1]",
						},
						"session_id": {
							Type:        "string",
							Description: "Session carrying this conversation",
						},
						"intent": {
							Type:        "string",
							Description: "Classified query intent",
						},
						"status": {
							Type:        "string",
							Description: "Turn outcome: done, refused or sanitized",
						},
						"timings": {
							Type:        "object",
							Description: "Per-stage latency in milliseconds",
							AdditionalProperties: &OpenAPISchema{
								Type:   "integer",
								Format: "int64",
							},
						},
						"tokens_used": {
							Type:        "integer",
							Description: "Total tokens consumed",
						},
					},
					Required: []string{"answer", "confidence", "session_id", "intent", "status"},
				},
				"IngestRequest": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"documents": {
							Type:        "array",
							Description: "Documents to split and store",
							Items: &OpenAPISchema{
								Ref: "#/components/schemas/IngestDocument",
							},
						},
					},
					Required: []string{"documents"},
				},
				"IngestDocument": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"id": {
							Type:        "string",
							Description: "Document identifier (generated if omitted)",
						},
						"source": {
							Type:        "string",
							Description: "Where the document came from",
						},
						"content": {
							Type:        "string",
							Description: "Document text",
						},
					},
					Required: []string{"content"},
				},
				"IngestResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"documents_received": {
							Type:        "integer",
							Description: "Documents in the request",
						},
						"chunks_stored": {
							Type:        "integer",
							Description: "Chunks written to the vector store",
						},
					},
					Required: []string{"documents_received", "chunks_stored"},
				},
				"SessionResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"id": {
							Type:        "string",
							Description: "Session ID",
						},
						"created_at": {
							Type:        "string",
							Format:      "date-time",
							Description: "When the session was created",
						},
						"updated_at": {
							Type:        "string",
							Format:      "date-time",
							Description: "When the session last changed",
						},
						"messages": {
							Type:        "array",
							Description: "Conversation history",
							Items: &OpenAPISchema{
								Ref: "#/components/schemas/Message",
							},
						},
					},
					Required: []string{"id", "created_at", "updated_at"},
				},
				"Guidelines": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"severity_order": {
							Type:        "array",
							Description: "Categories from most to least severe",
							Items: &OpenAPISchema{
								Type: "string",
							},
						},
						"categories": {
							Type:        "array",
							Description: "Active category rules",
							Items: &OpenAPISchema{
								Ref: "#/components/schemas/CategoryGuideline",
							},
						},
						"qualifiers": {
							Type:        "array",
							Description: "Safe-context phrases that downgrade a nearby match",
							Items: &OpenAPISchema{
								Type: "string",
							},
						},
						"qualifier_window_bytes": {
							Type:        "integer",
							Description: "Distance a qualifier may sit from the matched term",
						},
						"query_pattern_count": {
							Type:        "integer",
							Description: "Number of query-side regex patterns",
						},
						"response_pattern_count": {
							Type:        "integer",
							Description: "Number of response-side regex patterns",
						},
					},
					Required: []string{"severity_order", "categories"},
				},
				"CategoryGuideline": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"category": {
							Type:        "string",
							Description: "Category name",
						},
						"severity": {
							Type:        "integer",
							Description: "Rank in the severity order (lower is more severe)",
						},
						"term_count": {
							Type:        "integer",
							Description: "Number of terms in the category",
						},
						"example_terms": {
							Type:        "array",
							Description: "A few example terms",
							Items: &OpenAPISchema{
								Type: "string",
							},
						},
					},
					Required: []string{"category", "severity", "term_count"},
				},
				"ErrorResponse": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"error": {
							Ref: "#/components/schemas/ErrorDetail",
						},
					},
					Required: []string{"error"},
				},
				"ErrorDetail": {
					Type: "object",
					Properties: map[string]OpenAPISchema{
						"code": {
							Type:        "string",
							Description: "Error code",
						},
						"message": {
							Type:        "string",
							Description: "Error message",
						},
					},
					Required: []string{"code", "message"},
				},
			},
		},
	}
}
