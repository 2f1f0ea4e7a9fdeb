// Package docs embeds the OpenAPI description served by the HTTP API.
package docs

import _ "embed"

//go:embed openapi.yaml
var OpenAPISpec []byte
