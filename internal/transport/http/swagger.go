package transporthttp

import (
	"net/http"

	"contentengine/docs"
)

const swaggerSpecPath = "/swagger/openapi.yaml"

var swaggerPage = []byte(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Content Engine API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  <style>html, body, #swagger-ui { margin: 0; height: 100%; }</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.addEventListener('load', function () {
      SwaggerUIBundle({ url: '` + swaggerSpecPath + `', dom_id: '#swagger-ui' });
    });
  </script>
</body>
</html>`)

func serveSwaggerUI(w http.ResponseWriter, r *http.Request) {
	serveDoc(w, r, "text/html; charset=utf-8", swaggerPage)
}

func serveSwaggerYAML(w http.ResponseWriter, r *http.Request) {
	serveDoc(w, r, "application/yaml", docs.OpenAPISpec)
}

func serveDoc(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	if len(docs.OpenAPISpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
