package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Transfer Settlement API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Transfer Settlement API",
    "version": "1.0.0"
  },
  "components": {
    "securitySchemes": {
      "BearerAuth": {
        "type": "http",
        "scheme": "bearer",
        "bearerFormat": "JWT"
      },
      "ApiToken": {
        "type": "apiKey",
        "in": "header",
        "name": "X-API-TOKEN"
      }
    }
  },
  "paths": {
    "/users/register": {
      "post": {
        "summary": "Register user",
        "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}}
      }
    },
    "/users/login": {
      "post": {
        "summary": "Login and obtain a bearer token",
        "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}
      }
    },
    "/users/me": {
      "get": {
        "summary": "Fetch own profile",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/accounts": {
      "post": {
        "summary": "Create account",
        "security": [{"BearerAuth": []}],
        "responses": {"201": {"description": "Created"}}
      },
      "get": {
        "summary": "List own accounts",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/accounts/{id}": {
      "get": {
        "summary": "Fetch one account",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
      }
    },
    "/accounts/{id}/status": {
      "patch": {
        "summary": "Freeze, close or reactivate an account",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/accounts/{id}/movements": {
      "get": {
        "summary": "List posted movements with date/type filters and paging",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/accounts/{id}/cards": {
      "get": {
        "summary": "List cards (masked)",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/transfers": {
      "post": {
        "summary": "Move funds locally or start an interbank settlement",
        "security": [{"BearerAuth": []}],
        "responses": {
          "200": {"description": "Local transfer completed"},
          "202": {"description": "Interbank transfer accepted, settlement pending"},
          "422": {"description": "Insufficient balance"}
        }
      }
    },
    "/transfers/{id}": {
      "get": {
        "summary": "Poll transfer state",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
      }
    },
    "/cards": {
      "post": {
        "summary": "Issue a card for an account",
        "security": [{"BearerAuth": []}],
        "responses": {"201": {"description": "Created"}}
      }
    },
    "/cards/{id}/reveal": {
      "post": {
        "summary": "Reveal PAN and CVV after a fresh one-time code",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}, "403": {"description": "Code invalid, expired or used"}}
      }
    },
    "/otp": {
      "post": {
        "summary": "Issue a one-time code",
        "security": [{"BearerAuth": []}],
        "responses": {"201": {"description": "Created"}}
      }
    },
    "/banks": {
      "get": {
        "summary": "List banks reachable through the clearing hub",
        "security": [{"BearerAuth": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/operator/transfers/stale": {
      "get": {
        "summary": "List transfers stuck in a non-terminal state",
        "security": [{"ApiToken": []}],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/metrics": {
      "get": {
        "summary": "Prometheus metrics",
        "responses": {"200": {"description": "OK"}}
      }
    }
  }
}`
