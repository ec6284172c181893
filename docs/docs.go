// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {
            "get": {"tags": ["products"], "summary": "List products", "produces": ["application/json"],
                "parameters": [{"type": "string", "description": "Name contains", "name": "q", "in": "query"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["products"], "summary": "Create product", "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/products/{id}": {
            "get": {"tags": ["products"], "summary": "Get product by id",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"tags": ["products"], "summary": "Update product",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["products"], "summary": "Delete product",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}
        },
        "/cart": {
            "get": {"tags": ["cart"], "summary": "Get cart",
                "parameters": [{"type": "string", "name": "X-Cart-Session", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["cart"], "summary": "Clear cart",
                "parameters": [{"type": "string", "name": "X-Cart-Session", "in": "header", "required": true}],
                "responses": {"204": {"description": "No Content"}}}
        },
        "/cart/lines": {
            "post": {"tags": ["cart"], "summary": "Add product to cart",
                "parameters": [{"type": "string", "name": "X-Cart-Session", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/cart/lines/{key}": {
            "patch": {"tags": ["cart"], "summary": "Set line quantity",
                "parameters": [{"type": "string", "name": "X-Cart-Session", "in": "header", "required": true}, {"type": "string", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["cart"], "summary": "Remove line",
                "parameters": [{"type": "string", "name": "X-Cart-Session", "in": "header", "required": true}, {"type": "string", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/coupons/validate": {
            "post": {"tags": ["coupons"], "summary": "Validate coupon",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/orders": {
            "post": {"tags": ["orders"], "summary": "Checkout",
                "parameters": [{"type": "string", "name": "X-Cart-Session", "in": "header", "required": true}, {"type": "string", "name": "X-User-ID", "in": "header"}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/orders/mine": {
            "get": {"tags": ["orders"], "summary": "My orders",
                "parameters": [{"type": "string", "name": "X-User-ID", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/orders/track": {
            "get": {"tags": ["orders"], "summary": "Track order",
                "parameters": [{"type": "string", "name": "code", "in": "query", "required": true}, {"type": "string", "name": "phone", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/admin/coupons": {
            "get": {"tags": ["admin"], "summary": "List coupons", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["admin"], "summary": "Create coupon", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/admin/coupons/{id}": {
            "put": {"tags": ["admin"], "summary": "Update coupon",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["admin"], "summary": "Delete coupon",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}
        },
        "/admin/orders": {
            "get": {"tags": ["admin"], "summary": "List orders",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "payment_method", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/admin/orders/stats": {
            "get": {"tags": ["admin"], "summary": "Order statistics", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/orders/{id}": {
            "get": {"tags": ["admin"], "summary": "Get order by id",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["admin"], "summary": "Delete order",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}
        },
        "/admin/orders/{id}/audit-logs": {
            "get": {"tags": ["admin"], "summary": "Order audit log",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/admin/orders/{id}/verify": {
            "post": {"tags": ["admin"], "summary": "Verify order",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}
        },
        "/admin/orders/{id}/reject": {
            "post": {"tags": ["admin"], "summary": "Reject order",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Storefront API",
	Description:      "Cart, checkout and manual order verification for a small storefront.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
