package manager

// LintSchema is the JSON schema the validated configuration is checked
// against. Structure is already enforced by Validate; this schema only
// covers value formats nginx and certbot would likely reject later, and its
// findings are reported as warnings.
const LintSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"title": "letsexpose configuration",
	"type": "object",
	"properties": {
		"letsencrypt": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string",
					"pattern": "^[^@\\s]+@[^@\\s]+$",
					"description": "Email address for Let's Encrypt registration"
				}
			}
		},
		"hosts": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"name": {
						"type": "string",
						"minLength": 1
					},
					"ports": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"locations": {
									"type": "array",
									"items": {
										"type": "object",
										"properties": {
											"location": {
												"type": "string",
												"minLength": 1,
												"description": "URI path prefix of the nginx location block"
											},
											"backend": {
												"type": "string",
												"pattern": "^https?://",
												"description": "proxy_pass target"
											}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`
