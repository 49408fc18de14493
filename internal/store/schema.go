package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// policyDocSchema validates the policy_doc JSONB column before it is written.
// All fields are optional; absent fields fall back to the built-in defaults at
// scan time.
const policyDocSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"enabled": {"type": "boolean"},
		"mode": {"type": "string", "enum": ["warn", "pause", "block"]},
		"confidence_threshold": {
			"type": "number",
			"exclusiveMinimum": 0,
			"maximum": 1
		},
		"categories": {
			"type": "object",
			"additionalProperties": {"type": "boolean"}
		},
		"allow_patterns": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		}
	}
}`

// customRulesSchema validates the custom_rules JSONB column: an array of
// serialized pattern rules.
const customRulesSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"additionalProperties": false,
		"required": ["name", "pattern", "category", "severity", "confidence"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"pattern": {"type": "string", "minLength": 1},
			"category": {"type": "string"},
			"severity": {"type": "string", "enum": ["warn", "pause", "block"]},
			"confidence": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
			"remediation": {"type": "string"}
		}
	}
}`

var (
	compiledPolicySchema      = mustCompileSchema("policy_doc.json", policyDocSchema)
	compiledCustomRulesSchema = mustCompileSchema("custom_rules.json", customRulesSchema)
)

func mustCompileSchema(name, raw string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return sch
}

// ValidatePolicyDoc checks a policy document against the policy schema.
// Returns a descriptive error suitable for a 400 response body.
func ValidatePolicyDoc(doc json.RawMessage) error {
	return validateAgainst(compiledPolicySchema, doc, "policy")
}

// ValidateCustomRules checks a custom rules document against the rules schema.
func ValidateCustomRules(doc json.RawMessage) error {
	return validateAgainst(compiledCustomRulesSchema, doc, "custom rules")
}

func validateAgainst(sch *jsonschema.Schema, doc json.RawMessage, what string) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("%s document is not valid JSON: %w", what, err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%s document failed validation: %w", what, err)
	}
	return nil
}
